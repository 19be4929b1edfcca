package authz

import "strings"

// Claim names carrying the role list. The namespaced form is what the
// identity provider emits; the underscore alias covers providers that cannot
// issue claim names containing a slash.
const (
	RolesClaim      = "tradedesk/roles"
	RolesClaimAlias = "tradedesk_roles"
)

// Canonical role names observed in this domain. Matching is exact and
// case-sensitive; the provider is expected to emit them verbatim.
const (
	RoleAdmin     = "admin"
	RoleReader    = "reader"
	RoleTrader    = "trader"
	RoleConfirmer = "confirms"
	RoleApprover  = "approver"
)

// ExtractRoles locates the role claim under the fallback chain and
// normalizes it into an ordered, duplicate-free list of role names.
//
// Accepted shapes: a comma-separated string, a bare string, or a JSON list
// (non-string elements skipped). Absent claim or any other shape yields an
// empty list. Normalization is idempotent: re-extracting an already
// normalized list is a no-op.
func ExtractRoles(claims Claims) []string {
	raw, ok := claims[RolesClaim]
	if !ok {
		raw, ok = claims[RolesClaimAlias]
	}
	if !ok {
		return nil
	}
	switch v := raw.(type) {
	case string:
		return NormalizeRoles(strings.Split(v, ","))
	case []any:
		parts := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				parts = append(parts, s)
			}
		}
		return NormalizeRoles(parts)
	case []string:
		return NormalizeRoles(v)
	default:
		return nil
	}
}

// NormalizeRoles trims whitespace, drops empty entries and removes
// duplicates while preserving first-seen order. Case is preserved: role
// matching downstream is exact.
func NormalizeRoles(roles []string) []string {
	if len(roles) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(roles))
	out := make([]string, 0, len(roles))
	for _, role := range roles {
		role = strings.TrimSpace(role)
		if role == "" {
			continue
		}
		if _, ok := seen[role]; ok {
			continue
		}
		seen[role] = struct{}{}
		out = append(out, role)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
