package authz

import (
	"github.com/golang-jwt/jwt/v5"
)

// Claims is the decoded payload of an identity token: claim name to
// JSON-typed value. Treated as read-only after decode.
type Claims map[string]any

// DecodeIDToken extracts the payload segment of a compact JWS without
// verifying the signature. Trust in the token is established upstream by the
// OIDC verifier during login; this decode exists only to surface claims for
// role extraction and display.
//
// Any malformed input (wrong segment count, bad base64, bad JSON) yields an
// empty Claims value, never an error.
func DecodeIDToken(raw string) Claims {
	if raw == "" {
		return Claims{}
	}
	claims := jwt.MapClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(raw, claims); err != nil {
		return Claims{}
	}
	return Claims(claims)
}

// String returns the named claim when it is a string, or "" otherwise.
func (c Claims) String(name string) string {
	v, ok := c[name].(string)
	if !ok {
		return ""
	}
	return v
}

// standardClaimNames lists registered OIDC / JWT identity claims. Anything
// outside this set is provider-specific.
var standardClaimNames = map[string]struct{}{
	"sub": {}, "iss": {}, "aud": {}, "exp": {}, "iat": {}, "auth_time": {},
	"nonce": {}, "acr": {}, "amr": {}, "azp": {}, "at_hash": {}, "c_hash": {},
	"email": {}, "email_verified": {}, "name": {}, "given_name": {},
	"family_name": {}, "middle_name": {}, "nickname": {},
	"preferred_username": {}, "profile": {}, "picture": {}, "website": {},
	"gender": {}, "birthdate": {}, "zoneinfo": {}, "locale": {}, "updated_at": {},
}

// IsStandardClaim reports whether name is one of the registered OIDC
// identity claims rather than a custom provider claim.
func IsStandardClaim(name string) bool {
	_, ok := standardClaimNames[name]
	return ok
}
