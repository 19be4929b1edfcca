package identity

import "context"

type userContextKey struct{}
type claimsContextKey struct{}

// ContextWithUser attaches the authenticated user to the context.
func ContextWithUser(ctx context.Context, u *User) context.Context {
	if u == nil {
		return ctx
	}
	return context.WithValue(ctx, userContextKey{}, u)
}

// UserFromContext extracts the authenticated user, or nil for anonymous.
func UserFromContext(ctx context.Context) *User {
	if ctx == nil {
		return nil
	}
	u, ok := ctx.Value(userContextKey{}).(*User)
	if !ok {
		return nil
	}
	return u
}

// ContextWithClaims stores the decoded ID-token claims for the request.
func ContextWithClaims(ctx context.Context, claims map[string]any) context.Context {
	if len(claims) == 0 {
		return ctx
	}
	return context.WithValue(ctx, claimsContextKey{}, claims)
}

// ClaimsFromContext returns the decoded ID-token claims, if any.
func ClaimsFromContext(ctx context.Context) map[string]any {
	if ctx == nil {
		return nil
	}
	v, ok := ctx.Value(claimsContextKey{}).(map[string]any)
	if !ok {
		return nil
	}
	return v
}
