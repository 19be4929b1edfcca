package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"tradedesk.org/internal/authz"
)

// Provisioner keeps the local user record in sync with the identity
// provider: it creates users on first authentication and refreshes email and
// roles on every subsequent one, so request-time role checks always see the
// provider's latest claims.
type Provisioner struct {
	store Store
}

// NewProvisioner wires a provisioner to a user store.
func NewProvisioner(store Store) (*Provisioner, error) {
	if store == nil {
		return nil, errors.New("identity: store is required")
	}
	return &Provisioner{store: store}, nil
}

// Sync resolves the username from claims and upserts the user. Roles are
// extracted with the standard fallback chain; an empty or missing role claim
// clears the stored role set rather than keeping a stale one.
func (p *Provisioner) Sync(ctx context.Context, claims authz.Claims) (*User, error) {
	username := usernameFromClaims(claims)
	if username == "" {
		return nil, fmt.Errorf("%w: claims carry no usable subject", ErrInvalidInput)
	}
	email := strings.TrimSpace(strings.ToLower(claims.String("email")))
	roles := authz.ExtractRoles(claims)

	user, err := p.store.FindByUsername(ctx, username)
	switch {
	case errors.Is(err, ErrNotFound):
		user = &User{
			Username: username,
			Email:    email,
			Active:   true,
			RoleList: roles,
		}
		if err := p.store.Create(ctx, user); err != nil {
			return nil, err
		}
		return user, nil
	case err != nil:
		return nil, err
	}

	user.Email = email
	user.RoleList = roles
	if err := p.store.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func usernameFromClaims(claims authz.Claims) string {
	for _, key := range []string{"preferred_username", "sub", "email"} {
		if v := strings.TrimSpace(claims.String(key)); v != "" {
			return v
		}
	}
	return ""
}
