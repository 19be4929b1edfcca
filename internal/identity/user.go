package identity

import (
	"time"
)

// User is a locally persisted mirror of an identity-provider subject. Users
// are created on first successful authentication and never hold a local
// password; roles are refreshed from token claims on every login.
type User struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Active    bool      `json:"active"`
	Staff     bool      `json:"staff"`
	Superuser bool      `json:"superuser"`
	RoleList  []string  `json:"roles"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SubjectID identifies the user for creator comparisons.
func (u *User) SubjectID() string {
	if u == nil {
		return ""
	}
	return u.ID
}

// IsAuthenticated reports whether this is a real, active user. A nil user is
// the anonymous subject.
func (u *User) IsAuthenticated() bool {
	return u != nil && u.Active
}

// Roles returns the last-known role set synced from the identity provider.
func (u *User) Roles() []string {
	if u == nil {
		return nil
	}
	return u.RoleList
}
