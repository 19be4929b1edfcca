package pg

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"tradedesk.org/internal/identity"
	"tradedesk.org/internal/ids"
)

// UserStore implements identity.Store on Postgres. Roles live in a jsonb
// column and are replaced wholesale on every identity-provider sync.
type UserStore struct {
	db *sql.DB
}

var _ identity.Store = (*UserStore)(nil)

// Users returns the user store view.
func (s *Store) Users() *UserStore { return &UserStore{db: s.db} }

func (s *UserStore) Create(ctx context.Context, u *identity.User) error {
	if u == nil || u.Username == "" {
		return identity.ErrInvalidInput
	}
	if u.ID == "" {
		u.ID = ids.New()
	}
	rolesJSON, err := encodeRoles(u.RoleList)
	if err != nil {
		return err
	}
	row := s.db.QueryRowContext(ctx, `
		insert into users (id, username, email, active, staff, superuser, roles)
		values ($1, $2, $3, $4, $5, $6, $7)
		returning created_at, updated_at
	`, u.ID, u.Username, u.Email, u.Active, u.Staff, u.Superuser, rolesJSON)
	if err := row.Scan(&u.CreatedAt, &u.UpdatedAt); err != nil {
		if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrUniqueViolation {
			return identity.ErrAlreadyExists
		}
		return err
	}
	return nil
}

func (s *UserStore) FindByID(ctx context.Context, id string) (*identity.User, error) {
	return s.findBy(ctx, `id = $1`, id)
}

func (s *UserStore) FindByUsername(ctx context.Context, username string) (*identity.User, error) {
	return s.findBy(ctx, `username = $1`, username)
}

func (s *UserStore) findBy(ctx context.Context, where string, arg any) (*identity.User, error) {
	var u identity.User
	var rawRoles []byte
	row := s.db.QueryRowContext(ctx, `
		select id, username, email, active, staff, superuser, roles, created_at, updated_at
		from users
		where `+where, arg)
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.Active, &u.Staff, &u.Superuser,
		&rawRoles, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, identity.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if len(rawRoles) > 0 {
		if err := json.Unmarshal(rawRoles, &u.RoleList); err != nil {
			return nil, fmt.Errorf("decode roles: %w", err)
		}
	}
	return &u, nil
}

func (s *UserStore) Update(ctx context.Context, u *identity.User) error {
	if u == nil || u.ID == "" {
		return identity.ErrInvalidInput
	}
	rolesJSON, err := encodeRoles(u.RoleList)
	if err != nil {
		return err
	}
	row := s.db.QueryRowContext(ctx, `
		update users
		set email = $2, active = $3, staff = $4, superuser = $5, roles = $6, updated_at = now()
		where id = $1
		returning updated_at
	`, u.ID, u.Email, u.Active, u.Staff, u.Superuser, rolesJSON)
	if err := row.Scan(&u.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return identity.ErrNotFound
		}
		return err
	}
	return nil
}

func encodeRoles(roles []string) ([]byte, error) {
	if len(roles) == 0 {
		return []byte("[]"), nil
	}
	data, err := json.Marshal(roles)
	if err != nil {
		return nil, fmt.Errorf("marshal roles: %w", err)
	}
	return data, nil
}

func maybePgError(err error) (*pgconn.PgError, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr, true
	}
	return nil, false
}
