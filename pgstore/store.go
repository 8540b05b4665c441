package pgstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/eauth-dev/eauth"
	"github.com/eauth-dev/eauth/permission"
)

// Store implements eauth.UserStore and eauth.RoleApiStore on a pgx pool.
type Store struct {
	pool *pgxpool.Pool
}

// New wraps an existing pool. The pool stays owned by the caller.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

const identityColumns = `id, username, password_hash, locked, login_incorrect, last_failure_at`

func scanIdentity(row pgx.Row) (eauth.Identity, error) {
	var (
		identity      eauth.Identity
		lastFailureAt *time.Time
	)
	err := row.Scan(
		&identity.ID,
		&identity.Username,
		&identity.PasswordHash,
		&identity.Locked,
		&identity.LoginFailureCount,
		&lastFailureAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return eauth.Identity{}, eauth.ErrUserNotFound
		}
		return eauth.Identity{}, fmt.Errorf("scan user: %w", err)
	}
	if lastFailureAt != nil {
		identity.LastFailureAt = *lastFailureAt
	}
	return identity, nil
}

// GetByID loads one identity by primary key.
func (s *Store) GetByID(ctx context.Context, id int64) (eauth.Identity, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+identityColumns+` FROM users WHERE id = $1`, id)
	return scanIdentity(row)
}

// GetByUsername loads one identity by its unique username.
func (s *Store) GetByUsername(ctx context.Context, username string) (eauth.Identity, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+identityColumns+` FROM users WHERE username = $1`, username)
	return scanIdentity(row)
}

// UpdateFailureCounter writes the failure counter pair in one statement, so
// concurrent updates cannot interleave between the two columns.
func (s *Store) UpdateFailureCounter(ctx context.Context, id int64, count int, lastFailureAt time.Time) error {
	var at *time.Time
	if !lastFailureAt.IsZero() {
		at = &lastFailureAt
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE users SET login_incorrect = $2, last_failure_at = $3 WHERE id = $1`,
		id, count, at)
	if err != nil {
		return fmt.Errorf("update failure counter: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return eauth.ErrUserNotFound
	}
	return nil
}

// SetLocked sets or clears the administrative locked flag.
func (s *Store) SetLocked(ctx context.Context, id int64, locked bool) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE users SET locked = $2 WHERE id = $1`, id, locked)
	if err != nil {
		return fmt.Errorf("set locked: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return eauth.ErrUserNotFound
	}
	return nil
}

// AllApis returns every protected endpoint row.
func (s *Store) AllApis(ctx context.Context) ([]permission.Api, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, url, method FROM apis ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("load apis: %w", err)
	}
	defer rows.Close()

	var apis []permission.Api
	for rows.Next() {
		var api permission.Api
		if err := rows.Scan(&api.ID, &api.URL, &api.Method); err != nil {
			return nil, fmt.Errorf("scan api: %w", err)
		}
		apis = append(apis, api)
	}
	return apis, rows.Err()
}

// AllRoles returns every role row.
func (s *Store) AllRoles(ctx context.Context) ([]permission.Role, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, name FROM roles ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("load roles: %w", err)
	}
	defer rows.Close()

	var roles []permission.Role
	for rows.Next() {
		var role permission.Role
		if err := rows.Scan(&role.ID, &role.Name); err != nil {
			return nil, fmt.Errorf("scan role: %w", err)
		}
		roles = append(roles, role)
	}
	return roles, rows.Err()
}

// ApisOfRole returns the api ids granted to one role.
func (s *Store) ApisOfRole(ctx context.Context, roleID int64) ([]int64, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT api_id FROM roles_apis WHERE role_id = $1 ORDER BY api_id`, roleID)
	if err != nil {
		return nil, fmt.Errorf("load apis of role: %w", err)
	}
	defer rows.Close()
	return scanIDs(rows)
}

// RolesOfUser returns the role ids assigned to one user.
func (s *Store) RolesOfUser(ctx context.Context, userID int64) ([]int64, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT role_id FROM users_roles WHERE user_id = $1 ORDER BY role_id`, userID)
	if err != nil {
		return nil, fmt.Errorf("load roles of user: %w", err)
	}
	defer rows.Close()
	return scanIDs(rows)
}

func scanIDs(rows pgx.Rows) ([]int64, error) {
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
