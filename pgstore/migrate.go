package pgstore

import (
	"context"
	"fmt"
)

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id              BIGSERIAL PRIMARY KEY,
		username        TEXT NOT NULL UNIQUE,
		password_hash   TEXT NOT NULL,
		locked          BOOLEAN NOT NULL DEFAULT FALSE,
		login_incorrect INTEGER NOT NULL DEFAULT 0,
		last_failure_at TIMESTAMPTZ
	)`,
	`CREATE TABLE IF NOT EXISTS roles (
		id   BIGSERIAL PRIMARY KEY,
		name TEXT NOT NULL UNIQUE
	)`,
	`CREATE TABLE IF NOT EXISTS apis (
		id     BIGSERIAL PRIMARY KEY,
		url    TEXT NOT NULL,
		method TEXT NOT NULL,
		CONSTRAINT uix_url_method UNIQUE (url, method)
	)`,
	`CREATE TABLE IF NOT EXISTS users_roles (
		user_id BIGINT NOT NULL REFERENCES users (id) ON DELETE CASCADE,
		role_id BIGINT NOT NULL REFERENCES roles (id) ON DELETE CASCADE,
		PRIMARY KEY (user_id, role_id)
	)`,
	`CREATE TABLE IF NOT EXISTS roles_apis (
		role_id BIGINT NOT NULL REFERENCES roles (id) ON DELETE CASCADE,
		api_id  BIGINT NOT NULL REFERENCES apis (id) ON DELETE CASCADE,
		PRIMARY KEY (role_id, api_id)
	)`,
}

// Migrate creates the schema if it does not exist. Statements are idempotent;
// running Migrate on every startup is safe.
func (s *Store) Migrate(ctx context.Context) error {
	for _, stmt := range migrations {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
