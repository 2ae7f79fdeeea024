package db

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// EnsureSchema applies the idempotent bootstrap DDL. Statements are ordered
// so foreign keys resolve on a clean database.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id BIGSERIAL PRIMARY KEY,
			email TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			role TEXT NOT NULL DEFAULT 'User',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			reset_token TEXT,
			reset_token_expiry TIMESTAMPTZ
		)`,
		`CREATE TABLE IF NOT EXISTS tasks (
			id BIGSERIAL PRIMARY KEY,
			title TEXT NOT NULL,
			description TEXT,
			status TEXT NOT NULL DEFAULT 'Pending',
			user_id BIGINT NOT NULL REFERENCES users(id),
			version INT NOT NULL DEFAULT 1,
			is_deleted BOOLEAN NOT NULL DEFAULT FALSE,
			deleted_at TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ
		)`,
		`CREATE INDEX IF NOT EXISTS tasks_owner_active_idx
			ON tasks (user_id, id DESC) WHERE is_deleted = FALSE`,
		`CREATE TABLE IF NOT EXISTS audit_logs (
			id BIGSERIAL PRIMARY KEY,
			user_id BIGINT,
			action TEXT NOT NULL,
			entity_name TEXT NOT NULL,
			entity_id BIGINT NOT NULL,
			old_values TEXT,
			new_values TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS audit_logs_entity_idx
			ON audit_logs (entity_name, entity_id)`,
		`CREATE INDEX IF NOT EXISTS users_reset_token_idx
			ON users (reset_token) WHERE reset_token IS NOT NULL`,
	}

	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return err
		}
	}

	return nil
}
