package db

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/taskflowhq/taskflow/internal/config"
	"github.com/taskflowhq/taskflow/internal/domain/user"
	"github.com/taskflowhq/taskflow/internal/security"
)

// EnsureAdminUser seeds the one Admin account from env. Registration always
// assigns the default role, so this is the only way an admin comes to exist.
func EnsureAdminUser(ctx context.Context, pool *pgxpool.Pool, cfg config.Config) error {
	if cfg.AdminEmail == "" || cfg.AdminPassword == "" {
		return nil
	}

	email := user.NormalizeEmail(cfg.AdminEmail)

	// check if the user exists
	var dummy int64

	err := pool.QueryRow(ctx, `SELECT id FROM users WHERE email = $1`, email).Scan(&dummy)

	if err == nil {
		return nil
	}

	if !errors.Is(err, pgx.ErrNoRows) {
		return err
	}

	hash, err := security.HashPassword(cfg.AdminPassword)

	if err != nil {
		return err
	}

	_, err = pool.Exec(ctx,
		`INSERT INTO users (email, password_hash, role, created_at)
		 VALUES ($1,$2,$3,$4)`,
		email, hash, user.RoleAdmin, time.Now().UTC(),
	)

	return err
}
