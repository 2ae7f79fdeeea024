package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/taskflowhq/taskflow/internal/domain/user"
	"github.com/taskflowhq/taskflow/internal/observability"
)

type UsersRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewUsersRepo(pool *pgxpool.Pool, prom *observability.Prom) *UsersRepo {
	return &UsersRepo{pool: pool, prom: prom}
}

func (r *UsersRepo) observe(op string, fn func() error) error {
	if r.prom != nil {
		return r.prom.ObserveDB(op, fn)
	}
	return fn()
}

func (r *UsersRepo) Create(ctx context.Context, email, passwordHash, role string) (user.User, error) {
	u := user.User{
		Email:        user.NormalizeEmail(email),
		PasswordHash: passwordHash,
		Role:         role,
		CreatedAt:    time.Now().UTC(),
	}

	err := r.observe("users.create", func() error {
		return r.pool.QueryRow(ctx,
			`INSERT INTO users (email, password_hash, role, created_at)
			 VALUES ($1,$2,$3,$4)
			 RETURNING id`,
			u.Email, u.PasswordHash, u.Role, u.CreatedAt,
		).Scan(&u.ID)
	})

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return user.User{}, user.ErrEmailTaken
		}
		return user.User{}, err
	}

	return u, nil
}

func (r *UsersRepo) GetByEmail(ctx context.Context, email string) (user.User, error) {
	var u user.User

	err := r.observe("users.get_by_email", func() error {
		return r.pool.QueryRow(ctx,
			`SELECT id, email, password_hash, role, created_at, reset_token, reset_token_expiry
			 FROM users
			 WHERE email = $1`,
			user.NormalizeEmail(email),
		).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Role, &u.CreatedAt, &u.ResetToken, &u.ResetTokenExpiry)
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, err
	}

	return u, nil
}

func (r *UsersRepo) GetByID(ctx context.Context, id int64) (user.User, error) {
	var u user.User

	err := r.observe("users.get_by_id", func() error {
		return r.pool.QueryRow(ctx,
			`SELECT id, email, password_hash, role, created_at, reset_token, reset_token_expiry
			 FROM users
			 WHERE id = $1`,
			id,
		).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Role, &u.CreatedAt, &u.ResetToken, &u.ResetTokenExpiry)
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, err
	}

	return u, nil
}

// SetResetToken stores a fresh single-use token and its expiry, replacing any
// previous one.
func (r *UsersRepo) SetResetToken(ctx context.Context, userID int64, token string, expiry time.Time) error {
	return r.observe("users.set_reset_token", func() error {
		_, err := r.pool.Exec(ctx,
			`UPDATE users SET reset_token = $2, reset_token_expiry = $3 WHERE id = $1`,
			userID, token, expiry,
		)
		return err
	})
}

func (r *UsersRepo) GetByResetToken(ctx context.Context, token string) (user.User, error) {
	var u user.User

	err := r.observe("users.get_by_reset_token", func() error {
		return r.pool.QueryRow(ctx,
			`SELECT id, email, password_hash, role, created_at, reset_token, reset_token_expiry
			 FROM users
			 WHERE reset_token = $1`,
			token,
		).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Role, &u.CreatedAt, &u.ResetToken, &u.ResetTokenExpiry)
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user.User{}, user.ErrInvalidResetToken
		}
		return user.User{}, err
	}

	return u, nil
}

// ResetPassword swaps the hash and clears the token in one statement. The
// token guard in the WHERE clause makes the token single-use even under
// concurrent submissions: the loser matches zero rows.
func (r *UsersRepo) ResetPassword(ctx context.Context, userID int64, token, newHash string) error {
	var tag pgconn.CommandTag

	err := r.observe("users.reset_password", func() error {
		var e error
		tag, e = r.pool.Exec(ctx,
			`UPDATE users
			 SET password_hash = $3, reset_token = NULL, reset_token_expiry = NULL
			 WHERE id = $1 AND reset_token = $2`,
			userID, token, newHash,
		)
		return e
	})

	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return user.ErrInvalidResetToken
	}

	return nil
}
