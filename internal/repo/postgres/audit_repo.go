package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/taskflowhq/taskflow/internal/domain/audit"
	"github.com/taskflowhq/taskflow/internal/observability"
)

type AuditRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewAuditRepo(pool *pgxpool.Pool, prom *observability.Prom) *AuditRepo {
	return &AuditRepo{pool: pool, prom: prom}
}

func (r *AuditRepo) observe(op string, fn func() error) error {
	if r.prom != nil {
		return r.prom.ObserveDB(op, fn)
	}
	return fn()
}

// CreateTx appends an entry inside the caller's transaction so the audit row
// commits or rolls back together with the mutation it documents.
func (r *AuditRepo) CreateTx(ctx context.Context, tx pgx.Tx, e audit.Entry) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}

	return r.observe("audit.create_tx", func() error {
		_, err := tx.Exec(ctx,
			`INSERT INTO audit_logs (user_id, action, entity_name, entity_id, old_values, new_values, created_at)
			 VALUES ($1,$2,$3,$4,$5,$6,$7)`,
			e.UserID, e.Action, e.EntityName, e.EntityID, e.OldValues, e.NewValues, e.CreatedAt,
		)
		return err
	})
}

// Create appends an entry outside any transaction, for audit-only events such
// as successful logins.
func (r *AuditRepo) Create(ctx context.Context, e audit.Entry) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}

	return r.observe("audit.create", func() error {
		_, err := r.pool.Exec(ctx,
			`INSERT INTO audit_logs (user_id, action, entity_name, entity_id, old_values, new_values, created_at)
			 VALUES ($1,$2,$3,$4,$5,$6,$7)`,
			e.UserID, e.Action, e.EntityName, e.EntityID, e.OldValues, e.NewValues, e.CreatedAt,
		)
		return err
	})
}

// ListByEntity returns the trail for one entity, oldest first.
func (r *AuditRepo) ListByEntity(ctx context.Context, entityName string, entityID int64) (entries []audit.Entry, err error) {
	var rows pgx.Rows

	err = r.observe("audit.list_by_entity", func() error {
		rows, err = r.pool.Query(ctx,
			`SELECT id, user_id, action, entity_name, entity_id, old_values, new_values, created_at
			 FROM audit_logs
			 WHERE entity_name = $1 AND entity_id = $2
			 ORDER BY created_at ASC, id ASC`,
			entityName, entityID,
		)
		return err
	})

	if err != nil {
		return
	}

	defer rows.Close()

	entries = make([]audit.Entry, 0)

	for rows.Next() {
		var e audit.Entry

		if scanErr := rows.Scan(&e.ID, &e.UserID, &e.Action, &e.EntityName, &e.EntityID, &e.OldValues, &e.NewValues, &e.CreatedAt); scanErr != nil {
			err = scanErr
			return
		}
		entries = append(entries, e)
	}

	err = rows.Err()

	return
}
