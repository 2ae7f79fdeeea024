package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/taskflowhq/taskflow/internal/domain/audit"
	"github.com/taskflowhq/taskflow/internal/domain/task"
	"github.com/taskflowhq/taskflow/internal/observability"
)

type TasksRepo struct {
	pool  *pgxpool.Pool
	audit *AuditRepo
	prom  *observability.Prom
}

func NewTasksRepo(pool *pgxpool.Pool, auditRepo *AuditRepo, prom *observability.Prom) *TasksRepo {
	return &TasksRepo{
		pool:  pool,
		audit: auditRepo,
		prom:  prom,
	}
}

func (r *TasksRepo) observe(op string, fn func() error) error {
	if r.prom != nil {
		return r.prom.ObserveDB(op, fn)
	}
	return fn()
}

func marshalSnapshot(t task.Task) (*string, error) {
	b, err := json.Marshal(task.SnapshotOf(t))
	if err != nil {
		return nil, err
	}
	s := string(b)
	return &s, nil
}

// Create inserts the task and its Create audit row in one transaction.
func (r *TasksRepo) Create(ctx context.Context, userID int64, req task.CreateTaskRequest) (t task.Task, err error) {
	now := time.Now().UTC()

	t = task.Task{
		Title:       req.Title,
		Description: req.Description,
		Status:      task.StatusPending,
		UserID:      userID,
		Version:     1,
		CreatedAt:   now,
	}

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return task.Task{}, err
	}

	defer func() { _ = tx.Rollback(ctx) }()

	err = r.observe("tasks.create.insert", func() error {
		return tx.QueryRow(ctx,
			`INSERT INTO tasks (title, description, status, user_id, version, is_deleted, created_at)
			 VALUES ($1,$2,$3,$4,$5,false,$6)
			 RETURNING id`,
			t.Title, t.Description, t.Status, t.UserID, t.Version, t.CreatedAt,
		).Scan(&t.ID)
	})

	if err != nil {
		return task.Task{}, err
	}

	newValues, err := marshalSnapshot(t)
	if err != nil {
		return task.Task{}, err
	}

	err = r.audit.CreateTx(ctx, tx, audit.Entry{
		UserID:     &userID,
		Action:     audit.ActionCreate,
		EntityName: audit.EntityTask,
		EntityID:   t.ID,
		NewValues:  newValues,
		CreatedAt:  now,
	})

	if err != nil {
		return task.Task{}, err
	}

	if err = tx.Commit(ctx); err != nil {
		return task.Task{}, err
	}

	return t, nil
}

// getActiveTx loads a non-deleted task inside tx and enforces ownership.
func (r *TasksRepo) getActiveTx(ctx context.Context, tx pgx.Tx, userID, taskID int64) (task.Task, error) {
	var t task.Task

	err := r.observe("tasks.get_active", func() error {
		return tx.QueryRow(ctx,
			`SELECT id, title, description, status, user_id, version, is_deleted, deleted_at, created_at, updated_at
			 FROM tasks
			 WHERE id = $1 AND is_deleted = false`,
			taskID,
		).Scan(&t.ID, &t.Title, &t.Description, &t.Status, &t.UserID, &t.Version, &t.IsDeleted, &t.DeletedAt, &t.CreatedAt, &t.UpdatedAt)
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return task.Task{}, task.ErrNotFound
		}
		return task.Task{}, err
	}

	if t.UserID != userID {
		return task.Task{}, task.ErrForbidden
	}

	return t, nil
}

// Update applies the new field values and appends the Update audit row with
// before/after snapshots, all in one transaction. The version guard on the
// UPDATE detects a concurrent edit between our read and our write: zero rows
// affected means someone else committed first, and the caller gets
// task.ErrConflict instead of a silent overwrite.
func (r *TasksRepo) Update(ctx context.Context, userID, taskID int64, req task.UpdateTaskRequest) (updated task.Task, err error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return task.Task{}, err
	}

	defer func() { _ = tx.Rollback(ctx) }()

	current, err := r.getActiveTx(ctx, tx, userID, taskID)
	if err != nil {
		return task.Task{}, err
	}

	oldValues, err := marshalSnapshot(current)
	if err != nil {
		return task.Task{}, err
	}

	now := time.Now().UTC()

	updated = current
	updated.Title = req.Title
	updated.Description = req.Description
	updated.Status = req.Status
	updated.UpdatedAt = &now
	updated.Version = current.Version + 1

	var tag int64

	err = r.observe("tasks.update.guarded_write", func() error {
		res, e := tx.Exec(ctx,
			`UPDATE tasks
			 SET title = $3, description = $4, status = $5, updated_at = $6, version = version + 1
			 WHERE id = $1 AND version = $2 AND is_deleted = false`,
			taskID, current.Version, updated.Title, updated.Description, updated.Status, now,
		)
		tag = res.RowsAffected()
		return e
	})

	if err != nil {
		return task.Task{}, err
	}

	if tag == 0 {
		return task.Task{}, task.ErrConflict
	}

	newValues, err := marshalSnapshot(updated)
	if err != nil {
		return task.Task{}, err
	}

	err = r.audit.CreateTx(ctx, tx, audit.Entry{
		UserID:     &userID,
		Action:     audit.ActionUpdate,
		EntityName: audit.EntityTask,
		EntityID:   taskID,
		OldValues:  oldValues,
		NewValues:  newValues,
		CreatedAt:  now,
	})

	if err != nil {
		return task.Task{}, err
	}

	if err = tx.Commit(ctx); err != nil {
		return task.Task{}, err
	}

	return updated, nil
}

// SoftDelete flips the delete flag, never removes the row. The Delete audit
// entry carries the last visible snapshot as its old values.
func (r *TasksRepo) SoftDelete(ctx context.Context, userID, taskID int64) (err error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}

	defer func() { _ = tx.Rollback(ctx) }()

	current, err := r.getActiveTx(ctx, tx, userID, taskID)
	if err != nil {
		return err
	}

	oldValues, err := marshalSnapshot(current)
	if err != nil {
		return err
	}

	now := time.Now().UTC()

	var tag int64

	err = r.observe("tasks.soft_delete", func() error {
		res, e := tx.Exec(ctx,
			`UPDATE tasks
			 SET is_deleted = true, deleted_at = $3, version = version + 1
			 WHERE id = $1 AND version = $2 AND is_deleted = false`,
			taskID, current.Version, now,
		)
		tag = res.RowsAffected()
		return e
	})

	if err != nil {
		return err
	}

	if tag == 0 {
		return task.ErrConflict
	}

	err = r.audit.CreateTx(ctx, tx, audit.Entry{
		UserID:     &userID,
		Action:     audit.ActionDelete,
		EntityName: audit.EntityTask,
		EntityID:   taskID,
		OldValues:  oldValues,
		CreatedAt:  now,
	})

	if err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// ListActive returns every non-deleted task of the owner, newest first.
func (r *TasksRepo) ListActive(ctx context.Context, userID int64) (out []task.Task, err error) {
	var rows pgx.Rows

	err = r.observe("tasks.list_active", func() error {
		rows, err = r.pool.Query(ctx,
			`SELECT id, title, description, status, user_id, version, is_deleted, deleted_at, created_at, updated_at
			 FROM tasks
			 WHERE user_id = $1 AND is_deleted = false
			 ORDER BY id DESC`,
			userID,
		)
		return err
	})

	if err != nil {
		return
	}

	defer rows.Close()

	out = make([]task.Task, 0)

	for rows.Next() {
		var t task.Task

		if scanErr := rows.Scan(&t.ID, &t.Title, &t.Description, &t.Status, &t.UserID, &t.Version, &t.IsDeleted, &t.DeletedAt, &t.CreatedAt, &t.UpdatedAt); scanErr != nil {
			err = scanErr
			return
		}
		out = append(out, t)
	}

	err = rows.Err()

	return
}

// ListPage returns one page of the owner's non-deleted tasks plus the total
// matching count. Ordering is fixed at id descending regardless of the
// requested sort field. The page and the fallback count share one
// repeatable-read snapshot, so totalCount cannot disagree with the page under
// concurrent writes.
func (r *TasksRepo) ListPage(ctx context.Context, userID int64, q task.ListQuery) (out []task.Task, total int, err error) {
	q = q.Normalize()

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly})
	if err != nil {
		return
	}

	defer func() { _ = tx.Rollback(ctx) }()

	baseQuery := `SELECT id, title, description, status, user_id, version, is_deleted, deleted_at, created_at, updated_at,
		COUNT(*) OVER() AS total
	FROM tasks
	WHERE user_id = $1 AND is_deleted = false`

	args := []interface{}{userID}
	argsPosition := 2

	if q.Status != nil {
		baseQuery += ` AND status = $2`
		args = append(args, *q.Status)
		argsPosition++
	}

	baseQuery += fmt.Sprintf(" ORDER BY id DESC LIMIT $%d OFFSET $%d", argsPosition, argsPosition+1)
	args = append(args, q.PageSize, q.Offset())

	var rows pgx.Rows

	err = r.observe("tasks.list_page", func() error {
		rows, err = tx.Query(ctx, baseQuery, args...)
		return err
	})

	if err != nil {
		return
	}

	out = make([]task.Task, 0, q.PageSize)

	for rows.Next() {
		var t task.Task
		var rowTotal int

		if scanErr := rows.Scan(&t.ID, &t.Title, &t.Description, &t.Status, &t.UserID, &t.Version, &t.IsDeleted, &t.DeletedAt, &t.CreatedAt, &t.UpdatedAt, &rowTotal); scanErr != nil {
			rows.Close()
			err = scanErr
			return
		}

		total = rowTotal
		out = append(out, t)
	}

	err = rows.Err()
	rows.Close()
	if err != nil {
		return
	}

	// an empty page past the end still needs the real total
	if len(out) == 0 {
		countQuery := `SELECT COUNT(*) FROM tasks WHERE user_id = $1 AND is_deleted = false`
		countArgs := []interface{}{userID}

		if q.Status != nil {
			countQuery += ` AND status = $2`
			countArgs = append(countArgs, *q.Status)
		}

		err = r.observe("tasks.list_page.count", func() error {
			return tx.QueryRow(ctx, countQuery, countArgs...).Scan(&total)
		})

		if err != nil {
			return
		}
	}

	err = tx.Commit(ctx)

	return
}
