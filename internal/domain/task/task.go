package task

import (
	"errors"
	"time"
)

type Status string

const (
	StatusPending    Status = "Pending"
	StatusInProgress Status = "InProgress"
	StatusCompleted  Status = "Completed"
	StatusCancelled  Status = "Cancelled"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

type Task struct {
	ID          int64      `json:"id"`
	Title       string     `json:"title"`
	Description *string    `json:"description,omitempty"`
	Status      Status     `json:"status"`
	UserID      int64      `json:"-"`
	Version     int        `json:"-"`
	IsDeleted   bool       `json:"-"`
	DeletedAt   *time.Time `json:"-"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   *time.Time `json:"updatedAt,omitempty"`
}

var (
	ErrNotFound  = errors.New("task not found")
	ErrForbidden = errors.New("task does not belong to caller")
	ErrConflict  = errors.New("task modified concurrently")
)

type CreateTaskRequest struct {
	Title       string  `json:"title" binding:"required,min=1,max=200"`
	Description *string `json:"description" binding:"omitempty,max=1000"`
}

type UpdateTaskRequest struct {
	Title       string  `json:"title" binding:"required,min=1,max=200"`
	Description *string `json:"description" binding:"omitempty,max=1000"`
	Status      Status  `json:"status" binding:"required,oneof=Pending InProgress Completed Cancelled"`
}

// ListQuery is parsed from the paged listing endpoint. SortBy, SortOrder and
// Search are accepted on the wire but the listing keeps a fixed id-descending
// order; see the repo.
// TODO: wire Search into the list query once the search semantics are agreed.
type ListQuery struct {
	Page      int
	PageSize  int
	Status    *Status
	SortBy    string
	SortOrder string
	Search    string
}

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// Normalize clamps the page to >= 1 and the page size into [1, MaxPageSize].
func (q ListQuery) Normalize() ListQuery {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PageSize < 1 {
		q.PageSize = DefaultPageSize
	}
	if q.PageSize > MaxPageSize {
		q.PageSize = MaxPageSize
	}
	return q
}

func (q ListQuery) Offset() int {
	return (q.Page - 1) * q.PageSize
}

type Page struct {
	Page       int    `json:"page"`
	PageSize   int    `json:"pageSize"`
	TotalCount int    `json:"totalCount"`
	Items      []Task `json:"items"`
}

// Snapshot is the audited field set of a task: exactly the mutable fields the
// update endpoint accepts.
type Snapshot struct {
	Title       string  `json:"title"`
	Description *string `json:"description"`
	Status      Status  `json:"status"`
}

func SnapshotOf(t Task) Snapshot {
	return Snapshot{
		Title:       t.Title,
		Description: t.Description,
		Status:      t.Status,
	}
}
