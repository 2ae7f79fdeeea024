package audit

import "time"

type Action string

const (
	ActionCreate       Action = "Create"
	ActionUpdate       Action = "Update"
	ActionDelete       Action = "Delete"
	ActionLoginSuccess Action = "LoginSuccess"
	ActionLoginFailed  Action = "LoginFailed"
)

const (
	EntityTask = "Task"
	EntityAuth = "Auth"
)

// Entry is one append-only audit row. OldValues/NewValues hold JSON snapshots
// of the audited fields, nil when the action has no before/after state.
type Entry struct {
	ID         int64     `json:"id"`
	UserID     *int64    `json:"userId,omitempty"`
	Action     Action    `json:"action"`
	EntityName string    `json:"entityName"`
	EntityID   int64     `json:"entityId"`
	OldValues  *string   `json:"oldValues,omitempty"`
	NewValues  *string   `json:"newValues,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}
