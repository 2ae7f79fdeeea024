package handlers_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/taskflowhq/taskflow/internal/domain/audit"
	"github.com/taskflowhq/taskflow/internal/http/handlers"
)

type fakeAuditTrail struct {
	listFn func(ctx context.Context, entityName string, entityID int64) ([]audit.Entry, error)
}

func (f *fakeAuditTrail) ListByEntity(ctx context.Context, entityName string, entityID int64) ([]audit.Entry, error) {
	return f.listFn(ctx, entityName, entityID)
}

func TestTaskTrail(t *testing.T) {
	userID := int64(7)
	oldValues := `{"title":"A","description":null,"status":"Pending"}`
	newValues := `{"title":"B","description":null,"status":"Completed"}`

	trail := &fakeAuditTrail{
		listFn: func(ctx context.Context, entityName string, entityID int64) ([]audit.Entry, error) {
			if entityName != audit.EntityTask {
				t.Fatalf("entity name: got %q", entityName)
			}
			if entityID != 5 {
				t.Fatalf("entity id: got %d", entityID)
			}

			return []audit.Entry{
				{ID: 1, UserID: &userID, Action: audit.ActionCreate, EntityName: entityName, EntityID: entityID, NewValues: &oldValues, CreatedAt: time.Now().UTC()},
				{ID: 2, UserID: &userID, Action: audit.ActionUpdate, EntityName: entityName, EntityID: entityID, OldValues: &oldValues, NewValues: &newValues, CreatedAt: time.Now().UTC()},
			}, nil
		},
	}

	h := handlers.NewAuditHandler(trail, testLogger())
	r := setupTaskRouter(http.MethodGet, "/tasks/:id/audit", 7, h.TaskTrail)

	req := httptest.NewRequest(http.MethodGet, "/tasks/5/audit", nil)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("got status %d, body=%s", w.Code, w.Body.String())
	}

	var resp struct {
		Data []audit.Entry `json:"data"`
	}

	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal envelope: %v", err)
	}

	if len(resp.Data) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(resp.Data))
	}
	if resp.Data[0].Action != audit.ActionCreate || resp.Data[1].Action != audit.ActionUpdate {
		t.Fatalf("trail out of order: %+v", resp.Data)
	}
	if resp.Data[1].OldValues == nil || *resp.Data[1].OldValues != oldValues {
		t.Fatalf("update entry missing its before snapshot")
	}
}

func TestTaskTrailRejectsBadID(t *testing.T) {
	h := handlers.NewAuditHandler(&fakeAuditTrail{}, testLogger())
	r := setupTaskRouter(http.MethodGet, "/tasks/:id/audit", 7, h.TaskTrail)

	req := httptest.NewRequest(http.MethodGet, "/tasks/zero/audit", nil)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("got status %d, want 400", w.Code)
	}
}
