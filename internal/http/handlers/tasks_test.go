package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/taskflowhq/taskflow/internal/domain/task"
	"github.com/taskflowhq/taskflow/internal/http/handlers"
	"github.com/taskflowhq/taskflow/internal/http/middlewares"
)

// Make sure Gin does not spam the console during the test

func init() {
	gin.SetMode(gin.TestMode)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Fake store implementation of the handlers.TaskStore interface

type fakeTaskStore struct {
	createFn     func(ctx context.Context, userID int64, req task.CreateTaskRequest) (task.Task, error)
	listActiveFn func(ctx context.Context, userID int64) ([]task.Task, error)
	listPageFn   func(ctx context.Context, userID int64, q task.ListQuery) ([]task.Task, int, error)
	updateFn     func(ctx context.Context, userID, taskID int64, req task.UpdateTaskRequest) (task.Task, error)
	softDeleteFn func(ctx context.Context, userID, taskID int64) error
}

func (f *fakeTaskStore) Create(ctx context.Context, userID int64, req task.CreateTaskRequest) (task.Task, error) {
	if f.createFn != nil {
		return f.createFn(ctx, userID, req)
	}
	return task.Task{}, nil
}

func (f *fakeTaskStore) ListActive(ctx context.Context, userID int64) ([]task.Task, error) {
	if f.listActiveFn != nil {
		return f.listActiveFn(ctx, userID)
	}
	return []task.Task{}, nil
}

func (f *fakeTaskStore) ListPage(ctx context.Context, userID int64, q task.ListQuery) ([]task.Task, int, error) {
	if f.listPageFn != nil {
		return f.listPageFn(ctx, userID, q)
	}
	return []task.Task{}, 0, nil
}

func (f *fakeTaskStore) Update(ctx context.Context, userID, taskID int64, req task.UpdateTaskRequest) (task.Task, error) {
	if f.updateFn != nil {
		return f.updateFn(ctx, userID, taskID, req)
	}
	return task.Task{}, nil
}

func (f *fakeTaskStore) SoftDelete(ctx context.Context, userID, taskID int64) error {
	if f.softDeleteFn != nil {
		return f.softDeleteFn(ctx, userID, taskID)
	}
	return nil
}

// small helper which mounts one handler behind a fixed identity

func setupTaskRouter(method, path string, callerID int64, h gin.HandlerFunc) *gin.Engine {
	r := gin.New()

	r.Handle(method, path, func(ctx *gin.Context) {
		middlewares.SetIdentity(ctx, callerID, "caller@example.com", "User")
		h(ctx)
	})

	return r
}

type taskEnvelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type errorEnvelope struct {
	StatusCode int      `json:"statusCode"`
	Message    string   `json:"message"`
	Errors     []string `json:"errors"`
}

func TestCreateTaskHandler(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		storeSetUp     func(*fakeTaskStore)
		wantStatusCode int
		wantStatus     task.Status
	}{
		{
			name: "success defaults to pending",
			body: `{"title":"A"}`,
			storeSetUp: func(f *fakeTaskStore) {
				f.createFn = func(ctx context.Context, userID int64, req task.CreateTaskRequest) (task.Task, error) {
					return task.Task{
						ID:        1,
						Title:     req.Title,
						Status:    task.StatusPending,
						UserID:    userID,
						CreatedAt: time.Now().UTC(),
					}, nil
				}
			},
			wantStatusCode: http.StatusCreated,
			wantStatus:     task.StatusPending,
		},
		{
			name:           "missing title is a validation error",
			body:           `{"description":"no title"}`,
			wantStatusCode: http.StatusBadRequest,
		},
		{
			name: "store failure masks to 500",
			body: `{"title":"A"}`,
			storeSetUp: func(f *fakeTaskStore) {
				f.createFn = func(ctx context.Context, userID int64, req task.CreateTaskRequest) (task.Task, error) {
					return task.Task{}, errors.New("pool exhausted")
				}
			},
			wantStatusCode: http.StatusInternalServerError,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			store := &fakeTaskStore{}

			if tc.storeSetUp != nil {
				tc.storeSetUp(store)
			}

			h := handlers.NewTasksHandler(store, nil, testLogger())
			r := setupTaskRouter(http.MethodPost, "/tasks", 7, h.CreateTask)

			req := httptest.NewRequest(http.MethodPost, "/tasks", bytes.NewBufferString(tc.body))
			req.Header.Set("Content-Type", "application/json")

			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != tc.wantStatusCode {
				t.Fatalf("got status %d, want %d, body=%s", w.Code, tc.wantStatusCode, w.Body.String())
			}

			if tc.wantStatusCode == http.StatusCreated {
				var resp taskEnvelope
				if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
					t.Fatalf("unmarshal envelope: %v", err)
				}

				if !resp.Success {
					t.Fatalf("expected success envelope, body=%s", w.Body.String())
				}

				var created task.Task
				if err := json.Unmarshal(resp.Data, &created); err != nil {
					t.Fatalf("unmarshal task: %v", err)
				}

				if created.Status != tc.wantStatus {
					t.Fatalf("status: got %q want %q", created.Status, tc.wantStatus)
				}
			}

			if tc.wantStatusCode == http.StatusInternalServerError {
				var resp errorEnvelope
				if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
					t.Fatalf("unmarshal error envelope: %v", err)
				}
				if resp.Message != "Something went wrong" {
					t.Fatalf("internal errors must not leak detail, got %q", resp.Message)
				}
			}
		})
	}
}

func TestUpdateTaskHandler(t *testing.T) {
	validBody := `{"title":"B","status":"Completed"}`

	tests := []struct {
		name           string
		path           string
		body           string
		storeSetUp     func(*fakeTaskStore)
		wantStatusCode int
		wantMessage    string
	}{
		{
			name: "not found",
			path: "/tasks/99",
			body: validBody,
			storeSetUp: func(f *fakeTaskStore) {
				f.updateFn = func(ctx context.Context, userID, taskID int64, req task.UpdateTaskRequest) (task.Task, error) {
					return task.Task{}, task.ErrNotFound
				}
			},
			wantStatusCode: http.StatusNotFound,
		},
		{
			name: "non-owner is forbidden even with a valid payload",
			path: "/tasks/5",
			body: validBody,
			storeSetUp: func(f *fakeTaskStore) {
				f.updateFn = func(ctx context.Context, userID, taskID int64, req task.UpdateTaskRequest) (task.Task, error) {
					return task.Task{}, task.ErrForbidden
				}
			},
			wantStatusCode: http.StatusForbidden,
		},
		{
			name: "concurrent edit surfaces conflict",
			path: "/tasks/5",
			body: validBody,
			storeSetUp: func(f *fakeTaskStore) {
				f.updateFn = func(ctx context.Context, userID, taskID int64, req task.UpdateTaskRequest) (task.Task, error) {
					return task.Task{}, task.ErrConflict
				}
			},
			wantStatusCode: http.StatusConflict,
			wantMessage:    "This record was modified by another user.",
		},
		{
			name:           "invalid status rejected",
			path:           "/tasks/5",
			body:           `{"title":"B","status":"Done"}`,
			wantStatusCode: http.StatusBadRequest,
		},
		{
			name:           "non-numeric id rejected",
			path:           "/tasks/abc",
			body:           validBody,
			wantStatusCode: http.StatusBadRequest,
		},
		{
			name: "success",
			path: "/tasks/5",
			body: validBody,
			storeSetUp: func(f *fakeTaskStore) {
				f.updateFn = func(ctx context.Context, userID, taskID int64, req task.UpdateTaskRequest) (task.Task, error) {
					now := time.Now().UTC()
					return task.Task{
						ID:        taskID,
						Title:     req.Title,
						Status:    req.Status,
						UserID:    userID,
						UpdatedAt: &now,
					}, nil
				}
			},
			wantStatusCode: http.StatusOK,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			store := &fakeTaskStore{}

			if tc.storeSetUp != nil {
				tc.storeSetUp(store)
			}

			h := handlers.NewTasksHandler(store, nil, testLogger())
			r := setupTaskRouter(http.MethodPut, "/tasks/:id", 7, h.UpdateTask)

			req := httptest.NewRequest(http.MethodPut, tc.path, bytes.NewBufferString(tc.body))
			req.Header.Set("Content-Type", "application/json")

			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != tc.wantStatusCode {
				t.Fatalf("got status %d, want %d, body=%s", w.Code, tc.wantStatusCode, w.Body.String())
			}

			if tc.wantMessage != "" {
				var resp errorEnvelope
				if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
					t.Fatalf("unmarshal error envelope: %v", err)
				}
				if resp.Message != tc.wantMessage {
					t.Fatalf("message: got %q want %q", resp.Message, tc.wantMessage)
				}
			}

			if tc.wantStatusCode == http.StatusOK {
				var resp taskEnvelope
				if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
					t.Fatalf("unmarshal envelope: %v", err)
				}

				var updated task.Task
				if err := json.Unmarshal(resp.Data, &updated); err != nil {
					t.Fatalf("unmarshal task: %v", err)
				}

				if updated.Title != "B" || updated.Status != task.StatusCompleted {
					t.Fatalf("unexpected updated task: %+v", updated)
				}
			}
		})
	}
}

func TestListTasksHandler(t *testing.T) {
	status := task.StatusPending

	store := &fakeTaskStore{
		listPageFn: func(ctx context.Context, userID int64, q task.ListQuery) ([]task.Task, int, error) {
			if q.Status == nil || *q.Status != status {
				t.Fatalf("status filter not passed through: %+v", q)
			}

			return []task.Task{
				{ID: 3, Title: "C", Status: status, UserID: userID},
				{ID: 1, Title: "A", Status: status, UserID: userID},
			}, 12, nil
		},
	}

	h := handlers.NewTasksHandler(store, nil, testLogger())
	r := setupTaskRouter(http.MethodGet, "/tasks", 7, h.ListTasks)

	// page below 1 must come back clamped, not negative
	req := httptest.NewRequest(http.MethodGet, "/tasks?page=-2&pageSize=2&status=Pending", nil)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("got status %d, body=%s", w.Code, w.Body.String())
	}

	var resp taskEnvelope
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal envelope: %v", err)
	}

	var page task.Page
	if err := json.Unmarshal(resp.Data, &page); err != nil {
		t.Fatalf("unmarshal page: %v", err)
	}

	if page.Page != 1 {
		t.Fatalf("page not clamped: got %d", page.Page)
	}
	if page.PageSize != 2 {
		t.Fatalf("pageSize: got %d want 2", page.PageSize)
	}
	if page.TotalCount != 12 {
		t.Fatalf("totalCount: got %d want 12", page.TotalCount)
	}
	if len(page.Items) > page.PageSize {
		t.Fatalf("returned %d items for pageSize %d", len(page.Items), page.PageSize)
	}
}

func TestListTasksHandlerRejectsUnknownStatus(t *testing.T) {
	h := handlers.NewTasksHandler(&fakeTaskStore{}, nil, testLogger())
	r := setupTaskRouter(http.MethodGet, "/tasks", 7, h.ListTasks)

	req := httptest.NewRequest(http.MethodGet, "/tasks?status=Archived", nil)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("got status %d, want 400", w.Code)
	}
}

func TestMyTasksHandler(t *testing.T) {
	store := &fakeTaskStore{
		listActiveFn: func(ctx context.Context, userID int64) ([]task.Task, error) {
			if userID != 7 {
				t.Fatalf("wrong owner scope: %d", userID)
			}
			return []task.Task{{ID: 2, Title: "B", Status: task.StatusPending, UserID: userID}}, nil
		},
	}

	h := handlers.NewTasksHandler(store, nil, testLogger())
	r := setupTaskRouter(http.MethodGet, "/tasks/my", 7, h.MyTasks)

	req := httptest.NewRequest(http.MethodGet, "/tasks/my", nil)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("got status %d, body=%s", w.Code, w.Body.String())
	}

	var resp taskEnvelope
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal envelope: %v", err)
	}

	var tasks []task.Task
	if err := json.Unmarshal(resp.Data, &tasks); err != nil {
		t.Fatalf("unmarshal tasks: %v", err)
	}

	if len(tasks) != 1 || tasks[0].Title != "B" {
		t.Fatalf("unexpected tasks: %+v", tasks)
	}
}

func TestDeleteTaskHandler(t *testing.T) {
	tests := []struct {
		name           string
		path           string
		storeSetUp     func(*fakeTaskStore)
		wantStatusCode int
	}{
		{
			name: "success",
			path: "/tasks/5",
			storeSetUp: func(f *fakeTaskStore) {
				f.softDeleteFn = func(ctx context.Context, userID, taskID int64) error {
					if userID != 7 || taskID != 5 {
						t.Fatalf("wrong delete args: user=%d task=%d", userID, taskID)
					}
					return nil
				}
			},
			wantStatusCode: http.StatusOK,
		},
		{
			name: "soft-deleted task behaves as missing",
			path: "/tasks/5",
			storeSetUp: func(f *fakeTaskStore) {
				f.softDeleteFn = func(ctx context.Context, userID, taskID int64) error {
					return task.ErrNotFound
				}
			},
			wantStatusCode: http.StatusNotFound,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			store := &fakeTaskStore{}

			if tc.storeSetUp != nil {
				tc.storeSetUp(store)
			}

			h := handlers.NewTasksHandler(store, nil, testLogger())
			r := setupTaskRouter(http.MethodDelete, "/tasks/:id", 7, h.DeleteTask)

			req := httptest.NewRequest(http.MethodDelete, tc.path, nil)

			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != tc.wantStatusCode {
				t.Fatalf("got status %d, want %d, body=%s", w.Code, tc.wantStatusCode, w.Body.String())
			}
		})
	}
}
