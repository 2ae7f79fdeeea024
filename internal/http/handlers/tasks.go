package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/taskflowhq/taskflow/internal/cache"
	"github.com/taskflowhq/taskflow/internal/config"
	"github.com/taskflowhq/taskflow/internal/domain/task"
	"github.com/taskflowhq/taskflow/internal/http/middlewares"
)

type TaskStore interface {
	Create(ctx context.Context, userID int64, req task.CreateTaskRequest) (task.Task, error)
	ListActive(ctx context.Context, userID int64) ([]task.Task, error)
	ListPage(ctx context.Context, userID int64, q task.ListQuery) ([]task.Task, int, error)
	Update(ctx context.Context, userID, taskID int64, req task.UpdateTaskRequest) (task.Task, error)
	SoftDelete(ctx context.Context, userID, taskID int64) error
}

type TasksHandler struct {
	store TaskStore
	cache *cache.SafeCache
	log   *slog.Logger
}

func NewTasksHandler(store TaskStore, taskCache *cache.SafeCache, log *slog.Logger) *TasksHandler {
	return &TasksHandler{
		store: store,
		cache: taskCache,
		log:   log,
	}
}

func (h *TasksHandler) callerID(ctx *gin.Context) (int64, bool) {
	id, ok := middlewares.UserIDFromContext(ctx)
	if !ok {
		RespondUnauthorized(ctx, "Missing identity context")
	}
	return id, ok
}

func (h *TasksHandler) CreateTask(ctx *gin.Context) {
	userID, ok := h.callerID(ctx)
	if !ok {
		return
	}

	var req task.CreateTaskRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	created, err := h.store.Create(cctx, userID, req)

	if err != nil {
		RespondDomainError(ctx, err)
		return
	}

	h.cache.Delete(cctx, cache.UserTasksKey(userID))

	RespondSuccess(ctx, http.StatusCreated, "Task created successfully", created)
}

func (h *TasksHandler) MyTasks(ctx *gin.Context) {
	userID, ok := h.callerID(ctx)
	if !ok {
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	key := cache.UserTasksKey(userID)

	if raw, hit := h.cache.Get(cctx, key); hit {
		var tasks []task.Task

		if err := json.Unmarshal([]byte(raw), &tasks); err == nil {
			RespondSuccess(ctx, http.StatusOK, "Tasks fetched successfully", tasks)
			return
		}
		// a corrupt entry is just a miss
		h.cache.Delete(cctx, key)
	}

	tasks, err := h.store.ListActive(cctx, userID)

	if err != nil {
		RespondDomainError(ctx, err)
		return
	}

	if raw, err := json.Marshal(tasks); err == nil {
		h.cache.Set(cctx, key, string(raw))
	}

	RespondSuccess(ctx, http.StatusOK, "Tasks fetched successfully", tasks)
}

// AllTasks backs the privileged listing route. Scoping stays per-owner: an
// admin sees their own tasks here, not everyone's.
func (h *TasksHandler) AllTasks(ctx *gin.Context) {
	userID, ok := h.callerID(ctx)
	if !ok {
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	tasks, err := h.store.ListActive(cctx, userID)

	if err != nil {
		RespondDomainError(ctx, err)
		return
	}

	RespondSuccess(ctx, http.StatusOK, "All tasks fetched successfully", tasks)
}

func (h *TasksHandler) ListTasks(ctx *gin.Context) {
	userID, ok := h.callerID(ctx)
	if !ok {
		return
	}

	q, ok := parseListQuery(ctx)
	if !ok {
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	items, total, err := h.store.ListPage(cctx, userID, q)

	if err != nil {
		RespondDomainError(ctx, err)
		return
	}

	q = q.Normalize()

	RespondSuccess(ctx, http.StatusOK, "Tasks fetched successfully", task.Page{
		Page:       q.Page,
		PageSize:   q.PageSize,
		TotalCount: total,
		Items:      items,
	})
}

func (h *TasksHandler) UpdateTask(ctx *gin.Context) {
	userID, ok := h.callerID(ctx)
	if !ok {
		return
	}

	taskID, ok := taskIDParam(ctx)
	if !ok {
		return
	}

	var req task.UpdateTaskRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	updated, err := h.store.Update(cctx, userID, taskID, req)

	if err != nil {
		RespondDomainError(ctx, err)
		return
	}

	h.cache.Delete(cctx, cache.UserTasksKey(userID))

	RespondSuccess(ctx, http.StatusOK, "Task updated successfully", updated)
}

func (h *TasksHandler) DeleteTask(ctx *gin.Context) {
	userID, ok := h.callerID(ctx)
	if !ok {
		return
	}

	taskID, ok := taskIDParam(ctx)
	if !ok {
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	if err := h.store.SoftDelete(cctx, userID, taskID); err != nil {
		RespondDomainError(ctx, err)
		return
	}

	h.cache.Delete(cctx, cache.UserTasksKey(userID))

	RespondSuccess(ctx, http.StatusOK, "Task deleted successfully", nil)
}

func taskIDParam(ctx *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(ctx.Param("id"), 10, 64)

	if err != nil || id < 1 {
		RespondBadRequest(ctx, "Invalid task id")
		return 0, false
	}

	return id, true
}

func parseListQuery(ctx *gin.Context) (task.ListQuery, bool) {
	q := task.ListQuery{
		Page:      queryInt(ctx, "page", 1),
		PageSize:  queryInt(ctx, "pageSize", task.DefaultPageSize),
		SortBy:    ctx.DefaultQuery("sortBy", "CreatedAt"),
		SortOrder: ctx.DefaultQuery("sortOrder", "desc"),
		Search:    ctx.Query("search"),
	}

	if raw := ctx.Query("status"); raw != "" {
		status := task.Status(raw)

		if !status.Valid() {
			RespondBadRequest(ctx, "Invalid status filter")
			return task.ListQuery{}, false
		}

		q.Status = &status
	}

	return q, true
}

func queryInt(ctx *gin.Context, key string, fallback int) int {
	raw := ctx.Query(key)

	if raw == "" {
		return fallback
	}

	n, err := strconv.Atoi(raw)

	if err != nil {
		return fallback
	}

	return n
}
