package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/taskflowhq/taskflow/internal/config"
	"github.com/taskflowhq/taskflow/internal/domain/audit"
)

type AuditReader interface {
	ListByEntity(ctx context.Context, entityName string, entityID int64) ([]audit.Entry, error)
}

// AuditHandler exposes the trail behind the admin-only routes.
type AuditHandler struct {
	trail AuditReader
	log   *slog.Logger
}

func NewAuditHandler(trail AuditReader, log *slog.Logger) *AuditHandler {
	return &AuditHandler{trail: trail, log: log}
}

// TaskTrail returns every audit entry recorded for one task, oldest first.
// Soft-deleted tasks keep their trail, so this works on them too.
func (h *AuditHandler) TaskTrail(ctx *gin.Context) {
	taskID, ok := taskIDParam(ctx)
	if !ok {
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	entries, err := h.trail.ListByEntity(cctx, audit.EntityTask, taskID)

	if err != nil {
		RespondDomainError(ctx, err)
		return
	}

	RespondSuccess(ctx, http.StatusOK, "Audit trail fetched successfully", entries)
}
