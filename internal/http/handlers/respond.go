package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/taskflowhq/taskflow/internal/domain/task"
	"github.com/taskflowhq/taskflow/internal/domain/user"
)

// APIResponse is the success envelope every endpoint returns.
type APIResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data"`
}

// ErrorResponse is the failure envelope. Errors carries field-level
// validation messages and is omitted otherwise.
type ErrorResponse struct {
	StatusCode int      `json:"statusCode"`
	Message    string   `json:"message"`
	Errors     []string `json:"errors,omitempty"`
}

func RespondSuccess(ctx *gin.Context, status int, message string, data interface{}) {
	ctx.JSON(status, APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

func RespondError(ctx *gin.Context, status int, message string) {
	ctx.JSON(status, ErrorResponse{
		StatusCode: status,
		Message:    message,
	})
}

func RespondValidationError(ctx *gin.Context, messages []string) {
	ctx.JSON(http.StatusBadRequest, ErrorResponse{
		StatusCode: http.StatusBadRequest,
		Message:    "Validation failed",
		Errors:     messages,
	})
}

func RespondBadRequest(ctx *gin.Context, message string) {
	RespondError(ctx, http.StatusBadRequest, message)
}

func RespondUnauthorized(ctx *gin.Context, message string) {
	RespondError(ctx, http.StatusUnauthorized, message)
}

func RespondForbidden(ctx *gin.Context, message string) {
	RespondError(ctx, http.StatusForbidden, message)
}

func RespondNotFound(ctx *gin.Context, message string) {
	RespondError(ctx, http.StatusNotFound, message)
}

func RespondConflict(ctx *gin.Context, message string) {
	RespondError(ctx, http.StatusConflict, message)
}

func RespondInternal(ctx *gin.Context) {
	RespondError(ctx, http.StatusInternalServerError, "Something went wrong")
}

// RespondDomainError is the single place domain errors become status codes.
// Anything unclassified masks to a generic 500 with no detail leaked.
func RespondDomainError(ctx *gin.Context, err error) {
	switch {
	case errors.Is(err, task.ErrNotFound):
		RespondNotFound(ctx, "Task not found")
	case errors.Is(err, task.ErrForbidden):
		RespondForbidden(ctx, "You do not own this task")
	case errors.Is(err, task.ErrConflict):
		RespondConflict(ctx, "This record was modified by another user.")
	case errors.Is(err, user.ErrEmailTaken):
		RespondConflict(ctx, "User already exists")
	case errors.Is(err, user.ErrInvalidResetToken):
		RespondBadRequest(ctx, "Invalid or expired token")
	case errors.Is(err, user.ErrNotFound):
		RespondNotFound(ctx, "User not found")
	default:
		RespondInternal(ctx)
	}
}
