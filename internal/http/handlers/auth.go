package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/taskflowhq/taskflow/internal/auth"
	"github.com/taskflowhq/taskflow/internal/config"
	"github.com/taskflowhq/taskflow/internal/domain/audit"
	"github.com/taskflowhq/taskflow/internal/domain/user"
	"github.com/taskflowhq/taskflow/internal/http/middlewares"
	"github.com/taskflowhq/taskflow/internal/mail"
	"github.com/taskflowhq/taskflow/internal/security"
)

const resetTokenTTL = 15 * time.Minute

// Keep these interfaces small so tests can fake them easily.
type UserReader interface {
	GetByEmail(ctx context.Context, email string) (user.User, error)
	GetByID(ctx context.Context, id int64) (user.User, error)
	GetByResetToken(ctx context.Context, token string) (user.User, error)
}

type UserWriter interface {
	Create(ctx context.Context, email, passwordHash, role string) (user.User, error)
	SetResetToken(ctx context.Context, userID int64, token string, expiry time.Time) error
	ResetPassword(ctx context.Context, userID int64, token, newHash string) error
}

type AuditWriter interface {
	Create(ctx context.Context, e audit.Entry) error
}

type AuthHandler struct {
	users      UserReader
	userWriter UserWriter
	auditLog   AuditWriter
	jwt        *auth.Manager
	mailer     mail.Mailer
	cfg        config.Config
	log        *slog.Logger
}

func NewAuthHandler(users UserReader, userWriter UserWriter, auditLog AuditWriter, jwtManager *auth.Manager, mailer mail.Mailer, cfg config.Config, log *slog.Logger) *AuthHandler {
	return &AuthHandler{
		users:      users,
		userWriter: userWriter,
		auditLog:   auditLog,
		jwt:        jwtManager,
		mailer:     mailer,
		cfg:        cfg,
		log:        log,
	}
}

type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type ResetPasswordRequest struct {
	Token       string `json:"token" binding:"required"`
	NewPassword string `json:"newPassword" binding:"required,min=6"`
}

func (h *AuthHandler) Register(ctx *gin.Context) {
	var req RegisterRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	hash, err := security.HashPassword(req.Password)

	if err != nil {
		RespondInternal(ctx)
		return
	}

	// registration never assigns anything but the default role
	_, err = h.userWriter.Create(cctx, req.Email, hash, user.RoleUser)

	if err != nil {
		RespondDomainError(ctx, err)
		return
	}

	RespondSuccess(ctx, http.StatusCreated, "User registered successfully", nil)
}

func (h *AuthHandler) Login(ctx *gin.Context) {
	var req LoginRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	foundUser, err := h.users.GetByEmail(cctx, req.Email)
	if err != nil {
		// same message as a wrong password, so callers cannot probe for accounts
		RespondUnauthorized(ctx, "Invalid email or password")
		return
	}

	if err := security.CheckPassword(foundUser.PasswordHash, req.Password); err != nil {
		h.auditLoginAttempt(cctx, foundUser, audit.ActionLoginFailed)
		RespondUnauthorized(ctx, "Invalid email or password")
		return
	}

	token, err := h.jwt.GenerateAccessToken(foundUser.ID, foundUser.Email, foundUser.Role)

	if err != nil {
		RespondInternal(ctx)
		return
	}

	h.auditLoginAttempt(cctx, foundUser, audit.ActionLoginSuccess)

	RespondSuccess(ctx, http.StatusOK, "Login successful", gin.H{"token": token})
}

// Me reads the account fresh from the store rather than echoing token claims,
// so a role change shows up without waiting for the token to expire.
func (h *AuthHandler) Me(ctx *gin.Context) {
	userID, ok := middlewares.UserIDFromContext(ctx)
	if !ok {
		RespondUnauthorized(ctx, "Missing identity context")
		return
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	foundUser, err := h.users.GetByID(cctx, userID)

	if err != nil {
		RespondDomainError(ctx, err)
		return
	}

	RespondSuccess(ctx, http.StatusOK, "User fetched successfully", foundUser)
}

func (h *AuthHandler) ForgotPassword(ctx *gin.Context) {
	var req ForgotPasswordRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(5 * time.Second)
	defer cancel()

	// the response below never varies, whether or not the account exists
	foundUser, err := h.users.GetByEmail(cctx, req.Email)

	if err == nil {
		token := uuid.NewString()
		expiry := time.Now().UTC().Add(resetTokenTTL)

		if err := h.userWriter.SetResetToken(cctx, foundUser.ID, token, expiry); err != nil {
			h.log.Error("could not persist reset token", "user_id", foundUser.ID, "err", err)
			RespondInternal(ctx)
			return
		}

		// delivery is best-effort: a provider outage must not reveal
		// whether the address exists
		mailErr := h.mailer.SendPasswordReset(cctx, mail.PasswordResetInput{
			Email:     foundUser.Email,
			ResetLink: h.cfg.ResetBaseURL + "?token=" + token,
		})

		if mailErr != nil {
			h.log.Warn("reset email delivery failed", "user_id", foundUser.ID, "err", mailErr)
		}
	}

	RespondSuccess(ctx, http.StatusOK, "If the email exists, a reset link has been sent.", nil)
}

func (h *AuthHandler) ResetPassword(ctx *gin.Context) {
	var req ResetPasswordRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	foundUser, err := h.users.GetByResetToken(cctx, req.Token)

	if err != nil {
		RespondDomainError(ctx, err)
		return
	}

	if foundUser.ResetTokenExpiry == nil || !foundUser.ResetTokenExpiry.After(time.Now().UTC()) {
		RespondBadRequest(ctx, "Token expired")
		return
	}

	hash, err := security.HashPassword(req.NewPassword)

	if err != nil {
		RespondInternal(ctx)
		return
	}

	if err := h.userWriter.ResetPassword(cctx, foundUser.ID, req.Token, hash); err != nil {
		RespondDomainError(ctx, err)
		return
	}

	RespondSuccess(ctx, http.StatusOK, "Password reset successful", nil)
}

func (h *AuthHandler) auditLoginAttempt(ctx context.Context, u user.User, action audit.Action) {
	if h.auditLog == nil {
		return
	}

	payload, err := json.Marshal(gin.H{"email": u.Email, "role": u.Role})
	if err != nil {
		return
	}

	newValues := string(payload)

	err = h.auditLog.Create(ctx, audit.Entry{
		UserID:     &u.ID,
		Action:     action,
		EntityName: audit.EntityAuth,
		EntityID:   u.ID,
		NewValues:  &newValues,
	})

	if err != nil {
		h.log.Warn("could not write login audit entry", "user_id", u.ID, "err", err)
	}
}
