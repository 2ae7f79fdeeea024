package mail

import (
	"context"
	"log/slog"
)

// LogMailer stands in for a real provider when SMTP is not configured.
type LogMailer struct {
	log *slog.Logger
}

func NewLogMailer(log *slog.Logger) *LogMailer {
	return &LogMailer{log: log}
}

func (m *LogMailer) SendPasswordReset(ctx context.Context, in PasswordResetInput) error {
	m.log.Info("mail.password_reset", "email", in.Email, "reset_link", in.ResetLink)
	return nil
}
