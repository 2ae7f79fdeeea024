package mail

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
)

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SMTPMailer delivers over plain SMTP with AUTH. Callers treat delivery as
// best-effort: the password-reset flow logs a failure and moves on.
type SMTPMailer struct {
	cfg SMTPConfig
}

func NewSMTPMailer(cfg SMTPConfig) *SMTPMailer {
	return &SMTPMailer{cfg: cfg}
}

func (m *SMTPMailer) SendPasswordReset(ctx context.Context, in PasswordResetInput) error {
	addr := fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port)
	auth := smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)

	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", m.cfg.From)
	fmt.Fprintf(&b, "To: %s\r\n", in.Email)
	b.WriteString("Subject: Reset Your Password\r\n")
	b.WriteString("\r\n")
	fmt.Fprintf(&b, "Click the link below to reset your password:\r\n\r\n%s\r\n", in.ResetLink)

	// net/smtp has no context hook; honour cancellation before dialing.
	if err := ctx.Err(); err != nil {
		return err
	}

	return smtp.SendMail(addr, auth, m.cfg.From, []string{in.Email}, []byte(b.String()))
}
