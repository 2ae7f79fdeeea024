package mail

import "context"

type PasswordResetInput struct {
	Email     string
	ResetLink string
}

type Mailer interface {
	SendPasswordReset(ctx context.Context, input PasswordResetInput) error
}
