package user

import (
	"errors"
	"strings"
	"time"
)

const (
	RoleUser  = "User"
	RoleAdmin = "Admin"
)

type User struct {
	ID               int64      `json:"id"`
	Email            string     `json:"email"`
	PasswordHash     string     `json:"-"` // never expose hash in JSON
	Role             string     `json:"role"`
	CreatedAt        time.Time  `json:"createdAt"`
	ResetToken       *string    `json:"-"`
	ResetTokenExpiry *time.Time `json:"-"`
}

var (
	ErrNotFound          = errors.New("user not found")
	ErrEmailTaken        = errors.New("email already in use")
	ErrInvalidResetToken = errors.New("invalid or expired reset token")
)

// NormalizeEmail is the canonical form stored and looked up everywhere.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
