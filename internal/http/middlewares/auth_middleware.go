package middlewares

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/taskflowhq/taskflow/internal/auth"
)

// Keep this small interface so tests can fake it easily.
type TokenVerifier interface {
	VerifyAccessToken(token string) (*auth.Claims, error)
}

type AuthMiddleware struct {
	jwt TokenVerifier
}

func NewAuthMiddleware(jwt TokenVerifier) *AuthMiddleware {
	return &AuthMiddleware{jwt: jwt}
}

func abortUnauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"statusCode": http.StatusUnauthorized,
		"message":    message,
	})
}

func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") {
			abortUnauthorized(c, "Missing or invalid Authorization header")
			return
		}

		raw := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer"))
		if raw == "" {
			abortUnauthorized(c, "Missing or invalid access token")
			return
		}

		claims, err := m.jwt.VerifyAccessToken(raw)
		if err != nil {
			abortUnauthorized(c, "Invalid or expired access token")
			return
		}

		userID, err := claims.UserID()
		if err != nil {
			abortUnauthorized(c, "Invalid or expired access token")
			return
		}

		// Stash useful bits of identity on the context
		SetIdentity(c, userID, claims.Email, claims.Role)

		c.Next()
	}
}

// SetIdentity stashes the authenticated identity on the request context.
// RequireAuth calls it after token verification; tests use it directly.
func SetIdentity(c *gin.Context, userID int64, email, role string) {
	c.Set(ctxUserIDKey, userID)
	c.Set(ctxEmailKey, email)
	c.Set(ctxRoleKey, role)
}

// Helpers so handlers don't need to know the magic keys.

func UserIDFromContext(c *gin.Context) (int64, bool) {
	v, ok := c.Get(ctxUserIDKey)
	if !ok {
		return 0, false
	}
	id, ok := v.(int64)
	return id, ok
}

func EmailFromContext(c *gin.Context) (string, bool) {
	v, ok := c.Get(ctxEmailKey)
	if !ok {
		return "", false
	}
	email, ok := v.(string)
	return email, ok
}

func RoleFromContext(c *gin.Context) (string, bool) {
	v, ok := c.Get(ctxRoleKey)
	if !ok {
		return "", false
	}
	role, ok := v.(string)
	return role, ok
}
