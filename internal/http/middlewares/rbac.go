package middlewares

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (m *AuthMiddleware) RequireRole(required string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role, ok := RoleFromContext(c)

		if !ok || role == "" {
			abortUnauthorized(c, "Missing identity context")
			return
		}
		if role != required {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"statusCode": http.StatusForbidden,
				"message":    "Admin role required",
			})
			return
		}
		c.Next()
	}
}
