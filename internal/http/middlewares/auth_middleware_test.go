package middlewares_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/taskflowhq/taskflow/internal/auth"
	"github.com/taskflowhq/taskflow/internal/domain/user"
	"github.com/taskflowhq/taskflow/internal/http/middlewares"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func protectedRouter(jwtManager *auth.Manager, extra ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()

	authMw := middlewares.NewAuthMiddleware(jwtManager)

	chain := []gin.HandlerFunc{authMw.RequireAuth()}
	chain = append(chain, extra...)
	chain = append(chain, func(c *gin.Context) {
		id, _ := middlewares.UserIDFromContext(c)
		email, _ := middlewares.EmailFromContext(c)

		c.JSON(http.StatusOK, gin.H{"id": id, "email": email})
	})

	r.GET("/protected", chain...)

	return r
}

func TestRequireAuth(t *testing.T) {
	jwtManager := auth.NewManager("test-secret", "taskflow", "taskflow-clients", time.Minute)

	token, err := jwtManager.GenerateAccessToken(42, "alice@example.com", user.RoleUser)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	expired, err := auth.NewManager("test-secret", "taskflow", "taskflow-clients", -time.Minute).
		GenerateAccessToken(42, "alice@example.com", user.RoleUser)
	if err != nil {
		t.Fatalf("generate expired: %v", err)
	}

	tests := []struct {
		name           string
		header         string
		wantStatusCode int
	}{
		{name: "valid token", header: "Bearer " + token, wantStatusCode: http.StatusOK},
		{name: "no header", header: "", wantStatusCode: http.StatusUnauthorized},
		{name: "wrong scheme", header: "Basic abc123", wantStatusCode: http.StatusUnauthorized},
		{name: "empty bearer", header: "Bearer ", wantStatusCode: http.StatusUnauthorized},
		{name: "garbage token", header: "Bearer not.a.jwt", wantStatusCode: http.StatusUnauthorized},
		{name: "expired token", header: "Bearer " + expired, wantStatusCode: http.StatusUnauthorized},
	}

	r := protectedRouter(jwtManager)

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}

			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != tc.wantStatusCode {
				t.Fatalf("got status %d, want %d, body=%s", w.Code, tc.wantStatusCode, w.Body.String())
			}
		})
	}
}

func TestRequireRole(t *testing.T) {
	jwtManager := auth.NewManager("test-secret", "taskflow", "taskflow-clients", time.Minute)
	authMw := middlewares.NewAuthMiddleware(jwtManager)

	tests := []struct {
		name           string
		role           string
		wantStatusCode int
	}{
		{name: "admin passes", role: user.RoleAdmin, wantStatusCode: http.StatusOK},
		{name: "plain user forbidden", role: user.RoleUser, wantStatusCode: http.StatusForbidden},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			token, err := jwtManager.GenerateAccessToken(7, "x@example.com", tc.role)
			if err != nil {
				t.Fatalf("generate: %v", err)
			}

			r := protectedRouter(jwtManager, authMw.RequireRole(user.RoleAdmin))

			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			req.Header.Set("Authorization", "Bearer "+token)

			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != tc.wantStatusCode {
				t.Fatalf("got status %d, want %d, body=%s", w.Code, tc.wantStatusCode, w.Body.String())
			}
		})
	}
}
