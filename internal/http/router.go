package http

import (
	"context"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/taskflowhq/taskflow/internal/auth"
	"github.com/taskflowhq/taskflow/internal/cache"
	"github.com/taskflowhq/taskflow/internal/config"
	"github.com/taskflowhq/taskflow/internal/domain/user"
	"github.com/taskflowhq/taskflow/internal/http/handlers"
	"github.com/taskflowhq/taskflow/internal/http/middlewares"
	"github.com/taskflowhq/taskflow/internal/mail"
	"github.com/taskflowhq/taskflow/internal/observability"
	"github.com/taskflowhq/taskflow/internal/repo/postgres"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

func NewRouter(cfg config.Config, log *slog.Logger, pool *pgxpool.Pool, taskCache *cache.SafeCache, mailer mail.Mailer, prom *observability.Prom) *gin.Engine {
	if cfg.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	// middleware

	r.Use(gin.Recovery())
	r.Use(middlewares.RequestID())
	r.Use(middlewares.RequestLogger(log))
	r.Use(otelgin.Middleware(cfg.ServiceName))

	if prom != nil {
		r.Use(prom.GinHandleMiddleware())
	}

	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddleware(cfg.CORSOrigins))
	r.Use(middlewares.RequireJSON())
	r.Use(middlewares.MaxBodyBytes(1 << 20))

	// health
	ping := func() error {
		if pool == nil {
			return nil
		}

		ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
		defer cancel()

		return pool.Ping(ctx)
	}

	h := handlers.NewHealthHandler(ping)
	r.GET("/healthz", h.Healthz)
	r.GET("/readyz", h.Readyz)

	if prom != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(prom.Registry, promhttp.HandlerOpts{})))
	}

	// wire up repositories
	auditRepo := postgres.NewAuditRepo(pool, prom)
	usersRepo := postgres.NewUsersRepo(pool, prom)
	tasksRepo := postgres.NewTasksRepo(pool, auditRepo, prom)

	jwtManager := auth.NewManager(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.Audience, cfg.AccessTokenTTL())
	authMw := middlewares.NewAuthMiddleware(jwtManager)

	loginLimiter := middlewares.NewRateLimiter(cfg.RateLimit.LoginLimit, cfg.RateLimit.LoginWindow)
	apiLimiter := middlewares.NewRateLimiter(cfg.RateLimit.APILimit, cfg.RateLimit.APIWindow)

	// wire up handlers
	authHandler := handlers.NewAuthHandler(usersRepo, usersRepo, auditRepo, jwtManager, mailer, cfg, log)
	tasksHandler := handlers.NewTasksHandler(tasksRepo, taskCache, log)
	auditHandler := handlers.NewAuditHandler(auditRepo, log)

	v1 := r.Group("/api/v1")

	authGroup := v1.Group("/auth")
	authGroup.POST("/register", authHandler.Register)
	authGroup.POST("/login", loginLimiter.RateLimiterMiddleware(middlewares.KeyByIP), authHandler.Login)
	authGroup.GET("/me", authMw.RequireAuth(), authHandler.Me)
	authGroup.POST("/forgot-password", authHandler.ForgotPassword)
	authGroup.POST("/reset-password", authHandler.ResetPassword)

	taskGroup := v1.Group("/tasks")
	taskGroup.Use(authMw.RequireAuth())
	taskGroup.Use(apiLimiter.RateLimiterMiddleware(middlewares.KeyByUserOrIP))

	taskGroup.POST("", tasksHandler.CreateTask)
	taskGroup.GET("", tasksHandler.ListTasks)
	taskGroup.GET("/my", tasksHandler.MyTasks)
	taskGroup.GET("/all", authMw.RequireRole(user.RoleAdmin), tasksHandler.AllTasks)
	taskGroup.PUT("/:id", tasksHandler.UpdateTask)
	taskGroup.DELETE("/:id", authMw.RequireRole(user.RoleAdmin), tasksHandler.DeleteTask)
	taskGroup.GET("/:id/audit", authMw.RequireRole(user.RoleAdmin), auditHandler.TaskTrail)

	return r
}
