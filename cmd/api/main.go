package main

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/taskflowhq/taskflow/internal/cache"
	"github.com/taskflowhq/taskflow/internal/config"
	"github.com/taskflowhq/taskflow/internal/db"
	httpx "github.com/taskflowhq/taskflow/internal/http"
	"github.com/taskflowhq/taskflow/internal/mail"
	"github.com/taskflowhq/taskflow/internal/observability"
)

func main() {
	// Load the config set up
	cfg := config.Load()

	// start up the observability logger
	log := observability.NewLogger(cfg.Env)

	// tracing is optional; without an endpoint everything stays a no-op
	if cfg.OTLPEndpoint != "" {
		ctx, cancel := config.WithTimeout(5 * time.Second)

		shutdownTracer, err := observability.InitTracer(ctx, cfg.ServiceName, cfg.OTLPEndpoint)

		cancel()

		if err != nil {
			log.Error("tracer init failed", "err", err)
		} else {
			defer func() {
				ctx, cancel := config.WithTimeout(5 * time.Second)
				defer cancel()
				_ = shutdownTracer(ctx)
			}()
		}
	}

	// database pool + schema bootstrap
	pool, err := db.NewPool(cfg.DBURL, int32(cfg.DBMaxConns))

	if err != nil {
		log.Error("db connect failed", "err", err)
		os.Exit(1)
	}

	defer pool.Close()

	{
		ctx, cancel := config.WithTimeout(10 * time.Second)

		if err := db.EnsureSchema(ctx, pool); err != nil {
			cancel()
			log.Error("schema bootstrap failed", "err", err)
			os.Exit(1)
		}

		if err := db.EnsureAdminUser(ctx, pool, cfg); err != nil {
			cancel()
			log.Error("admin seed failed", "err", err)
			os.Exit(1)
		}

		cancel()
	}

	// best-effort Redis cache; nil when REDIS_ADDR is unset
	taskCache := cache.New(cache.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		TTL:      time.Duration(cfg.Redis.TTLSecs) * time.Second,
	}, log)

	defer func() { _ = taskCache.Close() }()

	// outbound mail: real SMTP when configured, log-only otherwise
	var mailer mail.Mailer

	if cfg.SMTP.Host != "" {
		mailer = mail.NewSMTPMailer(mail.SMTPConfig{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			Username: cfg.SMTP.Username,
			Password: cfg.SMTP.Password,
			From:     cfg.SMTP.From,
		})
	} else {
		mailer = mail.NewLogMailer(log)
	}

	// metrics registry
	reg := prometheus.NewRegistry()
	prom := observability.NewProm(reg)

	// set up routers with the dependencies
	router := httpx.NewRouter(cfg, log, pool, taskCache, mailer, prom)

	// server set up
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("Server starting", "port", cfg.Port, "env", cfg.Env)
		err := srv.ListenAndServe()

		if err != nil && err != http.ErrServerClosed {
			log.Error("server failed", "err", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	log.Info("server shutting down")

	shutdownCh := make(chan struct{})

	go func() {
		defer close(shutdownCh)

		ctx, cancel := config.WithTimeout(10 * time.Second)

		defer cancel()

		err := srv.Shutdown(ctx)

		if err != nil {
			log.Error("graceful shutdown failed", "err", err)

			return
		}
	}()

	select {
	case <-shutdownCh:
		log.Info("shutdown complete")

	case <-time.After(12 * time.Second):
		log.Error("shutdown timed out")
	}
}
