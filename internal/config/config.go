package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type JWTConfig struct {
	Secret        string
	Issuer        string
	Audience      string
	ExpiryMinutes int
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	TTLSecs  int
}

type RateLimitConfig struct {
	LoginLimit  int
	LoginWindow time.Duration
	APILimit    int
	APIWindow   time.Duration
}

type Config struct {
	Env        string
	Port       int
	DBURL      string
	DBMaxConns int

	JWT       JWTConfig
	SMTP      SMTPConfig
	Redis     RedisConfig
	RateLimit RateLimitConfig

	ResetBaseURL string
	CORSOrigins  []string

	AdminEmail    string
	AdminPassword string

	OTLPEndpoint string
	ServiceName  string
}

func Load() Config {
	// .env is optional; real deployments set the environment directly
	_ = godotenv.Load()

	return Config{
		Env:        getEnv("APP_ENV", "dev"),
		Port:       getEnvInt("PORT", 8080),
		DBURL:      buildDBURL(),
		DBMaxConns: getEnvInt("DB_MAX_CONNS", 5),

		JWT: JWTConfig{
			Secret:        getEnv("JWT_SECRET", "dev-secret-change-me"),
			Issuer:        getEnv("JWT_ISSUER", "taskflow"),
			Audience:      getEnv("JWT_AUDIENCE", "taskflow-clients"),
			ExpiryMinutes: getEnvInt("JWT_EXPIRY_MINUTES", 60),
		},

		SMTP: SMTPConfig{
			Host:     getEnv("SMTP_HOST", ""),
			Port:     getEnvInt("SMTP_PORT", 587),
			Username: getEnv("SMTP_USERNAME", ""),
			Password: getEnv("SMTP_PASSWORD", ""),
			From:     getEnv("SMTP_FROM", "no-reply@taskflow.local"),
		},

		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
			TTLSecs:  getEnvInt("CACHE_TTL_SECONDS", 60),
		},

		RateLimit: RateLimitConfig{
			LoginLimit:  getEnvInt("RATE_LIMIT_LOGIN", 5),
			LoginWindow: time.Duration(getEnvInt("RATE_LIMIT_LOGIN_WINDOW_SECONDS", 60)) * time.Second,
			APILimit:    getEnvInt("RATE_LIMIT_API", 100),
			APIWindow:   time.Duration(getEnvInt("RATE_LIMIT_API_WINDOW_SECONDS", 60)) * time.Second,
		},

		ResetBaseURL: getEnv("RESET_BASE_URL", "http://localhost:4200/auth/reset-password"),
		CORSOrigins:  strings.Split(getEnv("CORS_ORIGINS", "http://localhost:4200"), ","),

		AdminEmail:    getEnv("ADMIN_EMAIL", ""),
		AdminPassword: getEnv("ADMIN_PASSWORD", ""),

		OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		ServiceName:  getEnv("OTEL_SERVICE_NAME", "taskflow-api"),
	}
}

func buildDBURL() string {
	if url := os.Getenv("DATABASE_URL"); url != "" {
		return url
	}

	host := getEnv("DB_HOST", "127.0.0.1")
	port := getEnv("DB_PORT", "5432")
	user := getEnv("DB_USER", "taskflow")
	pass := getEnv("DB_PASSWORD", "taskflow")
	name := getEnv("DB_NAME", "taskflow")
	ssl := getEnv("DB_SSLMODE", "disable")

	return "postgres://" + user + ":" + pass + "@" + host + ":" + port + "/" + name + "?sslmode=" + ssl
}

func (c Config) AccessTokenTTL() time.Duration {
	return time.Duration(c.JWT.ExpiryMinutes) * time.Minute
}

func WithTimeout(duration time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), duration)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		num, err := strconv.Atoi(v)

		if err != nil {
			fmt.Println(err)
			return fallback
		}

		return num
	}
	return fallback
}
