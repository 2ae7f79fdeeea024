package cache

import (
	"context"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

type Config struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// SafeCache is a best-effort Redis cache: every failure is logged and
// reported as a miss, never propagated. A nil *SafeCache is a valid no-op
// cache so callers do not have to branch on whether Redis is configured.
type SafeCache struct {
	redisdb *redis.Client
	ttl     time.Duration
	log     *slog.Logger
}

func New(cfg Config, log *slog.Logger) *SafeCache {
	if cfg.Addr == "" {
		return nil
	}

	if cfg.TTL <= 0 {
		cfg.TTL = 60 * time.Second
	}

	redisdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})

	return &SafeCache{
		redisdb: redisdb,
		ttl:     cfg.TTL,
		log:     log,
	}
}

func (c *SafeCache) Get(ctx context.Context, key string) (string, bool) {
	if c == nil {
		return "", false
	}

	val, err := c.redisdb.Get(ctx, key).Result()

	if err != nil {
		if err != redis.Nil {
			c.log.Warn("redis GET failed, skipping cache", "key", key, "err", err)
		}
		return "", false
	}

	return val, true
}

func (c *SafeCache) Set(ctx context.Context, key, val string) {
	if c == nil {
		return
	}

	if err := c.redisdb.Set(ctx, key, val, c.ttl).Err(); err != nil {
		c.log.Warn("redis SET failed, skipping cache", "key", key, "err", err)
	}
}

func (c *SafeCache) Delete(ctx context.Context, key string) {
	if c == nil {
		return
	}

	if err := c.redisdb.Del(ctx, key).Err(); err != nil {
		c.log.Warn("redis DEL failed, skipping cache", "key", key, "err", err)
	}
}

func (c *SafeCache) Ping(ctx context.Context) error {
	if c == nil {
		return nil
	}
	return c.redisdb.Ping(ctx).Err()
}

func (c *SafeCache) Close() error {
	if c == nil {
		return nil
	}
	return c.redisdb.Close()
}
