package persistence

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/pioneer-isp/helpdesk/internal/config"
)

const redisDialTimeout = 2 * time.Second

// ErrRedisDisabled is returned by Ping on a service running without a cache.
var ErrRedisDisabled = errors.New("redis not configured")

// Redis holds the client backing the customer lookup cache.
type Redis struct {
	client *redis.Client
}

// OpenRedis builds the cache client. It returns nil when REDIS_ADDR is empty.
// An unreachable server is logged but not fatal: lookups fall through to
// the customer table until it comes back.
func OpenRedis(ctx context.Context, cfg config.RedisConfig, logger *zap.Logger) *Redis {
	if strings.TrimSpace(cfg.Addr) == "" {
		logger.Warn("REDIS_ADDR not provided; customer cache disabled")
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: redisDialTimeout,
	})

	pingCtx, cancel := context.WithTimeout(ctx, redisDialTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.Warn("redis unreachable; customer cache degraded", zap.String("addr", cfg.Addr), zap.Error(err))
	} else {
		logger.Info("connected to redis", zap.String("addr", cfg.Addr), zap.Int("db", cfg.DB))
	}
	return &Redis{client: client}
}

// Client returns the go-redis client, or nil when r is nil.
func (r *Redis) Client() *redis.Client {
	if r == nil {
		return nil
	}
	return r.client
}

// Ping checks the server for the readiness probe.
func (r *Redis) Ping(ctx context.Context) error {
	if r == nil || r.client == nil {
		return ErrRedisDisabled
	}
	return r.client.Ping(ctx).Err()
}

// Close releases the client. Safe on nil.
func (r *Redis) Close() {
	if r != nil && r.client != nil {
		_ = r.client.Close()
	}
}
