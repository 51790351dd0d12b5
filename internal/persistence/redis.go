package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/grievance-service/internal/config"
)

// Redis backs the distributed ticket lock and the analytics cache. Both are
// optional unless LOCK_BACKEND=redis, so an unreachable server is recorded
// rather than fatal.
type Redis struct {
	Client    *redis.Client
	Reachable bool
}

// NewRedis builds the client and probes it once.
func NewRedis(cfg config.RedisConfig, logger *zap.Logger) *Redis {
	opts := &redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	}
	if cfg.PoolSize > 0 {
		opts.PoolSize = cfg.PoolSize
	}
	r := &Redis{Client: redis.NewClient(opts)}

	ctx, cancel := context.WithTimeout(context.Background(), opts.DialTimeout)
	defer cancel()
	if err := r.Client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis unreachable",
			zap.String("addr", cfg.Addr), zap.Error(err))
		return r
	}
	r.Reachable = true
	logger.Info("connected to redis", zap.String("addr", cfg.Addr), zap.Int("db", cfg.DB))
	return r
}

// Close closes the client.
func (r *Redis) Close() {
	if r != nil && r.Client != nil {
		_ = r.Client.Close()
	}
}

// Ping verifies Redis connectivity for readiness checks.
func (r *Redis) Ping(ctx context.Context) error {
	if r == nil || r.Client == nil {
		return errors.New("redis client not configured")
	}
	return r.Client.Ping(ctx).Err()
}
