// Package cache stores read-only projections with a TTL.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache stores JSON-encoded values.
type Cache interface {
	GetJSON(ctx context.Context, key string, dst any) (bool, error)
	SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error
}

// Redis is a Cache backed by go-redis.
type Redis struct {
	client *redis.Client
	prefix string
}

// NewRedis wraps a redis client.
func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client, prefix: "grievance:cache:"}
}

// GetJSON implements Cache. A miss returns false with no error.
func (r *Redis) GetJSON(ctx context.Context, key string, dst any) (bool, error) {
	raw, err := r.client.Get(ctx, r.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return false, err
	}
	return true, nil
}

// SetJSON implements Cache.
func (r *Redis) SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, r.prefix+key, raw, ttl).Err()
}

// Noop never stores anything.
type Noop struct{}

// GetJSON implements Cache.
func (Noop) GetJSON(context.Context, string, any) (bool, error) { return false, nil }

// SetJSON implements Cache.
func (Noop) SetJSON(context.Context, string, any, time.Duration) error { return nil }
