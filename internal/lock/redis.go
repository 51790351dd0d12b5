package lock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0`)

// Redis is a lease-based lock shared by every replica. A holder that dies
// loses the lock when the lease expires.
type Redis struct {
	client *redis.Client
	logger *zap.Logger
	ttl    time.Duration
	retry  time.Duration
	prefix string
}

// NewRedis builds a Redis locker with the given lease.
func NewRedis(client *redis.Client, ttl time.Duration, logger *zap.Logger) *Redis {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Redis{client: client, logger: logger, ttl: ttl, retry: 25 * time.Millisecond, prefix: "grievance:lock:"}
}

// Acquire implements Locker.
func (r *Redis) Acquire(ctx context.Context, key string) (func(), error) {
	fullKey := r.prefix + key
	token := uuid.NewString()
	for {
		ok, err := r.client.SetNX(ctx, fullKey, token, r.ttl).Result()
		if err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("%w: %s", ErrLockTimeout, key)
			}
			return nil, fmt.Errorf("acquire %s: %w", key, err)
		}
		if ok {
			break
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %s", ErrLockTimeout, key)
		case <-time.After(r.retry):
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() { r.release(fullKey, token) })
	}, nil
}

// release deletes the lease only while it still carries token. A failed
// delete leaves the key until the lease expires; a zero result means the
// lease had already expired and another holder may have run concurrently.
func (r *Redis) release(fullKey, token string) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	deleted, err := releaseScript.Run(ctx, r.client, []string{fullKey}, token).Int()
	switch {
	case err != nil:
		r.logger.Warn("ticket lock release failed; lease held until expiry",
			zap.String("key", fullKey), zap.Duration("ttl", r.ttl), zap.Error(err))
	case deleted == 0:
		r.logger.Warn("ticket lock lease expired before release",
			zap.String("key", fullKey), zap.Duration("ttl", r.ttl))
	}
}
