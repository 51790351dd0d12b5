package lock

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func unreachableClient(t *testing.T) *redis.Client {
	t.Helper()
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestRedisReleaseFailureIsLogged(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	r := NewRedis(unreachableClient(t), time.Minute, zap.New(core))

	r.release("grievance:lock:ticket-1", "token")

	entries := logs.FilterMessage("ticket lock release failed; lease held until expiry").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "grievance:lock:ticket-1", entries[0].ContextMap()["key"])
}

func TestRedisAcquireUnreachableFails(t *testing.T) {
	r := NewRedis(unreachableClient(t), time.Minute, nil)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	release, err := r.Acquire(ctx, "ticket-1")
	assert.Error(t, err)
	assert.Nil(t, release)
}
