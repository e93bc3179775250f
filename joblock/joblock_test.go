package joblock

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalExclusive(t *testing.T) {
	l := NewLocal()
	ctx := context.Background()

	release, ok, err := l.TryLock(ctx, "job", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = l.TryLock(ctx, "job", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok, "second holder must be refused")

	_, ok, err = l.TryLock(ctx, "other", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok, "keys are independent")

	release()
	_, ok, err = l.TryLock(ctx, "job", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok, "released lock can be taken again")
}

func TestLocalExpiry(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	l := NewLocal()
	l.now = func() time.Time { return now }
	ctx := context.Background()

	staleRelease, ok, _ := l.TryLock(ctx, "job", time.Minute)
	require.True(t, ok)

	now = now.Add(2 * time.Minute)
	_, ok, _ = l.TryLock(ctx, "job", time.Minute)
	require.True(t, ok, "expired lock is taken over")

	// The stale holder must not free the new holder's lock.
	staleRelease()
	_, ok, _ = l.TryLock(ctx, "job", time.Minute)
	assert.False(t, ok)
}

func TestRedisLock(t *testing.T) {
	addr := os.Getenv("ECONOMY_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("ECONOMY_TEST_REDIS_ADDR not set")
	}

	client := redis.NewClient(&redis.Options{Addr: addr})
	defer client.Close()

	ctx := context.Background()
	l := NewRedis(client, WithPrefix("economy-test:"))
	require.NoError(t, l.Ping(ctx))

	release, ok, err := l.TryLock(ctx, "job", 10*time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = l.TryLock(ctx, "job", 10*time.Second)
	require.NoError(t, err)
	assert.False(t, ok)

	release()
	release2, ok, err := l.TryLock(ctx, "job", 10*time.Second)
	require.NoError(t, err)
	assert.True(t, ok)
	release2()
}
