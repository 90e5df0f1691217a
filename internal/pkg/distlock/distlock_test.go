package distlock

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	return redis.NewClient(&redis.Options{Addr: mr.Addr()})
}

func TestAcquireIsExclusive(t *testing.T) {
	client := testClient(t)
	ctx := context.Background()

	first := NewRedisLock(client, "stats_refresh", time.Minute)
	ok, err := first.Acquire(ctx)
	require.NoError(t, err)
	assert.True(t, ok)

	second := NewRedisLock(client, "stats_refresh", time.Minute)
	ok, err = second.Acquire(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestReleaseFreesTheLock(t *testing.T) {
	client := testClient(t)
	ctx := context.Background()

	first := NewRedisLock(client, "stats_refresh", time.Minute)
	ok, err := first.Acquire(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, first.Release(ctx))

	second := NewRedisLock(client, "stats_refresh", time.Minute)
	ok, err = second.Acquire(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestReleaseIgnoresForeignLock(t *testing.T) {
	client := testClient(t)
	ctx := context.Background()

	owner := NewRedisLock(client, "stats_refresh", time.Minute)
	ok, err := owner.Acquire(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	// A different instance releasing must not free the owner's lock.
	stranger := NewRedisLock(client, "stats_refresh", time.Minute)
	require.NoError(t, stranger.Release(ctx))

	third := NewRedisLock(client, "stats_refresh", time.Minute)
	ok, err = third.Acquire(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}
