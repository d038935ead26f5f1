package data

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/target/boostd/internal/testutil"
)

func TestMemoryRateLimitStore_FixedWindow(t *testing.T) {
	store := NewMemoryRateLimitStore()
	ctx := context.Background()
	now := testutil.TestTime()
	const limit = 3

	for i := 1; i <= limit; i++ {
		d, err := store.Hit(ctx, "alice", now.Add(time.Duration(i)*time.Second), limit, time.Minute)
		require.NoError(t, err)
		assert.True(t, d.Allowed, "request %d", i)
		assert.Equal(t, i, d.Count)
	}

	d, err := store.Hit(ctx, "alice", now.Add(10*time.Second), limit, time.Minute)
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, 50*time.Second, d.RetryAfter)

	other, err := store.Hit(ctx, "bob", now.Add(10*time.Second), limit, time.Minute)
	require.NoError(t, err)
	assert.True(t, other.Allowed, "identities are independent")

	d, err = store.Hit(ctx, "alice", now.Add(61*time.Second), limit, time.Minute)
	require.NoError(t, err)
	assert.True(t, d.Allowed, "window elapsed resets the counter")
	assert.Equal(t, 1, d.Count)
}

func TestMemoryRateLimitStore_Sweep(t *testing.T) {
	store := NewMemoryRateLimitStore()
	ctx := context.Background()
	now := testutil.TestTime()

	_, _ = store.Hit(ctx, "old", now.Add(-20*time.Minute), 5, time.Minute)
	_, _ = store.Hit(ctx, "new", now, 5, time.Minute)

	removed, err := store.Sweep(ctx, now.Add(-10*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	assert.Equal(t, 1, store.Len())
}

func TestRedisRateLimitStore_FixedWindow(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	client := testutil.SetupTestRedis(t)

	store := NewRedisRateLimitStore(client, "test:ratelimit:")
	ctx := context.Background()
	now := time.Now()

	for i := 1; i <= 2; i++ {
		d, err := store.Hit(ctx, "alice", now, 2, time.Second)
		require.NoError(t, err)
		assert.True(t, d.Allowed)
		assert.Equal(t, i, d.Count)
	}

	d, err := store.Hit(ctx, "alice", now, 2, time.Second)
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Greater(t, d.RetryAfter, time.Duration(0))
	assert.LessOrEqual(t, d.RetryAfter, time.Second)

	ttl := client.PTTL(ctx, "test:ratelimit:alice").Val()
	assert.Greater(t, ttl, time.Duration(0))

	require.Eventually(t, func() bool {
		d, err := store.Hit(ctx, "alice", time.Now(), 2, time.Second)
		return err == nil && d.Allowed
	}, 3*time.Second, 100*time.Millisecond)

	removed, err := store.Sweep(ctx, now)
	require.NoError(t, err)
	assert.Zero(t, removed)

	_, err = store.Hit(ctx, "", now, 2, time.Second)
	assert.Error(t, err)
}
