package ratelimiter

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLimiter(t *testing.T, buckets map[string]BucketConfig) (*RedisLimiter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewRedisLimiter(rdb, buckets), mr
}

func TestAllow_NilLimiter_FailOpen(t *testing.T) {
	t.Parallel()
	var l *RedisLimiter
	allowed, retryAfter, err := l.Allow(context.Background(), "any", 1)
	require.NoError(t, err)
	assert.True(t, allowed)
	assert.Zero(t, retryAfter)
	assert.Nil(t, NewRedisLimiter(nil, nil))
}

func TestAllow_UnknownBucket(t *testing.T) {
	t.Parallel()
	l, _ := newTestLimiter(t, nil)
	allowed, _, err := l.Allow(context.Background(), "unknown", 1)
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestAllow_ExhaustsAndRefills(t *testing.T) {
	t.Parallel()
	l, _ := newTestLimiter(t, map[string]BucketConfig{BucketChat: PerMinute(2)})
	now := time.Unix(1_700_000_000, 0)
	l.now = func() time.Time { return now }
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		allowed, retryAfter, err := l.Allow(ctx, BucketChat, 1)
		require.NoError(t, err)
		assert.True(t, allowed, "call %d", i)
		assert.Zero(t, retryAfter)
	}

	allowed, retryAfter, err := l.Allow(ctx, BucketChat, 1)
	require.NoError(t, err)
	assert.False(t, allowed)
	assert.InDelta(t, 30*time.Second, retryAfter, float64(time.Second))

	now = now.Add(31 * time.Second)
	allowed, _, err = l.Allow(ctx, BucketChat, 1)
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestAllow_RedisDown_FailOpen(t *testing.T) {
	t.Parallel()
	l, mr := newTestLimiter(t, map[string]BucketConfig{BucketEmbed: PerMinute(1)})
	mr.Close()
	allowed, _, err := l.Allow(context.Background(), BucketEmbed, 1)
	assert.Error(t, err)
	assert.True(t, allowed)
}

func TestSetBucket(t *testing.T) {
	t.Parallel()
	l, _ := newTestLimiter(t, nil)
	l.SetBucket(BucketEmbed, PerMinute(1))
	ctx := context.Background()
	allowed, _, err := l.Allow(ctx, BucketEmbed, 1)
	require.NoError(t, err)
	assert.True(t, allowed)
	allowed, _, err = l.Allow(ctx, BucketEmbed, 1)
	require.NoError(t, err)
	assert.False(t, allowed)
}

func TestPerMinute(t *testing.T) {
	t.Parallel()
	assert.Equal(t, BucketConfig{}, PerMinute(0))
	assert.Equal(t, BucketConfig{Capacity: 60, RefillRate: 1}, PerMinute(60))
}
