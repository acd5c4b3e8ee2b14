package ratelimit

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
)

func setupTestRedis(t *testing.T) (*redis.Client, func()) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})

	cleanup := func() {
		_ = client.Close()
		mr.Close()
	}

	return client, cleanup
}

func TestRedisLimiter_AllowsWithinLimit(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	t.Cleanup(cleanup)

	limiter := NewRedisLimiter(client, testLogger())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		result, err := limiter.Check(ctx, "test:allows", 5, time.Minute)
		assert.NoError(t, err)
		assert.True(t, result.Allowed)
	}
}

func TestRedisLimiter_BlocksWhenExceeded(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	t.Cleanup(cleanup)

	limiter := NewRedisLimiter(client, testLogger())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		result, err := limiter.Check(ctx, "test:blocks", 2, time.Minute)
		if i < 2 {
			assert.NoError(t, err)
			assert.True(t, result.Allowed)
			assert.Equal(t, 1-i, result.Remaining)
		} else {
			assert.ErrorIs(t, err, ErrLimitExceeded)
			assert.False(t, result.Allowed)
		}
	}
}

func TestRedisLimiter_SlidingWindow(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	t.Cleanup(cleanup)

	limiter := NewRedisLimiter(client, testLogger())
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		result, err := limiter.Check(ctx, "test:window", 2, time.Second)
		assert.NoError(t, err)
		assert.True(t, result.Allowed)
	}

	_, err := limiter.Check(ctx, "test:window", 2, time.Second)
	assert.ErrorIs(t, err, ErrLimitExceeded)

	time.Sleep(1100 * time.Millisecond)

	result, err := limiter.Check(ctx, "test:window", 2, time.Second)
	assert.NoError(t, err)
	assert.True(t, result.Allowed)
}

func TestRedisLimiter_RejectedEventsAreNotRecorded(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	t.Cleanup(cleanup)

	limiter := NewRedisLimiter(client, testLogger())
	ctx := context.Background()

	_, err := limiter.Check(ctx, "user:7", 1, time.Minute)
	assert.NoError(t, err)
	for i := 0; i < 3; i++ {
		_, err = limiter.Check(ctx, "user:7", 1, time.Minute)
		assert.ErrorIs(t, err, ErrLimitExceeded)
	}

	count, err := client.ZCard(ctx, keyPrefix+"user:7").Result()
	assert.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestKey(t *testing.T) {
	assert.Equal(t, "user:42", Key(ScopeUser, 42))
	assert.Equal(t, "lookup:-1", Key(ScopeLookup, -1))
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestCleaner_RemovesStaleKeys(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	t.Cleanup(cleanup)

	ctx := context.Background()
	stale := float64(time.Now().Add(-time.Hour).UnixMilli())
	fresh := float64(time.Now().UnixMilli())

	assert.NoError(t, client.ZAdd(ctx, keyPrefix+"user:1", redis.Z{Score: stale, Member: "a"}).Err())
	assert.NoError(t, client.ZAdd(ctx, keyPrefix+"user:2", redis.Z{Score: fresh, Member: "b"}).Err())

	removed := NewCleaner(client, testLogger(), time.Minute, 5*time.Minute).cleanup(ctx)
	assert.Equal(t, 1, removed)

	exists, err := client.Exists(ctx, keyPrefix+"user:1", keyPrefix+"user:2").Result()
	assert.NoError(t, err)
	assert.Equal(t, int64(1), exists)
}

func TestCleaner_TrimsOnlyLimiterKeys(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	t.Cleanup(cleanup)

	ctx := context.Background()
	stale := float64(time.Now().Add(-time.Hour).UnixMilli())
	fresh := float64(time.Now().UnixMilli())
	mixed := keyPrefix + Key(ScopeLookup, 7)

	assert.NoError(t, client.ZAdd(ctx, mixed, redis.Z{Score: stale, Member: "old"}, redis.Z{Score: fresh, Member: "new"}).Err())
	assert.NoError(t, client.ZAdd(ctx, "gatekeeper:other", redis.Z{Score: stale, Member: "x"}).Err())

	removed := NewCleaner(client, testLogger(), time.Minute, 5*time.Minute).cleanup(ctx)
	assert.Zero(t, removed)

	members, err := client.ZRange(ctx, mixed, 0, -1).Result()
	assert.NoError(t, err)
	assert.Equal(t, []string{"new"}, members)

	other, err := client.ZCard(ctx, "gatekeeper:other").Result()
	assert.NoError(t, err)
	assert.Equal(t, int64(1), other)
}
