package idempotency

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return client, mr
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestManager_RunsOnce(t *testing.T) {
	client, mr := setupTestRedis(t)
	m := NewManager(NewRedisStore(client, testLogger()), testLogger())
	ctx := context.Background()
	key := GenerateKey("update", 42)

	calls := 0
	op := func(context.Context) error {
		calls++
		return nil
	}

	first, err := m.Execute(ctx, key, time.Hour, op)
	require.NoError(t, err)
	assert.False(t, first.FromCache)

	second, err := m.Execute(ctx, key, time.Hour, op)
	require.NoError(t, err)
	assert.True(t, second.FromCache)
	assert.WithinDuration(t, first.CompletedAt, second.CompletedAt, time.Millisecond)

	assert.Equal(t, 1, calls)
	assert.False(t, mr.Exists(lockKey(key)))
	assert.Equal(t, time.Hour, mr.TTL(recordKey(key)))
}

func TestManager_FailureIsRetried(t *testing.T) {
	client, _ := setupTestRedis(t)
	m := NewManager(NewRedisStore(client, testLogger()), testLogger())
	ctx := context.Background()

	boom := errors.New("boom")
	_, err := m.Execute(ctx, "k", time.Hour, func(context.Context) error { return boom })
	assert.ErrorIs(t, err, boom)

	ran := false
	res, err := m.Execute(ctx, "k", time.Hour, func(context.Context) error {
		ran = true
		return nil
	})
	require.NoError(t, err)
	assert.True(t, ran)
	assert.False(t, res.FromCache)
}

func TestManager_InProgress(t *testing.T) {
	client, _ := setupTestRedis(t)
	store := NewRedisStore(client, testLogger())
	m := NewManager(store, testLogger())
	ctx := context.Background()

	locked, err := store.Lock(ctx, "busy", time.Minute)
	require.NoError(t, err)
	require.True(t, locked)

	_, err = m.Execute(ctx, "busy", time.Hour, func(context.Context) error {
		t.Fatal("operation must not run while locked")
		return nil
	})
	assert.ErrorIs(t, err, ErrRequestInProgress)
}

func TestManager_StoreError(t *testing.T) {
	client, mr := setupTestRedis(t)
	m := NewManager(NewRedisStore(client, testLogger()), testLogger())
	mr.Close()

	_, err := m.Execute(context.Background(), "k", time.Hour, func(context.Context) error { return nil })
	assert.Error(t, err)
}

func TestCleaner_RemovesKeysWithoutExpiry(t *testing.T) {
	client, mr := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, client.HSet(ctx, recordKey("orphan"), "status", StatusCompleted).Err())
	require.NoError(t, client.HSet(ctx, recordKey("long"), "status", StatusCompleted).Err())
	require.NoError(t, client.Expire(ctx, recordKey("long"), 72*time.Hour).Err())
	require.NoError(t, client.HSet(ctx, recordKey("fresh"), "status", StatusCompleted).Err())
	require.NoError(t, client.Expire(ctx, recordKey("fresh"), time.Hour).Err())
	require.NoError(t, client.Set(ctx, "gatekeeper:session:1", "{}", 0).Err())

	removed := NewCleaner(client, testLogger(), time.Minute, 25*time.Hour).cleanup(ctx)
	assert.Equal(t, 2, removed)

	assert.False(t, mr.Exists(recordKey("orphan")))
	assert.False(t, mr.Exists(recordKey("long")))
	assert.True(t, mr.Exists(recordKey("fresh")))
	assert.True(t, mr.Exists("gatekeeper:session:1"))
}

func TestGenerateKey(t *testing.T) {
	assert.Equal(t, GenerateKey("update", 1), GenerateKey("update", 1))
	assert.NotEqual(t, GenerateKey("update", 1), GenerateKey("update", 2))
	assert.NotEqual(t, GenerateKey("a:b"), GenerateKey("a", "b"))
	assert.Len(t, GenerateKey("x"), 64)
}
