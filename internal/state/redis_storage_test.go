package state

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/Proton-105/gatekeeper-bot/internal/errors"
)

func TestRedisStorage_SetAndGet(t *testing.T) {
	client, mr := setupTestRedis(t)
	storage := NewRedisStorage(client, testLogger())
	ctx := context.Background()

	require.NoError(t, storage.SetSession(ctx, 123, &Session{Mode: ModeNumber}))

	result, err := storage.GetSession(ctx, 123)
	require.NoError(t, err)
	assert.Equal(t, int64(123), result.UserID)
	assert.Equal(t, ModeNumber, result.Mode)
	assert.False(t, result.UpdatedAt.IsZero())

	assert.Zero(t, mr.TTL(sessionKey(123)), "sessions must not expire")
}

func TestRedisStorage_GetNotFound(t *testing.T) {
	client, _ := setupTestRedis(t)
	storage := NewRedisStorage(client, testLogger())

	session, err := storage.GetSession(context.Background(), 999)
	assert.Nil(t, session)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestRedisStorage_ClearSession(t *testing.T) {
	client, _ := setupTestRedis(t)
	storage := NewRedisStorage(client, testLogger())
	ctx := context.Background()

	require.NoError(t, storage.SetSession(ctx, 456, &Session{Mode: ModeInsta}))
	require.NoError(t, storage.ClearSession(ctx, 456))

	session, err := storage.GetSession(ctx, 456)
	assert.Nil(t, session)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestRedisStorage_AllSessionsSkipsGarbage(t *testing.T) {
	client, mr := setupTestRedis(t)
	storage := NewRedisStorage(client, testLogger())
	ctx := context.Background()

	require.NoError(t, storage.SetSession(ctx, 1, &Session{Mode: ModeVehicle}))
	require.NoError(t, storage.SetSession(ctx, 2, &Session{Mode: ModeInsta}))
	require.NoError(t, mr.Set(sessionKey(3), "{not json"))
	require.NoError(t, mr.Set("unrelated", "x"))

	all, err := storage.AllSessions(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestRedisStorage_BackendFailure(t *testing.T) {
	client, mr := setupTestRedis(t)
	storage := NewRedisStorage(client, testLogger())
	mr.Close()

	_, err := storage.GetSession(context.Background(), 1)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrSessionNotFound)

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.KeyStorage, appErr.UserMessageKey)
}
