package store

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Proton-105/gatekeeper-bot/internal/domain"
	apperrors "github.com/Proton-105/gatekeeper-bot/internal/errors"
)

func setupRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewRedisStore(client, testLogger()), mr
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRedisStore_GetUnknownReturnsEmpty(t *testing.T) {
	s, _ := setupRedisStore(t)

	record, err := s.Get(context.Background(), "999")
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.True(t, record.IsEmpty())
}

func TestRedisStore_PutOverwrites(t *testing.T) {
	s, _ := setupRedisStore(t)
	ctx := context.Background()

	start := time.Unix(1_700_000_000, 0).UTC()
	premium := start.Add(30 * 24 * time.Hour)

	require.NoError(t, s.Put(ctx, "1", &domain.UserRecord{StartTime: start, PremiumUntil: premium}))
	require.NoError(t, s.Put(ctx, "1", &domain.UserRecord{StartTime: start}))

	record, err := s.Get(ctx, "1")
	require.NoError(t, err)
	assert.True(t, record.StartTime.Equal(start))
	assert.True(t, record.PremiumUntil.IsZero(), "put must replace, not merge")
}

func TestRedisStore_EpochStartIsNotEmpty(t *testing.T) {
	s, _ := setupRedisStore(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "7", &domain.UserRecord{StartTime: time.Unix(0, 0)}))

	record, err := s.Get(ctx, "7")
	require.NoError(t, err)
	assert.True(t, record.HasStarted())
	assert.Equal(t, int64(0), record.StartTime.Unix())
}

func TestRedisStore_All(t *testing.T) {
	s, _ := setupRedisStore(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "1", &domain.UserRecord{StartTime: time.Unix(10, 0)}))
	require.NoError(t, s.Put(ctx, "2", &domain.UserRecord{}))
	require.NoError(t, s.SetMaintenance(ctx, true))

	all, err := s.All(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2, "flags must not appear among users")
	assert.True(t, all["2"].IsEmpty())
	assert.False(t, all["1"].IsEmpty())
}

func TestRedisStore_Maintenance(t *testing.T) {
	s, _ := setupRedisStore(t)
	ctx := context.Background()

	enabled, err := s.Maintenance(ctx)
	require.NoError(t, err)
	assert.False(t, enabled)

	require.NoError(t, s.SetMaintenance(ctx, true))
	enabled, err = s.Maintenance(ctx)
	require.NoError(t, err)
	assert.True(t, enabled)

	require.NoError(t, s.SetMaintenance(ctx, false))
	enabled, err = s.Maintenance(ctx)
	require.NoError(t, err)
	assert.False(t, enabled)
}

func TestRedisStore_UserNamedLikeFlagDoesNotCollide(t *testing.T) {
	s, _ := setupRedisStore(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, maintenanceFlag, &domain.UserRecord{StartTime: time.Unix(5, 0)}))

	enabled, err := s.Maintenance(ctx)
	require.NoError(t, err)
	assert.False(t, enabled)
}

func TestRedisStore_BackendFailure(t *testing.T) {
	s, mr := setupRedisStore(t)
	mr.Close()

	_, err := s.Get(context.Background(), "1")
	assert.Error(t, err)
}

func TestParseUserID(t *testing.T) {
	testCases := []struct {
		raw     string
		want    int64
		wantErr bool
	}{
		{raw: "7072631107", want: 7072631107},
		{raw: "0", wantErr: true},
		{raw: "-5", wantErr: true},
		{raw: "abc", wantErr: true},
		{raw: "", wantErr: true},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.raw, func(t *testing.T) {
			got, err := ParseUserID(tc.raw)
			if tc.wantErr {
				assert.ErrorIs(t, err, ErrInvalidUserID)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestRedisStore_BackendFailuresAreStorageErrors(t *testing.T) {
	s, mr := setupRedisStore(t)
	mr.Close()
	ctx := context.Background()

	_, getErr := s.Get(ctx, "1")
	_, allErr := s.All(ctx)
	_, flagErr := s.Maintenance(ctx)

	for _, err := range []error{
		getErr,
		s.Put(ctx, "1", &domain.UserRecord{}),
		allErr,
		flagErr,
		s.SetMaintenance(ctx, true),
	} {
		var appErr *apperrors.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, apperrors.KeyStorage, appErr.UserMessageKey)
	}
}
