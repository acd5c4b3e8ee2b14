package user

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
	"github.com/Proton-105/gatekeeper-bot/internal/store"
)

func TestSummarize(t *testing.T) {
	now := time.Unix(10_000, 0)

	records := map[string]*domain.UserRecord{
		"1": {},
		"2": {StartTime: time.Unix(0, 0)},
		"3": {StartTime: time.Unix(5, 0), PremiumUntil: now.Add(time.Hour)},
		"4": {PremiumUntil: now},
		"5": {},
	}

	stats := Summarize(records, "03.07.2025", now)
	assert.Equal(t, Stats{CreatedDate: "03.07.2025", Total: 5, Active: 3, Deleted: 2, Premium: 1}, stats)
}

func TestSummarize_Empty(t *testing.T) {
	assert.Equal(t, Stats{CreatedDate: "x"}, Summarize(nil, "x", time.Now()))
}

func TestService_Stats(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	st := store.NewRedisStore(client, log)
	ctx := context.Background()

	require.NoError(t, st.Put(ctx, "1", &domain.UserRecord{StartTime: time.Now()}))
	require.NoError(t, st.Put(ctx, "2", &domain.UserRecord{}))
	require.NoError(t, st.SetMaintenance(ctx, true))

	stats, err := NewService(st, "01.01.2025", log).Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Total)
	assert.Equal(t, 1, stats.Active)
	assert.Equal(t, 1, stats.Deleted)

	mr.Close()
	_, err = NewService(st, "", log).Stats(ctx)
	assert.Error(t, err)
}
