package metrics

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Proton-105/gatekeeper-bot/internal/state"
	"github.com/Proton-105/gatekeeper-bot/internal/user"
)

type stubStats struct {
	stats user.Stats
	err   error
}

func (s stubStats) Stats(context.Context) (user.Stats, error) {
	return s.stats, s.err
}

func TestCollector_Collect(t *testing.T) {
	ctx := context.Background()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	sessions := state.NewSessions(state.NewMemoryStorage(), log, nil)
	require.NoError(t, sessions.Select(ctx, 1, state.ModeVehicle))
	require.NoError(t, sessions.Select(ctx, 2, state.ModeVehicle))
	require.NoError(t, sessions.Select(ctx, 3, state.ModeInsta))

	c := NewCollector(stubStats{stats: user.Stats{Total: 7, Active: 5, Deleted: 2, Premium: 1}}, sessions, time.Minute, log)
	require.NoError(t, c.Collect(ctx))

	assert.Equal(t, 7.0, testutil.ToFloat64(usersTotal.WithLabelValues("total")))
	assert.Equal(t, 2.0, testutil.ToFloat64(usersTotal.WithLabelValues("deleted")))
	assert.Equal(t, 2.0, testutil.ToFloat64(sessionsByMode.WithLabelValues("vehicle")))
	assert.Equal(t, 1.0, testutil.ToFloat64(sessionsByMode.WithLabelValues("insta")))
	assert.Equal(t, 0.0, testutil.ToFloat64(sessionsByMode.WithLabelValues("number")))
}

func TestCollector_StatsError(t *testing.T) {
	c := NewCollector(stubStats{err: errors.New("down")}, nil, 0, nil)
	assert.Error(t, c.Collect(context.Background()))
}

func TestRecorders(t *testing.T) {
	before := testutil.ToFloat64(gateDecisionsTotal.WithLabelValues("maintenance"))
	RecordGateDecision("maintenance")
	assert.Equal(t, before+1, testutil.ToFloat64(gateDecisionsTotal.WithLabelValues("maintenance")))

	before = testutil.ToFloat64(modeTransitionsTotal.WithLabelValues("none", "number"))
	RecordModeTransition(state.ModeNone, state.ModeNumber)
	assert.Equal(t, before+1, testutil.ToFloat64(modeTransitionsTotal.WithLabelValues("none", "number")))

	before = testutil.ToFloat64(lookupRequestsTotal.WithLabelValues("insta", "ok"))
	RecordLookup("insta", "ok", 20*time.Millisecond)
	assert.Equal(t, before+1, testutil.ToFloat64(lookupRequestsTotal.WithLabelValues("insta", "ok")))
}
