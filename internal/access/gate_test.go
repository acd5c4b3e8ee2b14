package access

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Proton-105/gatekeeper-bot/internal/domain"
	"github.com/Proton-105/gatekeeper-bot/internal/store"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(sec int64) {
	c.mu.Lock()
	c.now = time.Unix(sec, 0).UTC()
	c.mu.Unlock()
}

type fakeMembership struct {
	mu     sync.Mutex
	status MembershipStatus
	err    error
	calls  int
}

func (f *fakeMembership) Check(_ context.Context, _ int64) Membership {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return Membership{Status: f.status, Err: f.err}
}

func (f *fakeMembership) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type gateFixture struct {
	gate       *Gate
	store      *store.RedisStore
	clock      *fakeClock
	membership *fakeMembership
	redis      *miniredis.Miniredis
}

func newGateFixture(t *testing.T) *gateFixture {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	st := store.NewRedisStore(client, log)
	clock := &fakeClock{}
	clock.Set(0)
	membership := &fakeMembership{status: Joined}

	gate := NewGate(st, membership, ClockFunc(clock.Now), Policy{
		TrialDuration:   30 * time.Minute,
		PremiumDuration: 30 * 24 * time.Hour,
		AdminIDs:        []int64{1},
	}, log)

	return &gateFixture{gate: gate, store: st, clock: clock, membership: membership, redis: mr}
}

func TestGate_TrialWindow(t *testing.T) {
	f := newGateFixture(t)
	ctx := context.Background()
	const userID = int64(100)

	testCases := []struct {
		name string
		at   int64
		want Decision
	}{
		{name: "first check starts the clock", at: 0, want: DecisionAllowed},
		{name: "inside window", at: 900, want: DecisionAllowed},
		{name: "boundary is inclusive", at: 1800, want: DecisionAllowed},
		{name: "one second past the window", at: 1801, want: DecisionTrialExpired},
	}

	for _, tc := range testCases {
		f.clock.Set(tc.at)

		decision, err := f.gate.Check(ctx, userID)
		require.NoError(t, err, tc.name)
		assert.Equal(t, tc.want, decision, tc.name)
	}

	record, err := f.store.Get(ctx, store.UserKey(userID))
	require.NoError(t, err)
	assert.True(t, record.StartTime.Equal(time.Unix(0, 0)), "start time must be set exactly once")
}

func TestGate_EnsureTrialStartedIsIdempotent(t *testing.T) {
	f := newGateFixture(t)
	ctx := context.Background()

	f.clock.Set(10)
	first, err := f.gate.EnsureTrialStarted(ctx, 7)
	require.NoError(t, err)

	f.clock.Set(500)
	second, err := f.gate.EnsureTrialStarted(ctx, 7)
	require.NoError(t, err)

	assert.True(t, first.Equal(second))
	assert.Equal(t, int64(10), second.Unix())
}

func TestGate_IsTrialValidDoesNotWrite(t *testing.T) {
	f := newGateFixture(t)
	ctx := context.Background()

	valid, err := f.gate.IsTrialValid(ctx, 8)
	require.NoError(t, err)
	assert.True(t, valid)

	record, err := f.store.Get(ctx, store.UserKey(8))
	require.NoError(t, err)
	assert.True(t, record.IsEmpty())
}

func TestGate_PremiumScenario(t *testing.T) {
	f := newGateFixture(t)
	ctx := context.Background()
	const userID = int64(200)

	f.clock.Set(0)
	grant, err := f.gate.GrantPremium(ctx, "200")
	require.NoError(t, err)
	assert.Equal(t, userID, grant.UserID)
	assert.Equal(t, int64(2592000), grant.Until.Unix())

	f.clock.Set(2591999)
	decision, err := f.gate.Check(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, DecisionAllowed, decision)

	record, err := f.store.Get(ctx, store.UserKey(userID))
	require.NoError(t, err)
	assert.False(t, record.HasStarted(), "premium users do not consume trial")

	// expired premium falls back to trial rules: fresh trial starts now
	f.clock.Set(2592001)
	decision, err = f.gate.Check(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, DecisionAllowed, decision)

	f.clock.Set(2592001 + 1801)
	decision, err = f.gate.Check(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, DecisionTrialExpired, decision)
}

func TestGate_PremiumOverridesExpiredTrial(t *testing.T) {
	f := newGateFixture(t)
	ctx := context.Background()

	require.NoError(t, f.store.Put(ctx, "300", &domain.UserRecord{StartTime: time.Unix(0, 0)}))

	f.clock.Set(10_000)
	decision, err := f.gate.Check(ctx, 300)
	require.NoError(t, err)
	require.Equal(t, DecisionTrialExpired, decision)

	_, err = f.gate.GrantPremium(ctx, "300")
	require.NoError(t, err)

	decision, err = f.gate.Check(ctx, 300)
	require.NoError(t, err)
	assert.Equal(t, DecisionAllowed, decision)
}

func TestGate_GrantPremiumResetsInsteadOfStacking(t *testing.T) {
	f := newGateFixture(t)
	ctx := context.Background()

	f.clock.Set(0)
	_, err := f.gate.GrantPremium(ctx, "400")
	require.NoError(t, err)

	f.clock.Set(86400)
	grant, err := f.gate.GrantPremium(ctx, "400")
	require.NoError(t, err)
	assert.Equal(t, int64(86400+2592000), grant.Until.Unix())

	record, err := f.store.Get(ctx, "400")
	require.NoError(t, err)
	assert.True(t, record.PremiumUntil.Equal(grant.Until))
}

func TestGate_GrantPremiumKeepsTrialStart(t *testing.T) {
	f := newGateFixture(t)
	ctx := context.Background()

	start := time.Unix(5, 0)
	require.NoError(t, f.store.Put(ctx, "401", &domain.UserRecord{StartTime: start}))

	_, err := f.gate.GrantPremium(ctx, "401")
	require.NoError(t, err)

	record, err := f.store.Get(ctx, "401")
	require.NoError(t, err)
	assert.True(t, record.StartTime.Equal(start))
}

func TestGate_GrantPremiumNormalizesID(t *testing.T) {
	f := newGateFixture(t)
	ctx := context.Background()

	grant, err := f.gate.GrantPremium(ctx, "007")
	require.NoError(t, err)
	assert.Equal(t, int64(7), grant.UserID)

	record, err := f.store.Get(ctx, store.UserKey(grant.UserID))
	require.NoError(t, err)
	assert.True(t, record.PremiumUntil.Equal(grant.Until))

	all, err := f.store.All(ctx)
	require.NoError(t, err)
	assert.NotContains(t, all, "007")
}

func TestGate_GrantPremiumRejectsInvalidIDs(t *testing.T) {
	f := newGateFixture(t)

	for _, raw := range []string{"", "abc", "0", "-5", "12.5", "maintenance"} {
		_, err := f.gate.GrantPremium(context.Background(), raw)
		assert.ErrorIs(t, err, store.ErrInvalidUserID, raw)
	}

	keys, _ := f.redis.HKeys("gatekeeper:users")
	assert.Equal(t, 0, len(keys))
}

func TestGate_MaintenanceDeniesBeforeMembership(t *testing.T) {
	f := newGateFixture(t)
	ctx := context.Background()

	_, err := f.gate.GrantPremium(ctx, "500")
	require.NoError(t, err)
	require.NoError(t, f.gate.SetMaintenance(ctx, true))

	decision, err := f.gate.Check(ctx, 500)
	require.NoError(t, err)
	assert.Equal(t, DecisionMaintenance, decision)

	decision, err = f.gate.CheckEntry(ctx, 500)
	require.NoError(t, err)
	assert.Equal(t, DecisionMaintenance, decision)

	assert.Zero(t, f.membership.Calls(), "membership must not be queried during maintenance")

	require.NoError(t, f.gate.SetMaintenance(ctx, false))
	decision, err = f.gate.Check(ctx, 500)
	require.NoError(t, err)
	assert.Equal(t, DecisionAllowed, decision)
}

func TestGate_MaintenanceAppliesToAdmins(t *testing.T) {
	f := newGateFixture(t)
	ctx := context.Background()

	require.True(t, f.gate.IsAdmin(1))
	require.NoError(t, f.gate.SetMaintenance(ctx, true))

	decision, err := f.gate.Check(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, DecisionMaintenance, decision)
}

func TestGate_MembershipOutcomes(t *testing.T) {
	testCases := []struct {
		name   string
		status MembershipStatus
		err    error
		want   Decision
	}{
		{name: "joined", status: Joined, want: DecisionAllowed},
		{name: "not joined", status: NotJoined, want: DecisionNotJoined},
		{name: "check failed", status: CheckFailed, err: errors.New("api down"), want: DecisionNotJoined},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			f := newGateFixture(t)
			f.membership.status = tc.status
			f.membership.err = tc.err

			decision, err := f.gate.Check(context.Background(), 600)
			require.NoError(t, err)
			assert.Equal(t, tc.want, decision)
		})
	}
}

func TestGate_NotJoinedDoesNotStartTrial(t *testing.T) {
	f := newGateFixture(t)
	f.membership.status = NotJoined

	_, err := f.gate.Check(context.Background(), 700)
	require.NoError(t, err)

	record, err := f.store.Get(context.Background(), "700")
	require.NoError(t, err)
	assert.True(t, record.IsEmpty())
}

func TestGate_StoreFailurePropagates(t *testing.T) {
	f := newGateFixture(t)
	f.redis.Close()

	_, err := f.gate.Check(context.Background(), 800)
	assert.Error(t, err)

	_, err = f.gate.GrantPremium(context.Background(), "800")
	assert.Error(t, err)
}

func TestGate_IsAdmin(t *testing.T) {
	f := newGateFixture(t)

	assert.True(t, f.gate.IsAdmin(1))
	assert.False(t, f.gate.IsAdmin(2))
}

func TestDecision_String(t *testing.T) {
	assert.Equal(t, "allowed", DecisionAllowed.String())
	assert.Equal(t, "maintenance", DecisionMaintenance.String())
	assert.Equal(t, "not_joined", DecisionNotJoined.String())
	assert.Equal(t, "trial_expired", DecisionTrialExpired.String())
	assert.True(t, DecisionAllowed.Allowed())
	assert.False(t, DecisionTrialExpired.Allowed())
}
