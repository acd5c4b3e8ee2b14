// Package access decides whether a user may use the bot: maintenance mode,
// channel membership, premium expiry and the free trial window.
package access

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/Proton-105/gatekeeper-bot/internal/store"
)

const (
	DefaultTrialDuration   = 30 * time.Minute
	DefaultPremiumDuration = 30 * 24 * time.Hour
)

// Policy holds the gate's tunables.
type Policy struct {
	TrialDuration   time.Duration
	PremiumDuration time.Duration
	AdminIDs        []int64
}

// Gate applies the access checks in a fixed order: maintenance, membership,
// premium, trial. The first failing check decides the outcome.
type Gate struct {
	store      store.Store
	membership MembershipChecker
	clock      Clock
	policy     Policy
	log        *slog.Logger
}

// NewGate wires a Gate. A nil clock means the system clock.
func NewGate(st store.Store, membership MembershipChecker, clock Clock, policy Policy, log *slog.Logger) *Gate {
	if clock == nil {
		clock = SystemClock{}
	}
	if policy.TrialDuration <= 0 {
		policy.TrialDuration = DefaultTrialDuration
	}
	if policy.PremiumDuration <= 0 {
		policy.PremiumDuration = DefaultPremiumDuration
	}
	if log == nil {
		log = slog.Default()
	}

	return &Gate{
		store:      st,
		membership: membership,
		clock:      clock,
		policy:     policy,
		log:        log,
	}
}

// IsAdmin reports whether userID is a configured admin. Admin identity only
// unlocks the admin commands; it does not bypass Check.
func (g *Gate) IsAdmin(userID int64) bool {
	return slices.Contains(g.policy.AdminIDs, userID)
}

// CheckEntry runs the maintenance and membership checks only. It guards the
// menu and mode selection, which do not consume trial time.
func (g *Gate) CheckEntry(ctx context.Context, userID int64) (Decision, error) {
	maintenance, err := g.store.Maintenance(ctx)
	if err != nil {
		return DecisionMaintenance, fmt.Errorf("read maintenance flag: %w", err)
	}
	if maintenance {
		return DecisionMaintenance, nil
	}

	m := g.membership.Check(ctx, userID)
	switch m.Status {
	case Joined:
		return DecisionAllowed, nil
	case CheckFailed:
		// an unverifiable membership is a denial
		g.log.Warn("membership check failed, denying", slog.Int64("user_id", userID), slog.Any("error", m.Err))
		return DecisionNotJoined, nil
	default:
		return DecisionNotJoined, nil
	}
}

// Check runs the full lookup-flow check. On a user's first trial check the
// trial clock is started as part of the check.
func (g *Gate) Check(ctx context.Context, userID int64) (Decision, error) {
	decision, err := g.CheckEntry(ctx, userID)
	if err != nil || !decision.Allowed() {
		return decision, err
	}

	premium, err := g.IsPremium(ctx, userID)
	if err != nil {
		return DecisionTrialExpired, err
	}
	if premium {
		return DecisionAllowed, nil
	}

	if _, err := g.EnsureTrialStarted(ctx, userID); err != nil {
		return DecisionTrialExpired, err
	}

	valid, err := g.IsTrialValid(ctx, userID)
	if err != nil {
		return DecisionTrialExpired, err
	}
	if !valid {
		return DecisionTrialExpired, nil
	}

	return DecisionAllowed, nil
}

// IsPremium reports whether the user's premium expiry lies strictly in the future.
func (g *Gate) IsPremium(ctx context.Context, userID int64) (bool, error) {
	record, err := g.store.Get(ctx, store.UserKey(userID))
	if err != nil {
		return false, fmt.Errorf("load user record: %w", err)
	}
	return record.PremiumActive(g.clock.Now()), nil
}

// EnsureTrialStarted records the trial start if it is not set yet and returns
// the effective start. Calling it again never moves the start.
func (g *Gate) EnsureTrialStarted(ctx context.Context, userID int64) (time.Time, error) {
	key := store.UserKey(userID)

	record, err := g.store.Get(ctx, key)
	if err != nil {
		return time.Time{}, fmt.Errorf("load user record: %w", err)
	}
	if record.HasStarted() {
		return record.StartTime, nil
	}

	updated := record.Clone()
	updated.StartTime = g.clock.Now()
	if err := g.store.Put(ctx, key, updated); err != nil {
		return time.Time{}, fmt.Errorf("start trial: %w", err)
	}

	g.log.Info("trial started", slog.Int64("user_id", userID), slog.Time("start_time", updated.StartTime))
	return updated.StartTime, nil
}

// IsTrialValid reports whether the trial window is still open. It never writes;
// a user whose trial has not started is within the window.
func (g *Gate) IsTrialValid(ctx context.Context, userID int64) (bool, error) {
	record, err := g.store.Get(ctx, store.UserKey(userID))
	if err != nil {
		return false, fmt.Errorf("load user record: %w", err)
	}
	if !record.HasStarted() {
		return true, nil
	}

	deadline := record.StartTime.Add(g.policy.TrialDuration)
	return !g.clock.Now().After(deadline), nil
}

// PremiumGrant is the outcome of a premium grant.
type PremiumGrant struct {
	UserID int64
	Until  time.Time
}

// GrantPremium sets the premium expiry to now plus the premium duration,
// replacing any previous expiry. rawUserID must be a positive integer; the user
// does not need to have interacted with the bot before.
func (g *Gate) GrantPremium(ctx context.Context, rawUserID string) (PremiumGrant, error) {
	userID, err := store.ParseUserID(rawUserID)
	if err != nil {
		return PremiumGrant{}, err
	}

	key := store.UserKey(userID)
	record, err := g.store.Get(ctx, key)
	if err != nil {
		return PremiumGrant{}, fmt.Errorf("load user record: %w", err)
	}

	updated := record.Clone()
	updated.PremiumUntil = g.clock.Now().Add(g.policy.PremiumDuration)
	if err := g.store.Put(ctx, key, updated); err != nil {
		return PremiumGrant{}, fmt.Errorf("grant premium: %w", err)
	}

	return PremiumGrant{UserID: userID, Until: updated.PremiumUntil}, nil
}

// SetMaintenance toggles the global maintenance flag.
func (g *Gate) SetMaintenance(ctx context.Context, enabled bool) error {
	if err := g.store.SetMaintenance(ctx, enabled); err != nil {
		return fmt.Errorf("set maintenance: %w", err)
	}
	g.log.Info("maintenance mode changed", slog.Bool("enabled", enabled))
	return nil
}
