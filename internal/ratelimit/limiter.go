// Package ratelimit implements per-user sliding-window limits with Redis and
// in-memory backends.
package ratelimit

import (
	"context"
	"errors"
	"strconv"
	"time"
)

// Key scopes. Every update counts against ScopeUser; lookup queries also count
// against ScopeLookup.
const (
	ScopeUser   = "user"
	ScopeLookup = "lookup"
)

// ErrLimitExceeded is returned together with a rejected Result.
var ErrLimitExceeded = errors.New("rate limit exceeded")

// Result describes one evaluated event.
type Result struct {
	Allowed bool
	// Remaining events admitted before the window fills up.
	Remaining int
	ResetAt   time.Time
}

// Limiter records an event for key if it fits into limit per window.
// Rejected events are not recorded.
type Limiter interface {
	Check(ctx context.Context, key string, limit int, window time.Duration) (*Result, error)
}

// Key returns the limiter key for userID within scope, e.g. "lookup:42".
func Key(scope string, userID int64) string {
	return scope + ":" + strconv.FormatInt(userID, 10)
}

func newResult(allowed bool, count, limit int, resetAt time.Time) *Result {
	return &Result{
		Allowed:   allowed,
		Remaining: max(limit-count, 0),
		ResetAt:   resetAt,
	}
}
