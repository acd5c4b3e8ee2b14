// Package idempotency makes sure a Telegram update is handled at most once,
// even when Telegram redelivers it.
package idempotency

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// ErrRequestInProgress is returned while another worker holds the key.
var ErrRequestInProgress = errors.New("request with this key is already in progress")

// DefaultLockTTL bounds how long a crashed worker can block a key.
const DefaultLockTTL = 5 * time.Minute

// Operation is the work guarded by a key.
type Operation func(ctx context.Context) error

// Result tells whether the operation ran or had already completed.
type Result struct {
	FromCache   bool
	CompletedAt time.Time
}

// Manager runs operations at most once per key.
type Manager interface {
	Execute(ctx context.Context, key string, ttl time.Duration, fn Operation) (*Result, error)
}

type manager struct {
	store   Store
	lockTTL time.Duration
	now     func() time.Time
	log     *slog.Logger
}

// NewManager builds a Manager on top of store.
func NewManager(store Store, log *slog.Logger) Manager {
	if log == nil {
		log = slog.Default()
	}

	return &manager{
		store:   store,
		lockTTL: DefaultLockTTL,
		now:     time.Now,
		log:     log,
	}
}

// Execute runs fn unless key completed before. A completed key is remembered
// for ttl. A failed operation is not remembered, so a redelivery retries it.
func (m *manager) Execute(ctx context.Context, key string, ttl time.Duration, fn Operation) (*Result, error) {
	if fn == nil {
		return nil, errors.New("operation fn cannot be nil")
	}

	record, err := m.store.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if record != nil && record.Status == StatusCompleted {
		return &Result{FromCache: true, CompletedAt: record.CompletedAt}, nil
	}

	locked, err := m.store.Lock(ctx, key, m.lockTTL)
	if err != nil {
		return nil, err
	}
	if !locked {
		return nil, ErrRequestInProgress
	}

	defer func() {
		// the update context may already be cancelled here
		if err := m.store.ReleaseLock(context.WithoutCancel(ctx), key); err != nil {
			m.log.Warn("failed to release idempotency lock", slog.String("key", key), slog.Any("error", err))
		}
	}()

	if err := fn(ctx); err != nil {
		return nil, err
	}

	completed := &Record{Status: StatusCompleted, CompletedAt: m.now().UTC()}
	if err := m.store.Set(context.WithoutCancel(ctx), key, completed, ttl); err != nil {
		return nil, err
	}

	return &Result{CompletedAt: completed.CompletedAt}, nil
}
