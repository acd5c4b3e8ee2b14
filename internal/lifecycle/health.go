// Package lifecycle holds process health status and the shutdown sequence.
package lifecycle

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"

	"github.com/Proton-105/gatekeeper-bot/internal/health"
)

// ErrDraining is reported by readiness once shutdown has begun.
var ErrDraining = errors.New("shutting down")

// Status answers liveness from the process itself and readiness from the
// registered health checks.
type Status struct {
	checker  *health.Checker
	draining atomic.Bool
	log      *slog.Logger
}

var _ health.Reporter = (*Status)(nil)

// NewStatus creates a new Status instance.
func NewStatus(checker *health.Checker, log *slog.Logger) *Status {
	if log == nil {
		log = slog.Default()
	}
	return &Status{checker: checker, log: log}
}

// Liveness reports success as long as the process serves HTTP.
func (p *Status) Liveness(context.Context) error {
	return nil
}

// Readiness fails while draining or when any health check fails.
func (p *Status) Readiness(ctx context.Context) (health.Report, error) {
	if p.draining.Load() {
		return health.Report{Status: health.StatusFail}, ErrDraining
	}
	if p.checker == nil {
		return health.Report{Status: health.StatusOK}, nil
	}

	report := p.checker.Check(ctx)
	if !report.Healthy() {
		p.log.Warn("readiness check failed", slog.Any("components", report.Components))
		return report, errors.New("one or more components are unhealthy")
	}

	return report, nil
}

// MarkDraining makes readiness fail from now on.
func (p *Status) MarkDraining() {
	p.draining.Store(true)
}
