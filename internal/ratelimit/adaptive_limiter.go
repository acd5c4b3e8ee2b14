package ratelimit

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	rateLimitChecksTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ratelimit_checks_total",
		Help: "Total number of rate limit checks by backend and result.",
	}, []string{"backend", "result"})

	rateLimitRejectedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ratelimit_rejected_total",
		Help: "Total number of rejected requests per backend.",
	}, []string{"backend"})

	rateLimitRedisErrorsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ratelimit_redis_errors_total",
		Help: "Total number of Redis errors encountered by the limiter.",
	})
)

func init() {
	prometheus.MustRegister(rateLimitChecksTotal, rateLimitRejectedTotal, rateLimitRedisErrorsTotal)
}

// AdaptiveLimiter is the limiter the update pipeline sees. Redis is primary so
// every bot replica shares one window per user; when Redis errors, the user's
// events are counted in process memory at half the configured limit, which
// keeps a single replica from admitting the full per-user budget on its own.
// Rejections on either backend surface as ErrLimitExceeded.
type AdaptiveLimiter struct {
	primary  Limiter
	fallback Limiter
	log      *slog.Logger
}

// NewAdaptiveLimiter wraps a Redis primary and an in-memory fallback.
func NewAdaptiveLimiter(primary, fallback Limiter, log *slog.Logger) Limiter {
	if log == nil {
		log = slog.Default()
	}

	return &AdaptiveLimiter{
		primary:  primary,
		fallback: fallback,
		log:      log,
	}
}

// Check counts one event for key.
func (a *AdaptiveLimiter) Check(ctx context.Context, key string, limit int, window time.Duration) (*Result, error) {
	result, err := a.primary.Check(ctx, key, limit, window)
	if err == nil || errors.Is(err, ErrLimitExceeded) {
		return observe("redis", result, err)
	}

	rateLimitRedisErrorsTotal.Inc()
	a.log.Warn("redis limiter failed, counting in memory", slog.String("key", key), slog.Any("error", err))

	result, err = a.fallback.Check(ctx, key, max(limit/2, 1), window)
	if err != nil && !errors.Is(err, ErrLimitExceeded) {
		return result, err
	}
	return observe("fallback", result, err)
}

// observe records the verdict of backend and normalises it to ErrLimitExceeded.
func observe(backend string, result *Result, err error) (*Result, error) {
	allowed := err == nil && result != nil && result.Allowed
	rateLimitChecksTotal.WithLabelValues(backend, boolLabel(allowed)).Inc()
	if !allowed {
		rateLimitRejectedTotal.WithLabelValues(backend).Inc()
		return result, ErrLimitExceeded
	}
	return result, nil
}

func boolLabel(value bool) string {
	if value {
		return "allowed"
	}
	return "rejected"
}
