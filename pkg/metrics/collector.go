// Package metrics exposes the bot's Prometheus instrumentation.
package metrics

import (
	"context"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/Proton-105/gatekeeper-bot/internal/state"
	"github.com/Proton-105/gatekeeper-bot/internal/user"
)

const defaultCollectInterval = 30 * time.Second

var (
	botCommandsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_commands_total",
			Help: "Total number of bot updates handled labeled by command and status",
		},
		[]string{"command", "status"},
	)
	commandDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "command_duration_seconds",
			Help:    "Duration of bot update handling in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"command"},
	)
	gateDecisionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gate_decisions_total",
			Help: "Access gate outcomes labeled by decision",
		},
		[]string{"decision"},
	)
	lookupRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lookup_requests_total",
			Help: "Outbound lookup API calls labeled by api and outcome",
		},
		[]string{"api", "outcome"},
	)
	lookupDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "lookup_duration_seconds",
			Help:    "Latency of outbound lookup API calls",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10},
		},
		[]string{"api"},
	)
	circuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "lookup_circuit_breaker_state",
			Help: "Circuit breaker state per lookup api (0 closed, 1 open, 2 half-open)",
		},
		[]string{"api"},
	)
	modeTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mode_transitions_total",
			Help: "Total number of lookup mode changes",
		},
		[]string{"from", "to"},
	)
	errorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "errors_total",
			Help: "Total number of errors split by code and severity",
		},
		[]string{"code", "severity"},
	)
	usersTotal = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "users",
			Help: "Stored user records by kind (total, active, deleted, premium)",
		},
		[]string{"kind"},
	)
	sessionsByMode = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "sessions_by_mode",
			Help: "Number of sessions per selected lookup mode",
		},
		[]string{"mode"},
	)
)

// RecordCommand increments command counters and records duration.
func RecordCommand(command, status string, duration time.Duration) {
	if command == "" {
		command = "unknown"
	}
	if status == "" {
		status = "unknown"
	}

	botCommandsTotal.WithLabelValues(command, status).Inc()
	commandDurationSeconds.WithLabelValues(command).Observe(duration.Seconds())
}

// RecordGateDecision counts an access gate outcome.
func RecordGateDecision(decision string) {
	gateDecisionsTotal.WithLabelValues(decision).Inc()
}

// RecordLookup counts an outbound lookup call. It matches lookup.Observer.
func RecordLookup(api, outcome string, elapsed time.Duration) {
	lookupRequestsTotal.WithLabelValues(api, outcome).Inc()
	lookupDurationSeconds.WithLabelValues(api).Observe(elapsed.Seconds())
}

// SetCircuitState publishes a breaker state as its numeric value.
func SetCircuitState(api string, value int) {
	circuitBreakerState.WithLabelValues(api).Set(float64(value))
}

// RecordModeTransition tracks mode changes. It matches state.TransitionRecorder.
func RecordModeTransition(from, to state.Mode) {
	modeTransitionsTotal.WithLabelValues(from.String(), to.String()).Inc()
}

// RecordError increments error counters with metadata.
func RecordError(code, severity string) {
	if code == "" {
		code = "unknown"
	}
	if severity == "" {
		severity = "unknown"
	}

	errorsTotal.WithLabelValues(code, severity).Inc()
}

// StatsProvider supplies user statistics.
type StatsProvider interface {
	Stats(ctx context.Context) (user.Stats, error)
}

// Collector periodically publishes user statistics and session gauges.
type Collector struct {
	stats    StatsProvider
	sessions state.Sessions
	interval time.Duration
	log      *slog.Logger
}

// NewCollector builds a Collector. A non-positive interval uses the default.
func NewCollector(stats StatsProvider, sessions state.Sessions, interval time.Duration, log *slog.Logger) *Collector {
	if interval <= 0 {
		interval = defaultCollectInterval
	}
	if log == nil {
		log = slog.Default()
	}

	return &Collector{stats: stats, sessions: sessions, interval: interval, log: log}
}

// Run collects immediately and then on every tick until ctx is cancelled.
func (c *Collector) Run(ctx context.Context) {
	if c == nil {
		return
	}

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		if err := c.Collect(ctx); err != nil {
			c.log.Warn("metrics collection failed", slog.Any("error", err))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Collect runs one collection pass.
func (c *Collector) Collect(ctx context.Context) error {
	if c.stats != nil {
		stats, err := c.stats.Stats(ctx)
		if err != nil {
			return err
		}

		usersTotal.WithLabelValues("total").Set(float64(stats.Total))
		usersTotal.WithLabelValues("active").Set(float64(stats.Active))
		usersTotal.WithLabelValues("deleted").Set(float64(stats.Deleted))
		usersTotal.WithLabelValues("premium").Set(float64(stats.Premium))
	}

	if c.sessions != nil {
		sessions, err := c.sessions.Snapshot(ctx)
		if err != nil {
			return err
		}

		counts := make(map[state.Mode]int, len(state.Modes))
		for _, s := range sessions {
			if s != nil {
				counts[s.Mode]++
			}
		}

		for _, mode := range state.Modes {
			sessionsByMode.WithLabelValues(mode.String()).Set(float64(counts[mode]))
		}
	}

	return nil
}
