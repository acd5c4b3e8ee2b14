package lookup

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	apperrors "github.com/Proton-105/gatekeeper-bot/internal/errors"
	"github.com/Proton-105/gatekeeper-bot/internal/state"
	"github.com/Proton-105/gatekeeper-bot/pkg/config"
)

// Service resolves a single kind of query.
type Service interface {
	Lookup(ctx context.Context, query string) (*Result, error)
}

// maxIdleThrottles bounds the per-user throttle table before idle entries are
// dropped.
const maxIdleThrottles = 1024

// Dispatcher routes a query to the service registered for the user's mode.
// Each user is throttled separately, so one user's burst of queries never
// delays another user.
type Dispatcher struct {
	services    map[state.Mode]Service
	minInterval time.Duration
	log         *slog.Logger

	mu        sync.Mutex
	throttles map[int64]*rate.Limiter
}

// NewDispatcher wires a Dispatcher over explicit services. A non-positive
// minInterval disables throttling.
func NewDispatcher(services map[state.Mode]Service, minInterval time.Duration, log *slog.Logger) *Dispatcher {
	if log == nil {
		log = slog.Default()
	}

	return &Dispatcher{
		services:    services,
		minInterval: minInterval,
		log:         log,
		throttles:   make(map[int64]*rate.Limiter),
	}
}

// NewDispatcherFromConfig builds the vehicle, insta and number services over one Client.
func NewDispatcherFromConfig(cfg config.LookupConfig, client *Client, log *slog.Logger) *Dispatcher {
	return NewDispatcher(map[state.Mode]Service{
		state.ModeVehicle: NewVehicleLookup(client, cfg.VehicleURL, log),
		state.ModeInsta:   NewInstaLookup(client, cfg.InstaURL),
		state.ModeNumber:  NewNumberLookup(client, cfg.NumberURLs, log),
	}, cfg.MinInterval, log)
}

// Lookup trims the input and runs it through the service for mode on behalf
// of userID.
func (d *Dispatcher) Lookup(ctx context.Context, userID int64, mode state.Mode, input string) (*Result, error) {
	query := strings.TrimSpace(input)
	if query == "" {
		return nil, apperrors.NewInputError("empty lookup input")
	}

	service, ok := d.services[mode]
	if !ok {
		return nil, apperrors.NewStateError(fmt.Sprintf("no lookup service for mode %q", mode.String()))
	}

	if err := d.throttle(userID).Wait(ctx); err != nil {
		return nil, apperrors.NewLookupError(mode.String(), err)
	}

	started := time.Now()
	result, err := service.Lookup(ctx, query)
	d.log.Debug("lookup finished",
		slog.Int64("user_id", userID),
		slog.String("mode", mode.String()),
		slog.Duration("elapsed", time.Since(started)),
		slog.Bool("ok", err == nil),
	)

	return result, err
}

func (d *Dispatcher) throttle(userID int64) *rate.Limiter {
	if d.minInterval <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if limiter, ok := d.throttles[userID]; ok {
		return limiter
	}

	if len(d.throttles) >= maxIdleThrottles {
		d.pruneIdleLocked()
	}

	limiter := rate.NewLimiter(rate.Every(d.minInterval), 1)
	d.throttles[userID] = limiter
	return limiter
}

// pruneIdleLocked drops throttles whose bucket has refilled; dropping them
// cannot let a user skip a wait.
func (d *Dispatcher) pruneIdleLocked() {
	for userID, limiter := range d.throttles {
		if limiter.Tokens() >= 1 {
			delete(d.throttles, userID)
		}
	}
}
