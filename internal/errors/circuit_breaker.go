package errors

import (
	"errors"
	"sync"
	"time"
)

const (
	ErrorThreshold      = 0.5
	MinRequests         = 10
	TimeoutDuration     = 30 * time.Second
	HalfOpenMaxRequests = 3
)

type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	default:
		return "closed"
	}
}

var (
	// ErrCircuitOpen is returned without calling fn while the breaker is open.
	ErrCircuitOpen = errors.New("circuit breaker is open")
	// ErrHalfOpenTooManyRequests is returned without calling fn once the
	// half-open trial budget is used up.
	ErrHalfOpenTooManyRequests = errors.New("too many requests in half-open")
)

// IsCircuitRejection reports whether a breaker refused the call without running it.
func IsCircuitRejection(err error) bool {
	return errors.Is(err, ErrCircuitOpen) || errors.Is(err, ErrHalfOpenTooManyRequests)
}

// CircuitBreaker trips after the failure rate over at least MinRequests calls
// reaches ErrorThreshold, and tries again after TimeoutDuration.
type CircuitBreaker struct {
	mu              sync.Mutex
	name            string
	state           State
	failures        int
	successes       int
	requests        int
	lastFailureTime time.Time
	now             func() time.Time
	onStateChange   func(name string, from, to State)
}

// NewCircuitBreaker creates a closed breaker. onStateChange may be nil.
func NewCircuitBreaker(name string, onStateChange func(name string, from, to State)) *CircuitBreaker {
	return &CircuitBreaker{
		name:          name,
		state:         StateClosed,
		now:           time.Now,
		onStateChange: onStateChange,
	}
}

func (cb *CircuitBreaker) Call(fn func() error) error {
	if fn == nil {
		return nil
	}

	cb.mu.Lock()
	if cb.state == StateOpen {
		if cb.now().Sub(cb.lastFailureTime) >= TimeoutDuration {
			cb.transitionToHalfOpenLocked()
		} else {
			cb.mu.Unlock()
			return ErrCircuitOpen
		}
	}

	if cb.state == StateHalfOpen && cb.requests >= HalfOpenMaxRequests {
		cb.mu.Unlock()
		return ErrHalfOpenTooManyRequests
	}
	cb.mu.Unlock()

	callErr := fn()

	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.requests++
	if callErr != nil && IsRetryable(callErr) {
		cb.failures++

		if cb.state == StateHalfOpen {
			cb.tripToOpenLocked()
		} else {
			cb.evaluateState()
		}

		return callErr
	}

	// non-retryable errors (not found, bad input) say nothing about endpoint health
	cb.successes++

	if cb.state == StateHalfOpen && cb.successes >= HalfOpenMaxRequests {
		cb.setStateLocked(StateClosed)
		cb.resetCountersLocked()
	}

	return callErr
}

func (cb *CircuitBreaker) evaluateState() {
	if cb.requests < MinRequests {
		return
	}

	errorRate := float64(cb.failures) / float64(cb.requests)
	if errorRate >= ErrorThreshold {
		cb.tripToOpenLocked()
	}
}

func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

func (cb *CircuitBreaker) resetCountersLocked() {
	cb.failures = 0
	cb.successes = 0
	cb.requests = 0
}

func (cb *CircuitBreaker) setStateLocked(to State) {
	from := cb.state
	cb.state = to
	if from != to && cb.onStateChange != nil {
		cb.onStateChange(cb.name, from, to)
	}
}

func (cb *CircuitBreaker) transitionToHalfOpenLocked() {
	cb.setStateLocked(StateHalfOpen)
	cb.resetCountersLocked()
}

func (cb *CircuitBreaker) tripToOpenLocked() {
	cb.setStateLocked(StateOpen)
	cb.lastFailureTime = cb.now()
	cb.resetCountersLocked()
}
