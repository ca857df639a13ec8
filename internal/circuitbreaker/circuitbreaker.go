package circuitbreaker

import (
	"errors"
	"sync"
	"time"

	"github.com/SvetozarP/finance-tracker-server/internal/metrics"
)

// ErrCircuitOpen is returned when the breaker refuses an attempt.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// State represents the circuit breaker state.
type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

// CircuitBreaker shields a flaky dependency: after enough consecutive
// failures it opens and fails fast, then probes with a half-open trial once
// the cool-down passes. The rates client and the query analyzer each wrap
// their outbound calls in one.
type CircuitBreaker struct {
	mu              sync.Mutex
	state           State
	failureCount    int
	successCount    int
	lastFailureTime time.Time
	name            string

	failureThreshold int
	successThreshold int
	timeout          time.Duration
}

// Config holds circuit breaker configuration. Zero fields select defaults.
type Config struct {
	Name             string
	FailureThreshold int           // consecutive failures before opening
	SuccessThreshold int           // successes needed to close from half-open
	Timeout          time.Duration // cool-down before a half-open probe
}

// New creates a circuit breaker in the closed state.
func New(cfg Config) *CircuitBreaker {
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.SuccessThreshold == 0 {
		cfg.SuccessThreshold = 2
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}

	cb := &CircuitBreaker{
		state:            StateClosed,
		name:             cfg.Name,
		failureThreshold: cfg.FailureThreshold,
		successThreshold: cfg.SuccessThreshold,
		timeout:          cfg.Timeout,
	}

	metrics.CircuitBreakerState.WithLabelValues(cfg.Name).Set(0)

	return cb
}

// Call executes fn unless the breaker is open. The dependency's own error
// passes through unchanged; a refused attempt returns ErrCircuitOpen.
func (cb *CircuitBreaker) Call(fn func() error) error {
	if !cb.canAttempt() {
		return ErrCircuitOpen
	}

	if err := fn(); err != nil {
		cb.recordFailure()
		return err
	}

	cb.recordSuccess()
	return nil
}

// canAttempt reports whether a call may proceed, moving an open breaker to
// half-open once its cool-down has elapsed.
func (cb *CircuitBreaker) canAttempt() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateClosed, StateHalfOpen:
		return true
	case StateOpen:
		if time.Since(cb.lastFailureTime) > cb.timeout {
			cb.state = StateHalfOpen
			cb.successCount = 0
			metrics.CircuitBreakerState.WithLabelValues(cb.name).Set(2)
			return true
		}
		return false
	default:
		return false
	}
}

func (cb *CircuitBreaker) recordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.lastFailureTime = time.Now()
	cb.successCount = 0

	switch cb.state {
	case StateClosed:
		cb.failureCount++
		if cb.failureCount >= cb.failureThreshold {
			cb.trip()
		}
	case StateHalfOpen:
		// A failed probe reopens immediately.
		cb.failureCount = 0
		cb.trip()
	}
}

func (cb *CircuitBreaker) trip() {
	cb.state = StateOpen
	metrics.CircuitBreakerTrips.WithLabelValues(cb.name).Inc()
	metrics.CircuitBreakerState.WithLabelValues(cb.name).Set(1)
}

func (cb *CircuitBreaker) recordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateClosed:
		cb.failureCount = 0
	case StateHalfOpen:
		cb.successCount++
		if cb.successCount >= cb.successThreshold {
			cb.state = StateClosed
			cb.failureCount = 0
			cb.successCount = 0
			metrics.CircuitBreakerState.WithLabelValues(cb.name).Set(0)
		}
	}
}

// GetState returns the current state.
func (cb *CircuitBreaker) GetState() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}
