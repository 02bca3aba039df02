package http

import (
	"sync"
	"time"

	"github.com/teracrafts/flagcache-go/types"
)

// CircuitState represents the state of a circuit breaker.
type CircuitState int

const (
	CircuitClosed   CircuitState = iota // remote calls allowed
	CircuitOpen                         // remote calls rejected
	CircuitHalfOpen                     // probing for recovery
)

func (s CircuitState) String() string {
	switch s {
	case CircuitClosed:
		return "CLOSED"
	case CircuitOpen:
		return "OPEN"
	case CircuitHalfOpen:
		return "HALF_OPEN"
	default:
		return "UNKNOWN"
	}
}

// CircuitBreakerConfig contains circuit breaker configuration.
// Zero fields take the values from DefaultCircuitBreakerConfig.
type CircuitBreakerConfig struct {
	FailureThreshold   int
	SuccessThreshold   int
	ResetTimeout       time.Duration
	HalfOpenMaxAllowed int
	Logger             types.Logger
}

// DefaultCircuitBreakerConfig returns the default circuit breaker configuration.
func DefaultCircuitBreakerConfig() *CircuitBreakerConfig {
	return &CircuitBreakerConfig{
		FailureThreshold:   5,
		SuccessThreshold:   2,
		ResetTimeout:       30 * time.Second,
		HalfOpenMaxAllowed: 1,
	}
}

// CircuitBreaker stops calling a remote evaluator that keeps failing.
type CircuitBreaker struct {
	config             CircuitBreakerConfig
	state              CircuitState
	failures           int
	successes          int
	lastFailureTime    time.Time
	halfOpenInProgress int
	mu                 sync.Mutex
	logger             types.Logger
}

// NewCircuitBreaker creates a new circuit breaker.
func NewCircuitBreaker(config *CircuitBreakerConfig) *CircuitBreaker {
	cfg := *DefaultCircuitBreakerConfig()
	if config != nil {
		if config.FailureThreshold > 0 {
			cfg.FailureThreshold = config.FailureThreshold
		}
		if config.SuccessThreshold > 0 {
			cfg.SuccessThreshold = config.SuccessThreshold
		}
		if config.ResetTimeout > 0 {
			cfg.ResetTimeout = config.ResetTimeout
		}
		if config.HalfOpenMaxAllowed > 0 {
			cfg.HalfOpenMaxAllowed = config.HalfOpenMaxAllowed
		}
		cfg.Logger = config.Logger
	}
	return &CircuitBreaker{
		config: cfg,
		state:  CircuitClosed,
		logger: types.OrNull(cfg.Logger),
	}
}

// Allow reports whether a request may be sent.
func (cb *CircuitBreaker) Allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case CircuitClosed:
		return true

	case CircuitOpen:
		if time.Since(cb.lastFailureTime) < cb.config.ResetTimeout {
			return false
		}
		cb.transitionTo(CircuitHalfOpen)
		fallthrough

	case CircuitHalfOpen:
		if cb.halfOpenInProgress < cb.config.HalfOpenMaxAllowed {
			cb.halfOpenInProgress++
			return true
		}
		return false
	}

	return false
}

// RecordSuccess records a successful request.
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case CircuitHalfOpen:
		cb.successes++
		if cb.halfOpenInProgress > 0 {
			cb.halfOpenInProgress--
		}
		if cb.successes >= cb.config.SuccessThreshold {
			cb.transitionTo(CircuitClosed)
		}

	case CircuitClosed:
		cb.failures = 0
	}
}

// RecordFailure records a failed request.
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.lastFailureTime = time.Now()

	switch cb.state {
	case CircuitClosed:
		cb.failures++
		if cb.failures >= cb.config.FailureThreshold {
			cb.transitionTo(CircuitOpen)
		}

	case CircuitHalfOpen:
		cb.transitionTo(CircuitOpen)
	}
}

// State returns the current circuit state.
func (cb *CircuitBreaker) State() CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Reset closes the circuit and clears all counters.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.state = CircuitClosed
	cb.failures = 0
	cb.successes = 0
	cb.halfOpenInProgress = 0
}

// transitionTo must be called with mu held.
func (cb *CircuitBreaker) transitionTo(newState CircuitState) {
	oldState := cb.state
	cb.state = newState
	cb.failures = 0
	cb.successes = 0
	cb.halfOpenInProgress = 0

	cb.logger.Debug("Circuit breaker state change",
		"from", oldState.String(),
		"to", newState.String(),
	)
}

// Stats returns circuit breaker statistics.
func (cb *CircuitBreaker) Stats() map[string]any {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	return map[string]any{
		"state":             cb.state.String(),
		"failures":          cb.failures,
		"successes":         cb.successes,
		"failure_threshold": cb.config.FailureThreshold,
		"success_threshold": cb.config.SuccessThreshold,
	}
}
