package http

import (
	"math"
	"math/rand"
	"time"
)

// RetryConfig contains retry configuration for remote evaluation calls.
type RetryConfig struct {
	MaxAttempts       int
	BaseDelay         time.Duration
	MaxDelay          time.Duration
	BackoffMultiplier float64
	Jitter            time.Duration
}

// DefaultRetryConfig returns the default retry configuration.
func DefaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxAttempts:       3,
		BaseDelay:         100 * time.Millisecond,
		MaxDelay:          2 * time.Second,
		BackoffMultiplier: 2.0,
		Jitter:            50 * time.Millisecond,
	}
}

// CalculateBackoff returns the delay before the next attempt:
// baseDelay * multiplier^(attempt-1), capped at maxDelay, plus random jitter.
func CalculateBackoff(attempt int, config *RetryConfig) time.Duration {
	exponential := float64(config.BaseDelay) * math.Pow(config.BackoffMultiplier, float64(attempt-1))
	delay := time.Duration(math.Min(exponential, float64(config.MaxDelay)))

	if config.Jitter > 0 {
		delay += time.Duration(rand.Float64() * float64(config.Jitter))
	}
	return delay
}
