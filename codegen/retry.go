package codegen

import "time"

// RetryConfig shapes the backoff schedule for agent API requests.
// Attempt n waits BackoffBase * BackoffMultiplier^(n-1), capped at
// MaxBackoff, before trying again.
type RetryConfig struct {
	MaxAttempts       int
	BackoffBase       time.Duration
	BackoffMultiplier float64
	MaxBackoff        time.Duration
}

// DefaultRetryConfig is tuned for an interactive pipeline step: three
// tries covering roughly six seconds of API hiccups.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:       3,
		BackoffBase:       2 * time.Second,
		BackoffMultiplier: 2.0,
		MaxBackoff:        30 * time.Second,
	}
}
