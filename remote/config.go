package remote

import (
	"fmt"
	"time"
)

// Config configures a Client.
type Config struct {
	// Delay is how long every call blocks before answering. Zero answers
	// immediately; DefaultConfig uses 1s.
	Delay time.Duration

	// Timeout bounds a single attempt. Zero disables the bound.
	Timeout time.Duration

	// FailEvery makes every Nth call fail with ErrUnavailable.
	// Zero disables failure injection.
	FailEvery int

	// Retry configures retries of failed attempts.
	Retry RetryConfig

	// Breaker configures the circuit breaker around whole calls.
	Breaker BreakerConfig
}

// BreakerConfig configures the circuit breaker.
type BreakerConfig struct {
	// MaxFailures consecutive failed calls open the breaker.
	// Zero disables the breaker.
	MaxFailures int

	// ResetTimeout is how long the breaker stays open before it admits a
	// trial call.
	// Default: 30s
	ResetTimeout time.Duration
}

// RetryConfig configures retries of a failed call.
type RetryConfig struct {
	// MaxAttempts is the maximum number of attempts, including the first.
	// Default: 1 (no retry)
	MaxAttempts int

	// InitialDelay is the wait before the first retry.
	// Default: 50ms
	InitialDelay time.Duration

	// MaxDelay caps the wait between retries.
	// Default: 2s
	MaxDelay time.Duration

	// Multiplier grows the wait after every retry.
	// Default: 2.0
	Multiplier float64

	// Jitter adds up to 25% random variance to each wait.
	Jitter bool
}

// DefaultConfig returns the configuration the CLI starts from. Zero retry
// and breaker timing fields of any Config take these values.
func DefaultConfig() Config {
	return Config{
		Delay: time.Second,
		Retry: RetryConfig{
			MaxAttempts:  1,
			InitialDelay: 50 * time.Millisecond,
			MaxDelay:     2 * time.Second,
			Multiplier:   2.0,
		},
		Breaker: BreakerConfig{
			ResetTimeout: 30 * time.Second,
		},
	}
}

// Validate reports the first invalid field.
func (c Config) Validate() error {
	switch {
	case c.Delay < 0:
		return fmt.Errorf("%w: delay must not be negative, got %s", ErrInvalidConfig, c.Delay)
	case c.Timeout < 0:
		return fmt.Errorf("%w: timeout must not be negative, got %s", ErrInvalidConfig, c.Timeout)
	case c.FailEvery < 0:
		return fmt.Errorf("%w: fail-every must not be negative, got %d", ErrInvalidConfig, c.FailEvery)
	case c.Retry.MaxAttempts < 0:
		return fmt.Errorf("%w: max attempts must not be negative, got %d", ErrInvalidConfig, c.Retry.MaxAttempts)
	case c.Retry.Multiplier < 0:
		return fmt.Errorf("%w: multiplier must not be negative, got %g", ErrInvalidConfig, c.Retry.Multiplier)
	case c.Breaker.MaxFailures < 0:
		return fmt.Errorf("%w: breaker max failures must not be negative, got %d", ErrInvalidConfig, c.Breaker.MaxFailures)
	case c.Breaker.ResetTimeout < 0:
		return fmt.Errorf("%w: breaker reset timeout must not be negative, got %s", ErrInvalidConfig, c.Breaker.ResetTimeout)
	}
	return nil
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Retry.MaxAttempts == 0 {
		c.Retry.MaxAttempts = d.Retry.MaxAttempts
	}
	if c.Retry.InitialDelay <= 0 {
		c.Retry.InitialDelay = d.Retry.InitialDelay
	}
	if c.Retry.MaxDelay <= 0 {
		c.Retry.MaxDelay = d.Retry.MaxDelay
	}
	if c.Retry.Multiplier == 0 {
		c.Retry.Multiplier = d.Retry.Multiplier
	}
	if c.Breaker.ResetTimeout == 0 {
		c.Breaker.ResetTimeout = d.Breaker.ResetTimeout
	}
	return c
}
