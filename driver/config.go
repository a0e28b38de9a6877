package driver

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidConfig indicates a Config that failed validation.
var ErrInvalidConfig = errors.New("driver: invalid config")

// DefaultInterval is the pause between cycles when Config.Interval is zero.
const DefaultInterval = 100 * time.Millisecond

// Config configures a Driver.
type Config struct {
	// Interval is the pause after every cycle.
	// Default: 100ms
	Interval time.Duration

	// MaxCycles stops the loop after this many cycles. Zero runs until the
	// context is cancelled.
	MaxCycles int
}

// Validate reports the first invalid field.
func (c Config) Validate() error {
	if c.Interval < 0 {
		return fmt.Errorf("%w: interval must not be negative, got %s", ErrInvalidConfig, c.Interval)
	}
	if c.MaxCycles < 0 {
		return fmt.Errorf("%w: max cycles must not be negative, got %d", ErrInvalidConfig, c.MaxCycles)
	}
	return nil
}
