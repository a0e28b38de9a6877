// Package driver runs the periodic lookup loop that exercises the cache.
package driver

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/jonwraymond/memoize/observe"
	"github.com/jonwraymond/memoize/remote"
)

// Lookup is the cached call the driver repeats.
type Lookup interface {
	GetBySpecificParam(ctx context.Context, typ reflect.Type, m map[int]int, i int) (remote.Record, error)
}

// Driver calls Lookup once per cycle with a small, repeating argument set,
// so that after the first few cycles every call is a cache hit.
type Driver struct {
	cfg    Config
	lookup Lookup
	logger observe.Logger
}

// Summary describes a finished run.
type Summary struct {
	Cycles   int
	Failures int
	Elapsed  time.Duration
}

// String renders the summary for humans, e.g.
// "1,200 cycles, 3 failures in 2m0s (10 cycles/s)".
func (s Summary) String() string {
	rate := 0.0
	if s.Elapsed > 0 {
		rate = float64(s.Cycles) / s.Elapsed.Seconds()
	}
	return fmt.Sprintf("%s cycles, %s failures in %s (%s cycles/s)",
		humanize.Comma(int64(s.Cycles)),
		humanize.Comma(int64(s.Failures)),
		s.Elapsed.Round(time.Millisecond),
		humanize.FtoaWithDigits(rate, 2),
	)
}

// New creates a Driver.
func New(cfg Config, lookup Lookup, logger observe.Logger) (*Driver, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if lookup == nil {
		return nil, errors.New("driver: lookup is nil")
	}
	if cfg.Interval == 0 {
		cfg.Interval = DefaultInterval
	}
	if logger == nil {
		logger = observe.NopLogger()
	}
	return &Driver{cfg: cfg, lookup: lookup, logger: logger}, nil
}

// Run loops until ctx is cancelled or MaxCycles cycles have completed.
// Failed lookups are logged and counted; they do not stop the loop.
func (d *Driver) Run(ctx context.Context) Summary {
	start := time.Now()
	typ := reflect.TypeOf(Driver{})

	var sum Summary
	for i := 0; d.cfg.MaxCycles == 0 || i < d.cfg.MaxCycles; i++ {
		if ctx.Err() != nil {
			break
		}

		m := map[int]int{i % 3: i % 5}
		if _, err := d.lookup.GetBySpecificParam(ctx, typ, m, i); err != nil {
			if ctx.Err() != nil {
				break
			}
			sum.Failures++
			d.logger.Warn(ctx, "cycle failed", observe.F("cycle", i+1), observe.F("error", err.Error()))
		}
		sum.Cycles++
		d.logger.Info(ctx, "completed cycle", observe.F("cycle", i+1))

		if d.cfg.MaxCycles != 0 && sum.Cycles >= d.cfg.MaxCycles {
			break
		}
		if !sleep(ctx, d.cfg.Interval) {
			break
		}
	}

	sum.Elapsed = time.Since(start)
	d.logger.Info(ctx, "driver stopped",
		observe.F("summary", sum.String()),
		observe.F("cycles", sum.Cycles),
		observe.F("failures", sum.Failures),
	)
	return sum
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
