package remote

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/jonwraymond/memoize/observe"
)

// Record is the answer to one GetData call.
type Record struct {
	Input     int
	Call      uint64 // sequence number of the attempt that produced it
	FetchedAt time.Time
}

// Stats counts what a Client has done.
type Stats struct {
	Calls    uint64 // attempts, including retries
	Failures uint64 // logical calls that returned an error
	LastErr  error
	Breaker  BreakerState
}

// Client is a deliberately slow stand-in for an upstream API.
//
// Contract:
//   - Concurrency: safe for concurrent use.
//   - Context: every attempt honours cancellation and Config.Timeout.
//   - Errors: ErrUnavailable for injected failures, ErrTimeout for attempts
//     cut short by Config.Timeout, ErrCircuitOpen while the breaker is
//     open, or the caller's context error.
type Client struct {
	cfg     Config
	guard   guard
	breaker *breaker // nil when disabled
	call    observe.CallFunc
	meta    observe.OperationMeta
	logger  observe.Logger
	now     func() time.Time

	calls    atomic.Uint64
	failures atomic.Uint64
	lastErr  atomic.Pointer[error]
}

// Option configures a Client.
type Option func(*Client)

// WithMiddleware traces, counts and logs every GetData call.
func WithMiddleware(mw *observe.Middleware) Option {
	return func(c *Client) {
		if mw != nil {
			c.call = mw.Wrap(c.call)
		}
	}
}

// WithLogger sets the logger for per-attempt messages.
func WithLogger(l observe.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithClock overrides the clock used to stamp records and time the breaker.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		if now != nil {
			c.now = now
		}
	}
}

// New creates a Client. Zero retry and breaker timing fields of cfg take
// their DefaultConfig values; zero Delay, Timeout and FailEvery switch those
// features off.
func New(cfg Config, opts ...Option) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg = cfg.withDefaults()

	c := &Client{
		cfg:    cfg,
		meta:   observe.OperationMeta{Name: "getData", Kind: "remote.call"},
		logger: observe.NopLogger(),
		now:    time.Now,
	}
	c.call = c.invoke
	for _, opt := range opts {
		opt(c)
	}

	c.guard = guard{
		timeout: cfg.Timeout,
		retry:   cfg.Retry,
		onRetry: func(attempt int, err error, wait time.Duration) {
			c.logger.Warn(context.Background(), "retrying getData",
				observe.F("attempt", attempt),
				observe.F("wait_ms", wait.Milliseconds()),
				observe.F("error", err.Error()),
			)
		},
	}
	if cfg.Breaker.MaxFailures > 0 {
		c.breaker = &breaker{
			threshold: cfg.Breaker.MaxFailures,
			cooldown:  cfg.Breaker.ResetTimeout,
			now:       c.now,
			onChange: func(from, to BreakerState) {
				c.logger.Warn(context.Background(), "getData breaker changed state",
					observe.F("from", from.String()),
					observe.F("to", to.String()),
				)
			},
		}
	}
	return c, nil
}

// Config returns the effective configuration.
func (c *Client) Config() Config { return c.cfg }

// GetData fetches the record for i, blocking for Config.Delay.
func (c *Client) GetData(ctx context.Context, i int) (Record, error) {
	out, err := c.call(ctx, c.meta, i)
	if err != nil {
		c.failures.Add(1)
		c.lastErr.Store(&err)
		return Record{}, err
	}
	c.lastErr.Store(nil)

	rec, ok := out.(Record)
	if !ok {
		return Record{}, fmt.Errorf("%w: %T", ErrUnexpectedResult, out)
	}
	return rec, nil
}

// Stats returns the client's counters.
func (c *Client) Stats() Stats {
	s := Stats{Calls: c.calls.Load(), Failures: c.failures.Load()}
	if p := c.lastErr.Load(); p != nil {
		s.LastErr = *p
	}
	if c.breaker != nil {
		s.Breaker = c.breaker.current()
	}
	return s
}

func (c *Client) invoke(ctx context.Context, _ observe.OperationMeta, input any) (any, error) {
	i, ok := input.(int)
	if !ok {
		return nil, fmt.Errorf("%w: input %T", ErrUnexpectedResult, input)
	}

	if c.breaker != nil {
		if err := c.breaker.allow(); err != nil {
			return nil, err
		}
	}

	var rec Record
	err := c.guard.run(ctx, func(ctx context.Context) error {
		r, err := c.fetch(ctx, i)
		if err == nil {
			rec = r
		}
		return err
	})
	if c.breaker != nil {
		c.breaker.record(err)
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func (c *Client) fetch(ctx context.Context, i int) (Record, error) {
	n := c.calls.Add(1)
	c.logger.Info(ctx, "getData called", observe.F("input", i), observe.F("call", n))

	timer := time.NewTimer(c.cfg.Delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return Record{}, ctx.Err()
	case <-timer.C:
	}

	if c.cfg.FailEvery > 0 && n%uint64(c.cfg.FailEvery) == 0 {
		return Record{}, ErrUnavailable
	}
	return Record{Input: i, Call: n, FetchedAt: c.now()}, nil
}
