package remote

import (
	"sync"
	"time"
)

// BreakerState is the position of a Client's circuit breaker.
type BreakerState int

const (
	// BreakerClosed lets every call through.
	BreakerClosed BreakerState = iota
	// BreakerOpen rejects calls with ErrCircuitOpen.
	BreakerOpen
	// BreakerHalfOpen lets a single trial call through.
	BreakerHalfOpen
)

// String returns the state name.
func (s BreakerState) String() string {
	switch s {
	case BreakerClosed:
		return "closed"
	case BreakerOpen:
		return "open"
	case BreakerHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// breaker counts consecutive failed calls. After threshold failures it opens
// for cooldown, then admits one trial whose outcome closes or reopens it.
type breaker struct {
	threshold int
	cooldown  time.Duration
	now       func() time.Time
	onChange  func(from, to BreakerState)

	mu       sync.Mutex
	state    BreakerState
	failures int
	openedAt time.Time
	trying   bool
}

// allow reports whether a call may proceed.
func (b *breaker) allow() error {
	b.mu.Lock()
	from := b.state
	if b.state == BreakerOpen && b.now().Sub(b.openedAt) >= b.cooldown {
		b.state = BreakerHalfOpen
		b.trying = false
	}

	var err error
	switch b.state {
	case BreakerOpen:
		err = ErrCircuitOpen
	case BreakerHalfOpen:
		if b.trying {
			err = ErrCircuitOpen
		} else {
			b.trying = true
		}
	}
	to := b.state
	b.mu.Unlock()

	b.notify(from, to)
	return err
}

// record feeds the outcome of an admitted call. Only failures of the
// upstream count; cancellations by the caller are ignored.
func (b *breaker) record(err error) {
	b.mu.Lock()
	from := b.state
	failed := retryable(err)

	switch {
	case err != nil && !failed:
		if b.state == BreakerHalfOpen {
			b.trying = false
		}
	case failed && b.state == BreakerHalfOpen:
		b.open()
	case failed:
		b.failures++
		if b.failures >= b.threshold {
			b.open()
		}
	default:
		b.state = BreakerClosed
		b.failures = 0
		b.trying = false
	}
	to := b.state
	b.mu.Unlock()

	b.notify(from, to)
}

func (b *breaker) current() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

func (b *breaker) open() {
	b.state = BreakerOpen
	b.openedAt = b.now()
	b.failures = 0
	b.trying = false
}

func (b *breaker) notify(from, to BreakerState) {
	if from != to && b.onChange != nil {
		b.onChange(from, to)
	}
}
