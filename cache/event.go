package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jonwraymond/memoize/observe"
)

// EventType classifies a store mutation.
type EventType int

const (
	// EventCreated reports a value stored under an absent key.
	EventCreated EventType = iota + 1
	// EventUpdated reports a value replaced under a present key.
	EventUpdated
	// EventRemoved reports a key removed from its region.
	EventRemoved
)

// String returns the lower-case name of the event type.
func (t EventType) String() string {
	switch t {
	case EventCreated:
		return "created"
	case EventUpdated:
		return "updated"
	case EventRemoved:
		return "removed"
	default:
		return "unknown"
	}
}

// Event describes one store mutation. OldValue is nil on creation and
// NewValue is nil on removal.
type Event struct {
	Region   Region
	Key      Key
	Type     EventType
	OldValue any
	NewValue any
}

// String renders the event as "key,old,new" with absent values as null.
func (e Event) String() string {
	return strings.Join([]string{string(e.Key), showValue(e.OldValue), showValue(e.NewValue)}, ",")
}

func showValue(v any) string {
	if v == nil {
		return "null"
	}
	return fmt.Sprint(v)
}

// Sink observes store mutations.
//
// Contract:
// - Ordering: called synchronously, in mutation order, while the store is locked.
// - Reentrancy: must not call back into the Store that invoked it.
// - Errors: returned errors and panics are reported by the store and never
// reach the caller whose call caused the mutation.
type Sink interface {
	OnEvent(ctx context.Context, ev Event) error
}

// SinkFunc adapts an ordinary function to a Sink.
type SinkFunc func(ctx context.Context, ev Event) error

// OnEvent calls f(ctx, ev).
func (f SinkFunc) OnEvent(ctx context.Context, ev Event) error {
	return f(ctx, ev)
}

// MultiSink delivers each event to every sink in order. A failing sink does
// not stop delivery to the rest; all failures are joined.
func MultiSink(sinks ...Sink) Sink {
	return SinkFunc(func(ctx context.Context, ev Event) error {
		var errs []error
		for _, s := range sinks {
			if err := deliver(ctx, s, ev); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	})
}

// LogSink logs every event at info level, using the "key,old,new" line as
// the message.
func LogSink(logger observe.Logger) Sink {
	if logger == nil {
		logger = observe.NopLogger()
	}
	return SinkFunc(func(ctx context.Context, ev Event) error {
		logger.Info(ctx, ev.String(),
			observe.F("cache.region", string(ev.Region)),
			observe.F("cache.event", ev.Type.String()),
		)
		return nil
	})
}

// deliver calls the sink, converting a panic into an error.
func deliver(ctx context.Context, s Sink, ev Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("sink panic: %v", r)
		}
	}()
	return s.OnEvent(ctx, ev)
}
