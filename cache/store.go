package cache

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/jonwraymond/memoize/observe"
)

// ComputeFunc produces the value for a missing key.
type ComputeFunc func(ctx context.Context) (any, error)

// Store is a region-scoped in-memory cache with compute-on-miss semantics.
//
// Contract:
//   - Concurrency: safe for concurrent use. Concurrent misses on the same
//     region and key share a single compute; every caller receives its value
//     or its error.
//   - Context: the compute of a shared miss runs with the context of the
//     caller that started it.
//   - Events: every mutation is delivered to the sink before the mutating
//     call returns, in mutation order.
//   - Lifetime: entries stay until invalidated; there is no expiry or bound.
type Store struct {
	mu      sync.RWMutex
	regions map[Region]*regionState
	flights singleflight.Group

	sink         Sink
	logger       observe.Logger
	metrics      observe.CacheMetrics
	sinkFailures atomic.Uint64
}

type regionState struct {
	entries map[Key]any

	hits            atomic.Uint64
	misses          atomic.Uint64
	computes        atomic.Uint64
	computeFailures atomic.Uint64
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithSink sets the sink that observes every mutation.
func WithSink(s Sink) StoreOption {
	return func(st *Store) { st.sink = s }
}

// WithLogger sets the logger used to report sink failures.
func WithLogger(l observe.Logger) StoreOption {
	return func(st *Store) {
		if l != nil {
			st.logger = l
		}
	}
}

// WithMetrics sets the lookup and compute instruments.
func WithMetrics(m observe.CacheMetrics) StoreOption {
	return func(st *Store) {
		if m != nil {
			st.metrics = m
		}
	}
}

// NewStore creates an empty store.
func NewStore(opts ...StoreOption) *Store {
	s := &Store{
		regions: make(map[Region]*regionState),
		logger:  observe.NopLogger(),
		metrics: observe.NopCacheMetrics(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GetOrCompute returns the value stored under (region, key). On a miss it
// runs compute once, stores the result and emits EventCreated. A failed
// compute stores nothing and is returned as a *ComputeError.
func (s *Store) GetOrCompute(ctx context.Context, region Region, key Key, compute ComputeFunc) (any, error) {
	v, _, err := s.getOrCompute(ctx, region, key, compute, nil)
	return v, err
}

// getOrCompute reports whether this call ran compute. When keep is non-nil
// and returns false for a computed value, the value is returned uncached.
func (s *Store) getOrCompute(ctx context.Context, region Region, key Key, compute ComputeFunc, keep func(any) bool) (any, bool, error) {
	if err := ValidateRegion(region); err != nil {
		return nil, false, err
	}
	if compute == nil {
		return nil, false, ErrNilFunc
	}

	rs := s.region(region)
	if v, ok := s.read(rs, key); ok {
		rs.hits.Add(1)
		s.metrics.RecordLookup(ctx, string(region), true)
		return v, false, nil
	}
	rs.misses.Add(1)
	s.metrics.RecordLookup(ctx, string(region), false)

	// Do runs the closure on the calling goroutine of the first caller only.
	computed := false
	v, err, _ := s.flights.Do(string(region)+"\x00"+string(key), func() (any, error) {
		// A flight for this key may have finished between read and Do.
		if v, ok := s.read(rs, key); ok {
			return v, nil
		}

		computed = true
		start := time.Now()
		v, err := compute(ctx)
		s.metrics.RecordCompute(ctx, string(region), time.Since(start), err)
		rs.computes.Add(1)
		if err != nil {
			rs.computeFailures.Add(1)
			return nil, &ComputeError{Region: region, Key: key, Err: err}
		}

		if keep == nil || keep(v) {
			s.write(ctx, region, rs, key, v)
		}
		return v, nil
	})
	if err != nil {
		return nil, computed, err
	}
	return v, computed, nil
}

// Get returns the value stored under (region, key) without computing.
func (s *Store) Get(_ context.Context, region Region, key Key) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rs, ok := s.regions[region]
	if !ok {
		return nil, false
	}
	v, ok := rs.entries[key]
	return v, ok
}

// Put stores value under (region, key), replacing any previous value.
// It emits EventCreated or EventUpdated.
func (s *Store) Put(ctx context.Context, region Region, key Key, value any) error {
	if err := ValidateRegion(region); err != nil {
		return err
	}
	s.write(ctx, region, s.region(region), key, value)
	return nil
}

// Invalidate removes (region, key) and emits EventRemoved. Removing an
// absent key is a no-op, not an error.
func (s *Store) Invalidate(ctx context.Context, region Region, key Key) error {
	if err := ValidateRegion(region); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rs, ok := s.regions[region]
	if !ok {
		return nil
	}
	old, ok := rs.entries[key]
	if !ok {
		return nil
	}
	delete(rs.entries, key)
	s.emitLocked(ctx, Event{Region: region, Key: key, Type: EventRemoved, OldValue: old})
	return nil
}

// Clear removes every entry of region, emitting one EventRemoved per entry
// in key order.
func (s *Store) Clear(ctx context.Context, region Region) error {
	if err := ValidateRegion(region); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rs, ok := s.regions[region]
	if !ok {
		return nil
	}
	keys := make([]Key, 0, len(rs.entries))
	for k := range rs.entries {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	for _, k := range keys {
		old := rs.entries[k]
		delete(rs.entries, k)
		s.emitLocked(ctx, Event{Region: region, Key: k, Type: EventRemoved, OldValue: old})
	}
	return nil
}

// Len returns the number of entries in region.
func (s *Store) Len(region Region) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if rs, ok := s.regions[region]; ok {
		return len(rs.entries)
	}
	return 0
}

// Regions returns the names of all regions the store has seen, sorted.
func (s *Store) Regions() []Region {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]Region, 0, len(s.regions))
	for name := range s.regions {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names
}

// RegionStats is a point-in-time view of one region.
type RegionStats struct {
	Entries         int
	Hits            uint64
	Misses          uint64
	Computes        uint64
	ComputeFailures uint64
}

// Stats is a point-in-time view of a Store.
type Stats struct {
	Regions      map[Region]RegionStats
	SinkFailures uint64
}

// Stats returns counters for every region.
func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := Stats{
		Regions:      make(map[Region]RegionStats, len(s.regions)),
		SinkFailures: s.sinkFailures.Load(),
	}
	for name, rs := range s.regions {
		out.Regions[name] = RegionStats{
			Entries:         len(rs.entries),
			Hits:            rs.hits.Load(),
			Misses:          rs.misses.Load(),
			Computes:        rs.computes.Load(),
			ComputeFailures: rs.computeFailures.Load(),
		}
	}
	return out
}

// region returns the state for name, creating it on first use.
func (s *Store) region(name Region) *regionState {
	s.mu.RLock()
	rs, ok := s.regions[name]
	s.mu.RUnlock()
	if ok {
		return rs
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if rs, ok = s.regions[name]; !ok {
		rs = &regionState{entries: make(map[Key]any)}
		s.regions[name] = rs
	}
	return rs
}

func (s *Store) read(rs *regionState, key Key) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := rs.entries[key]
	return v, ok
}

func (s *Store) write(ctx context.Context, region Region, rs *regionState, key Key, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()

	old, existed := rs.entries[key]
	rs.entries[key] = value

	ev := Event{Region: region, Key: key, Type: EventCreated, NewValue: value}
	if existed {
		ev.Type = EventUpdated
		ev.OldValue = old
	}
	s.emitLocked(ctx, ev)
}

// emitLocked delivers ev to the sink. Caller must hold s.mu.
func (s *Store) emitLocked(ctx context.Context, ev Event) {
	if s.sink == nil {
		return
	}
	err := deliver(ctx, s.sink, ev)
	if err == nil {
		return
	}

	s.sinkFailures.Add(1)
	s.metrics.RecordSinkFailure(ctx, string(ev.Region))
	s.logger.Error(ctx, "cache event sink failed",
		observe.F("cache.region", string(ev.Region)),
		observe.F("cache.key", string(ev.Key)),
		observe.F("cache.event", ev.Type.String()),
		observe.F("error", (&SinkError{Event: ev, Err: err}).Error()),
	)
}
