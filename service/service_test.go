package service

import (
	"bytes"
	"context"
	"errors"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jonwraymond/memoize/cache"
	"github.com/jonwraymond/memoize/observe"
	"github.com/jonwraymond/memoize/remote"
)

type caller struct{}

// fakeFetcher records inputs and answers immediately.
type fakeFetcher struct {
	mu     sync.Mutex
	inputs []int
	errs   []error // consumed in order; nil entries succeed
	delay  time.Duration
}

func (f *fakeFetcher) GetData(_ context.Context, i int) (remote.Record, error) {
	time.Sleep(f.delay)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.inputs = append(f.inputs, i)
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		if err != nil {
			return remote.Record{}, err
		}
	}
	return remote.Record{Input: i, Call: uint64(len(f.inputs))}, nil
}

func (f *fakeFetcher) calls() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int(nil), f.inputs...)
}

func newTestService(t *testing.T, f *fakeFetcher, opts ...Option) (*Service, *cache.Store) {
	t.Helper()
	store := cache.NewStore()
	s, err := New(store, f, opts...)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return s, store
}

func TestNew_Validation(t *testing.T) {
	if _, err := New(cache.NewStore(), nil); err == nil {
		t.Error("expected error for nil fetcher")
	}
	if _, err := New(nil, &fakeFetcher{}); !errors.Is(err, cache.ErrNilStore) {
		t.Errorf("error = %v, want ErrNilStore", err)
	}
	if _, err := New(cache.NewStore(), &fakeFetcher{}, WithRegion("")); !errors.Is(err, cache.ErrInvalidRegion) {
		t.Errorf("error = %v, want ErrInvalidRegion", err)
	}
}

func TestService_Get(t *testing.T) {
	f := &fakeFetcher{}
	s, _ := newTestService(t, f)
	ctx := context.Background()

	first, err := s.Get(ctx, 5)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	second, _ := s.Get(ctx, 5)
	_, _ = s.Get(ctx, 6)

	if first != second {
		t.Errorf("hit returned %+v, want %+v", second, first)
	}
	if got := f.calls(); len(got) != 2 || got[0] != 5 || got[1] != 6 {
		t.Errorf("remote inputs = %v, want [5 6]", got)
	}
}

func TestService_GetExtended(t *testing.T) {
	f := &fakeFetcher{}
	s, _ := newTestService(t, f)
	ctx := context.Background()
	typ := reflect.TypeOf(caller{})

	_, _ = s.GetExtended(ctx, typ, map[int]int{0: 0})
	_, _ = s.GetExtended(ctx, typ, map[int]int{0: 0})
	_, _ = s.GetExtended(ctx, typ, map[int]int{0: 0, 1: 1})

	got := f.calls()
	if len(got) != 2 {
		t.Fatalf("remote calls = %d, want 2", len(got))
	}
	if got[0] != typeHash(typ)+1 || got[1] != typeHash(typ)+2 {
		t.Errorf("remote inputs = %v, want type hash plus map size", got)
	}
}

func TestService_GetBySpecificParam_IgnoresCounter(t *testing.T) {
	f := &fakeFetcher{}
	var buf bytes.Buffer
	s, store := newTestService(t, f, WithLogger(observe.NewLoggerWithWriter("info", &buf)))
	ctx := context.Background()
	typ := reflect.TypeOf(caller{})

	r1, err := s.GetBySpecificParam(ctx, typ, map[int]int{1: 1}, 1)
	if err != nil {
		t.Fatalf("GetBySpecificParam failed: %v", err)
	}
	r2, _ := s.GetBySpecificParam(ctx, typ, map[int]int{1: 1}, 16)

	if len(f.calls()) != 1 {
		t.Errorf("remote calls = %d, want 1", len(f.calls()))
	}
	if r1 != r2 {
		t.Errorf("second call returned %+v, want %+v", r2, r1)
	}
	if _, ok := store.Get(ctx, Region, `["caller",{1:1}]`); !ok {
		t.Error(`entry not stored under ["caller",{1:1}]`)
	}
	if !strings.Contains(buf.String(), `"type":"caller"`) {
		t.Errorf("parameters not logged:\n%s", buf.String())
	}
}

func TestService_DriverSequence(t *testing.T) {
	f := &fakeFetcher{}
	s, store := newTestService(t, f)
	ctx := context.Background()
	typ := reflect.TypeOf(caller{})

	// Same shape as the driver loop: {i%3: i%5} repeats every 15 cycles.
	for i := 0; i < 30; i++ {
		if _, err := s.GetBySpecificParam(ctx, typ, map[int]int{i % 3: i % 5}, i); err != nil {
			t.Fatalf("cycle %d failed: %v", i, err)
		}
	}

	if got := len(f.calls()); got != 15 {
		t.Errorf("remote calls = %d, want 15", got)
	}
	if got := store.Len(Region); got != 15 {
		t.Errorf("entries = %d, want 15", got)
	}
}

func TestService_SharedRegion(t *testing.T) {
	f := &fakeFetcher{}
	s, store := newTestService(t, f)
	ctx := context.Background()
	typ := reflect.TypeOf(caller{})

	_, _ = s.Get(ctx, 0)
	_, _ = s.GetExtended(ctx, typ, map[int]int{})
	_, _ = s.GetBySpecificParam(ctx, typ, map[int]int{}, 0)

	if regions := store.Regions(); len(regions) != 1 || regions[0] != Region {
		t.Errorf("Regions() = %v, want [%s]", regions, Region)
	}
	if got := store.Len(Region); got != 3 {
		t.Errorf("entries = %d, want 3", got)
	}
}

func TestService_FailureNotCached(t *testing.T) {
	f := &fakeFetcher{errs: []error{remote.ErrUnavailable}}
	s, store := newTestService(t, f)
	ctx := context.Background()

	if _, err := s.Get(ctx, 1); !errors.Is(err, remote.ErrUnavailable) {
		t.Fatalf("error = %v, want ErrUnavailable", err)
	}
	if store.Len(Region) != 0 {
		t.Error("failure was cached")
	}
	if _, err := s.Get(ctx, 1); err != nil {
		t.Fatalf("retry failed: %v", err)
	}
	if len(f.calls()) != 2 {
		t.Errorf("remote calls = %d, want 2", len(f.calls()))
	}
}

func TestService_NilType(t *testing.T) {
	s, _ := newTestService(t, &fakeFetcher{})
	ctx := context.Background()

	if _, err := s.GetExtended(ctx, nil, nil); !errors.Is(err, ErrNilType) {
		t.Errorf("GetExtended error = %v", err)
	}
	if _, err := s.GetBySpecificParam(ctx, nil, nil, 0); !errors.Is(err, ErrNilType) {
		t.Errorf("GetBySpecificParam error = %v", err)
	}
}

func TestService_Evict(t *testing.T) {
	f := &fakeFetcher{}
	s, _ := newTestService(t, f)
	ctx := context.Background()
	typ := reflect.TypeOf(caller{})

	_, _ = s.GetBySpecificParam(ctx, typ, map[int]int{2: 2}, 1)
	if err := s.EvictBySpecificParam(ctx, typ, map[int]int{2: 2}); err != nil {
		t.Fatalf("Evict failed: %v", err)
	}
	_, _ = s.GetBySpecificParam(ctx, typ, map[int]int{2: 2}, 2)

	if len(f.calls()) != 2 {
		t.Errorf("remote calls = %d, want 2", len(f.calls()))
	}
}

func TestService_ConcurrentLookupsShareRemoteCall(t *testing.T) {
	f := &fakeFetcher{delay: 20 * time.Millisecond}
	s, _ := newTestService(t, f)
	ctx := context.Background()
	typ := reflect.TypeOf(caller{})

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, err := s.GetBySpecificParam(ctx, typ, map[int]int{0: 0}, i); err != nil {
				t.Errorf("lookup %d failed: %v", i, err)
			}
		}(i)
	}
	wg.Wait()

	if got := len(f.calls()); got != 1 {
		t.Errorf("remote calls = %d, want 1", got)
	}
}

func TestTypeHash(t *testing.T) {
	a := typeHash(reflect.TypeOf(caller{}))
	if a < 0 {
		t.Errorf("typeHash = %d, want non-negative", a)
	}
	if a != typeHash(reflect.TypeOf(caller{})) {
		t.Error("typeHash is not stable")
	}
	if a == typeHash(reflect.TypeOf(0)) {
		t.Error("distinct types hashed equal")
	}
}
