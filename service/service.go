// Package service exposes cached lookups backed by the remote API.
//
// All three lookups share the Region "testCache". Their keys are shaped so
// they do not collide, but nothing prevents it: a shared region is a shared
// namespace.
package service

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"reflect"

	"github.com/jonwraymond/memoize/cache"
	"github.com/jonwraymond/memoize/observe"
	"github.com/jonwraymond/memoize/remote"
)

// Region is the cache region shared by every lookup.
const Region cache.Region = "testCache"

// ErrNilType is returned when a lookup is given a nil reflect.Type.
var ErrNilType = errors.New("service: type is nil")

// Fetcher is the remote dependency of a Service.
type Fetcher interface {
	GetData(ctx context.Context, i int) (remote.Record, error)
}

// Service runs remote lookups through a cache.Store.
type Service struct {
	remote Fetcher
	logger observe.Logger

	get        *cache.Operation[remote.Record]
	extended   *cache.Operation[remote.Record]
	bySpecific *cache.Operation[remote.Record]
}

type options struct {
	logger observe.Logger
	tracer observe.Tracer
	region cache.Region
}

// Option configures a Service.
type Option func(*options)

// WithLogger sets the service logger.
func WithLogger(l observe.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithTracer records a span per lookup.
func WithTracer(t observe.Tracer) Option {
	return func(o *options) {
		if t != nil {
			o.tracer = t
		}
	}
}

// WithRegion overrides the shared region.
func WithRegion(r cache.Region) Option {
	return func(o *options) { o.region = r }
}

// New creates a Service caching into store.
func New(store *cache.Store, fetcher Fetcher, opts ...Option) (*Service, error) {
	if fetcher == nil {
		return nil, errors.New("service: fetcher is nil")
	}
	o := options{
		logger: observe.NopLogger(),
		tracer: observe.NopTracer(),
		region: Region,
	}
	for _, opt := range opts {
		opt(&o)
	}

	s := &Service{remote: fetcher, logger: o.logger}

	var err error
	s.get, err = cache.NewOperation(store, o.region, "get", s.fetchByInput,
		cache.WithTracer(o.tracer))
	if err != nil {
		return nil, fmt.Errorf("service: get: %w", err)
	}
	s.extended, err = cache.NewOperation(store, o.region, "getExtended", s.fetchByType,
		cache.WithTracer(o.tracer))
	if err != nil {
		return nil, fmt.Errorf("service: getExtended: %w", err)
	}
	s.bySpecific, err = cache.NewOperation(store, o.region, "getBySpecificParam", s.fetchBySpecific,
		cache.WithKey(cache.Project(cache.TypeName(0), cache.Arg(1))),
		cache.WithTracer(o.tracer))
	if err != nil {
		return nil, fmt.Errorf("service: getBySpecificParam: %w", err)
	}
	return s, nil
}

// Get returns the record for i. Every argument is part of the key.
func (s *Service) Get(ctx context.Context, i int) (remote.Record, error) {
	return s.get.Invoke(ctx, i)
}

// GetExtended returns the record derived from typ and m. Every argument is
// part of the key.
func (s *Service) GetExtended(ctx context.Context, typ reflect.Type, m map[int]int) (remote.Record, error) {
	if typ == nil {
		return remote.Record{}, ErrNilType
	}
	return s.extended.Invoke(ctx, typ, m)
}

// GetBySpecificParam returns the record derived from typ and m. The key is
// the simple name of typ and the contents of m; i is ignored for keying.
func (s *Service) GetBySpecificParam(ctx context.Context, typ reflect.Type, m map[int]int, i int) (remote.Record, error) {
	if typ == nil {
		return remote.Record{}, ErrNilType
	}
	return s.bySpecific.Invoke(ctx, typ, m, i)
}

// EvictBySpecificParam drops the entry GetBySpecificParam would read.
func (s *Service) EvictBySpecificParam(ctx context.Context, typ reflect.Type, m map[int]int) error {
	return s.bySpecific.Evict(ctx, typ, m, 0)
}

func (s *Service) fetchByInput(ctx context.Context, args ...any) (remote.Record, error) {
	return s.remote.GetData(ctx, args[0].(int))
}

func (s *Service) fetchByType(ctx context.Context, args ...any) (remote.Record, error) {
	typ, m := args[0].(reflect.Type), args[1].(map[int]int)
	return s.remote.GetData(ctx, typeHash(typ)+len(m))
}

func (s *Service) fetchBySpecific(ctx context.Context, args ...any) (remote.Record, error) {
	typ, m, i := args[0].(reflect.Type), args[1].(map[int]int), args[2].(int)
	s.logger.Info(ctx, "getBySpecificParam",
		observe.F("type", typ.Name()),
		observe.F("map", fmt.Sprint(m)),
		observe.F("i", i),
	)
	return s.remote.GetData(ctx, typeHash(typ)+len(m))
}

// typeHash is a stable, non-negative hash of a type's qualified name.
func typeHash(typ reflect.Type) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(typ.PkgPath() + "." + typ.String()))
	return int(h.Sum32() & 0x7fffffff)
}
