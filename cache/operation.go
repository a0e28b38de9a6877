package cache

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"

	"github.com/jonwraymond/memoize/observe"
)

// Func is the signature of a function an Operation memoizes.
type Func[V any] func(ctx context.Context, args ...any) (V, error)

// Operation binds a function to a Store region and a KeyFunc.
//
// Contract:
//   - Concurrency: safe for concurrent use.
//   - Errors: key derivation failures are *KeyError and never touch the
//     store; function failures are *ComputeError and are never cached.
type Operation[V any] struct {
	store  *Store
	region Region
	fn     Func[V]
	meta   observe.OperationMeta
	cfg    operationConfig
	logger observe.Logger
}

type operationConfig struct {
	key       KeyFunc
	condition func(args []any) bool
	unless    func(v any) bool
	tracer    observe.Tracer
}

// OperationOption configures an Operation.
type OperationOption func(*operationConfig)

// WithKey sets the key projection. The default is DefaultKey.
func WithKey(fn KeyFunc) OperationOption {
	return func(c *operationConfig) {
		if fn != nil {
			c.key = fn
		}
	}
}

// WithCondition bypasses the cache entirely for calls whose arguments do not
// satisfy pred. Bypassed calls neither read nor write the store.
func WithCondition(pred func(args []any) bool) OperationOption {
	return func(c *operationConfig) { c.condition = pred }
}

// WithUnless returns, but does not store, computed results for which pred
// reports true.
func WithUnless(pred func(v any) bool) OperationOption {
	return func(c *operationConfig) { c.unless = pred }
}

// WithTracer records a span per Invoke.
func WithTracer(t observe.Tracer) OperationOption {
	return func(c *operationConfig) {
		if t != nil {
			c.tracer = t
		}
	}
}

// NewOperation creates an Operation named name that caches fn's results in
// region of store.
func NewOperation[V any](store *Store, region Region, name string, fn Func[V], opts ...OperationOption) (*Operation[V], error) {
	if store == nil {
		return nil, ErrNilStore
	}
	if fn == nil {
		return nil, ErrNilFunc
	}
	if err := ValidateRegion(region); err != nil {
		return nil, err
	}
	meta := observe.OperationMeta{Region: string(region), Name: name}
	if err := meta.Validate(); err != nil {
		return nil, err
	}

	cfg := operationConfig{
		key:    DefaultKey,
		tracer: observe.NopTracer(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	return &Operation[V]{
		store:  store,
		region: region,
		fn:     fn,
		meta:   meta,
		cfg:    cfg,
		logger: store.logger.WithOperation(meta),
	}, nil
}

// Name returns the operation name.
func (o *Operation[V]) Name() string { return o.meta.Name }

// Region returns the region the operation caches into.
func (o *Operation[V]) Region() Region { return o.region }

// Key derives the key Invoke would use for args.
func (o *Operation[V]) Key(args ...any) (Key, error) {
	k, err := o.cfg.key(args...)
	if err != nil {
		return "", asKeyError(o.meta.Name, err)
	}
	return k, nil
}

// Invoke returns the cached result for args' key, calling the function only
// on a miss.
func (o *Operation[V]) Invoke(ctx context.Context, args ...any) (V, error) {
	var zero V

	if o.cfg.condition != nil && !o.cfg.condition(args) {
		v, err := o.fn(ctx, args...)
		if err != nil {
			return zero, &ComputeError{Region: o.region, Err: err}
		}
		return v, nil
	}

	key, err := o.Key(args...)
	if err != nil {
		return zero, err
	}

	ctx, span := o.cfg.tracer.StartSpan(ctx, o.meta, attribute.String("cache.key", string(key)))

	var keep func(any) bool
	if o.cfg.unless != nil {
		keep = func(v any) bool { return !o.cfg.unless(v) }
	}
	raw, computed, err := o.store.getOrCompute(ctx, o.region, key, func(ctx context.Context) (any, error) {
		return o.fn(ctx, args...)
	}, keep)

	span.SetAttributes(attribute.Bool("cache.hit", err == nil && !computed))
	o.cfg.tracer.EndSpan(span, err)

	if err != nil {
		o.logger.Debug(ctx, "cache compute failed", observe.F("cache.key", string(key)), observe.F("error", err.Error()))
		return zero, err
	}
	if computed {
		o.logger.Debug(ctx, "cache miss", observe.F("cache.key", string(key)))
	} else {
		o.logger.Debug(ctx, "cache hit", observe.F("cache.key", string(key)))
	}

	if raw == nil {
		return zero, nil
	}
	v, ok := raw.(V)
	if !ok {
		return zero, fmt.Errorf("%w: %s holds %T", ErrValueType, key, raw)
	}
	return v, nil
}

// Evict removes the entry Invoke would read for args.
func (o *Operation[V]) Evict(ctx context.Context, args ...any) error {
	key, err := o.Key(args...)
	if err != nil {
		return err
	}
	return o.store.Invalidate(ctx, o.region, key)
}
