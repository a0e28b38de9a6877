package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Lookup results recorded on cache.lookups.
const (
	ResultHit  = "hit"
	ResultMiss = "miss"
)

// CacheMetrics records what a cache store does.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: must return quickly; they run on the lookup path.
// - Errors: implementations must not panic.
type CacheMetrics interface {
	// RecordLookup counts one GetOrCompute call as a hit or a miss.
	RecordLookup(ctx context.Context, region string, hit bool)

	// RecordCompute records one compute run behind a miss.
	RecordCompute(ctx context.Context, region string, duration time.Duration, err error)

	// RecordSinkFailure counts an event sink failure.
	RecordSinkFailure(ctx context.Context, region string)
}

// CallMetrics records executions of wrapped calls.
type CallMetrics interface {
	// RecordCall records a call with duration and error status.
	RecordCall(ctx context.Context, meta OperationMeta, duration time.Duration, err error)
}

type cacheMetrics struct {
	lookups       metric.Int64Counter
	computes      metric.Int64Counter
	computeErrors metric.Int64Counter
	computeHist   metric.Float64Histogram
	sinkErrors    metric.Int64Counter
}

// NewCacheMetrics creates the cache instruments on the given meter.
func NewCacheMetrics(meter metric.Meter) (CacheMetrics, error) {
	lookups, err := meter.Int64Counter(
		"cache.lookups",
		metric.WithDescription("Cache lookups partitioned by region and result"),
		metric.WithUnit("{lookup}"),
	)
	if err != nil {
		return nil, err
	}

	computes, err := meter.Int64Counter(
		"cache.computes",
		metric.WithDescription("Compute functions run on cache misses"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, err
	}

	computeErrors, err := meter.Int64Counter(
		"cache.compute.errors",
		metric.WithDescription("Compute functions that failed; failures are never cached"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, err
	}

	computeHist, err := meter.Float64Histogram(
		"cache.compute.duration_ms",
		metric.WithDescription("Compute duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	sinkErrors, err := meter.Int64Counter(
		"cache.sink.errors",
		metric.WithDescription("Event sink failures caught at the store boundary"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, err
	}

	return &cacheMetrics{
		lookups:       lookups,
		computes:      computes,
		computeErrors: computeErrors,
		computeHist:   computeHist,
		sinkErrors:    sinkErrors,
	}, nil
}

func (m *cacheMetrics) RecordLookup(ctx context.Context, region string, hit bool) {
	result := ResultMiss
	if hit {
		result = ResultHit
	}
	m.lookups.Add(ctx, 1, metric.WithAttributes(
		attribute.String("cache.region", region),
		attribute.String("cache.result", result),
	))
}

func (m *cacheMetrics) RecordCompute(ctx context.Context, region string, duration time.Duration, err error) {
	opt := metric.WithAttributes(attribute.String("cache.region", region))
	m.computes.Add(ctx, 1, opt)
	if err != nil {
		m.computeErrors.Add(ctx, 1, opt)
	}
	m.computeHist.Record(ctx, float64(duration.Milliseconds()), opt)
}

func (m *cacheMetrics) RecordSinkFailure(ctx context.Context, region string) {
	m.sinkErrors.Add(ctx, 1, metric.WithAttributes(attribute.String("cache.region", region)))
}

type callMetrics struct {
	total    metric.Int64Counter
	errors   metric.Int64Counter
	duration metric.Float64Histogram
}

// NewCallMetrics creates call instruments named <prefix>.calls,
// <prefix>.errors and <prefix>.duration_ms.
func NewCallMetrics(meter metric.Meter, prefix string) (CallMetrics, error) {
	total, err := meter.Int64Counter(
		prefix+".calls",
		metric.WithDescription("Total number of calls"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, err
	}

	errs, err := meter.Int64Counter(
		prefix+".errors",
		metric.WithDescription("Total number of failed calls"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, err
	}

	duration, err := meter.Float64Histogram(
		prefix+".duration_ms",
		metric.WithDescription("Call duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	return &callMetrics{total: total, errors: errs, duration: duration}, nil
}

func (m *callMetrics) RecordCall(ctx context.Context, meta OperationMeta, duration time.Duration, err error) {
	attrs := []attribute.KeyValue{
		attribute.String("op.id", meta.ID()),
		attribute.String("op.name", meta.Name),
	}
	if meta.Region != "" {
		attrs = append(attrs, attribute.String("op.region", meta.Region))
	}
	opt := metric.WithAttributes(attrs...)

	m.total.Add(ctx, 1, opt)
	if err != nil {
		m.errors.Add(ctx, 1, opt)
	}
	m.duration.Record(ctx, float64(duration.Milliseconds()), opt)
}

// NopCacheMetrics returns a CacheMetrics that records nothing.
func NopCacheMetrics() CacheMetrics { return noopMetrics{} }

// NopCallMetrics returns a CallMetrics that records nothing.
func NopCallMetrics() CallMetrics { return noopMetrics{} }

type noopMetrics struct{}

func (noopMetrics) RecordLookup(context.Context, string, bool)                      {}
func (noopMetrics) RecordCompute(context.Context, string, time.Duration, error)     {}
func (noopMetrics) RecordSinkFailure(context.Context, string)                       {}
func (noopMetrics) RecordCall(context.Context, OperationMeta, time.Duration, error) {}
