package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jonwraymond/memoize/cache"
	"github.com/jonwraymond/memoize/driver"
	"github.com/jonwraymond/memoize/health"
	"github.com/jonwraymond/memoize/observe"
	"github.com/jonwraymond/memoize/remote"
	"github.com/jonwraymond/memoize/service"
)

const (
	shutdownTimeout = 5 * time.Second
	heapBudget      = 1 << 30
)

// app is everything one run wires together.
type app struct {
	obs    observe.Observer
	logger observe.Logger
	store  *cache.Store
	client *remote.Client
	driver *driver.Driver
}

func run(ctx context.Context, s settings) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := build(ctx, s)
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := a.obs.Shutdown(sctx); err != nil {
			a.logger.Error(sctx, "observer shutdown failed", observe.F("error", err.Error()))
		}
	}()

	if s.Listen != "" {
		ln, err := net.Listen("tcp", s.Listen)
		if err != nil {
			return fmt.Errorf("listen %s: %w", s.Listen, err)
		}
		srv := newServer(a.health())
		go func() {
			if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
				a.logger.Error(ctx, "http server failed", observe.F("error", err.Error()))
			}
		}()
		a.logger.Info(ctx, "serving metrics and health", observe.F("addr", ln.Addr().String()))
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			_ = srv.Shutdown(sctx)
		}()
	}

	sum := a.driver.Run(ctx)
	region := a.store.Stats().Regions[service.Region]
	a.logger.Info(ctx, "memoize stopped",
		observe.F("summary", sum.String()),
		observe.F("entries", region.Entries),
		observe.F("hits", region.Hits),
		observe.F("misses", region.Misses),
		observe.F("remote_calls", a.client.Stats().Calls),
	)
	return nil
}

// build wires observer, store, remote client, service and driver from s.
func build(ctx context.Context, s settings) (_ *app, err error) {
	ocfg := observe.DefaultConfig("memoize")
	ocfg.Version = version
	ocfg.Tracing.Enabled = s.TracingExporter != "" && s.TracingExporter != "none"
	ocfg.Tracing.Exporter = s.TracingExporter
	ocfg.Tracing.SamplePct = s.SamplePct
	ocfg.Metrics.Exporter = s.MetricsExporter
	ocfg.Logging.Level = s.LogLevel

	obs, err := observe.NewObserver(ctx, ocfg)
	if err != nil {
		return nil, fmt.Errorf("observer: %w", err)
	}
	defer func() {
		if err != nil {
			_ = obs.Shutdown(ctx)
		}
	}()
	logger := obs.Logger()

	metrics, err := observe.NewCacheMetrics(obs.Meter())
	if err != nil {
		return nil, fmt.Errorf("cache metrics: %w", err)
	}
	store := cache.NewStore(
		cache.WithSink(cache.LogSink(logger)),
		cache.WithLogger(logger),
		cache.WithMetrics(metrics),
	)

	mw, err := observe.MiddlewareFromObserver(obs, "remote")
	if err != nil {
		return nil, fmt.Errorf("remote middleware: %w", err)
	}
	rcfg := remote.Config{
		Delay:     s.Delay,
		Timeout:   s.Timeout,
		FailEvery: s.FailEvery,
	}
	rcfg.Retry.MaxAttempts = s.Retries + 1
	rcfg.Retry.Jitter = true
	rcfg.Breaker.MaxFailures = s.BreakerFailures
	rcfg.Breaker.ResetTimeout = s.BreakerReset
	client, err := remote.New(rcfg, remote.WithMiddleware(mw), remote.WithLogger(logger))
	if err != nil {
		return nil, err
	}

	svc, err := service.New(store, client,
		service.WithLogger(logger),
		service.WithTracer(observe.NewTracer(obs.Tracer())),
	)
	if err != nil {
		return nil, err
	}

	drv, err := driver.New(driver.Config{Interval: s.Interval, MaxCycles: s.Cycles}, svc, logger)
	if err != nil {
		return nil, err
	}

	return &app{obs: obs, logger: logger, store: store, client: client, driver: drv}, nil
}

// health registers the cache, runtime and remote checkers.
func (a *app) health() *health.Aggregator {
	agg := health.NewAggregator(health.DefaultCheckTimeout)
	agg.Register("cache", health.NewStoreChecker(a.store))
	agg.Register("runtime", health.NewRuntimeChecker(heapBudget))
	agg.Register("remote", remoteChecker(a.client))
	return agg
}

// remoteChecker is unhealthy while the breaker is open and degraded while
// the most recent remote call failed.
func remoteChecker(c *remote.Client) health.Checker {
	return health.NewCheckerFunc("remote", func(context.Context) health.Result {
		st := c.Stats()
		details := map[string]any{
			"calls":    st.Calls,
			"failures": st.Failures,
			"breaker":  st.Breaker.String(),
		}
		if st.Breaker == remote.BreakerOpen {
			return health.Unhealthy("breaker open", st.LastErr).WithDetails(details)
		}
		if st.LastErr != nil {
			return health.Degraded("last call failed").WithDetails(details)
		}
		return health.Healthy(fmt.Sprintf("%d calls", st.Calls)).WithDetails(details)
	})
}

func newServer(agg *health.Aggregator) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	health.RegisterHandlers(mux, agg)
	return &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}
