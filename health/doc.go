// Package health reports whether the cache and its process are fit to serve.
//
// A Checker reports a Status of Healthy, Degraded or Unhealthy. An
// Aggregator runs several checkers in parallel under one timeout, and the
// HTTP handlers expose the aggregate:
//
//	agg := health.NewAggregator(5 * time.Second)
//	agg.Register("cache", health.NewStoreChecker(store))
//	agg.Register("runtime", health.NewRuntimeChecker(0))
//
//	mux := http.NewServeMux()
//	health.RegisterHandlers(mux, agg) // /healthz, /readyz, /health
//
// StoreChecker turns degraded once any cache event sink has failed.
package health
