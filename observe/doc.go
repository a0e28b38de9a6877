// Package observe provides observability primitives for cached operations
// and the remote calls behind them.
//
// It is a pure instrumentation library: no caching, no transport, no I/O
// beyond exporter setup. Consumers wire the observer into cache.Store,
// cache.Operation and remote.Client.
package observe
