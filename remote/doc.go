// Package remote simulates the slow upstream API whose results the cache
// exists to avoid recomputing.
//
// A Client blocks for a configurable delay on every call, can inject
// periodic failures, and guards each call with a timeout and an optional
// retry policy. An optional circuit breaker stops calling upstream after a
// run of failures and tries again once its reset timeout has passed. Calls
// are traced, counted and logged through an observe.Middleware.
//
//	client, err := remote.New(remote.Config{Delay: time.Second},
//	    remote.WithMiddleware(mw),
//	    remote.WithLogger(logger),
//	)
//	rec, err := client.GetData(ctx, 42)
package remote
