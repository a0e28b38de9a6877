// Package cache memoizes slow calls behind derived keys.
//
// Three pieces compose explicitly, with no reflection-driven interception:
//
//   - A KeyFunc projects an operation's arguments onto a Key. DefaultKey uses
//     every argument; Project picks a subset with Selectors such as Arg and
//     TypeName.
//   - A Store holds values per named Region and runs a compute function only
//     on a miss. Concurrent misses on the same key share one compute.
//     Failed computes are never stored. Every mutation is reported to the
//     Store's Sink, synchronously and in order.
//   - An Operation binds a function to a Store, a Region and a KeyFunc and
//     exposes Invoke.
//
// Usage:
//
//	store := cache.NewStore(cache.WithSink(cache.LogSink(logger)))
//	op, err := cache.NewOperation(store, "testCache", "lookup", fetch,
//	    cache.WithKey(cache.Project(cache.TypeName(0), cache.Arg(1))),
//	)
//	rec, err := op.Invoke(ctx, reflect.TypeOf(Driver{}), map[int]int{0: 0}, 7)
package cache
