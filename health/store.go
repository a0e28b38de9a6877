package health

import (
	"context"
	"fmt"

	"github.com/jonwraymond/memoize/cache"
)

// StatsSource is anything that reports cache.Stats, normally a *cache.Store.
type StatsSource interface {
	Stats() cache.Stats
}

// StoreChecker reports a cache store as degraded once any event sink
// delivery has failed. Per-region counters are included as details.
type StoreChecker struct {
	store StatsSource
}

// NewStoreChecker creates a checker for store.
func NewStoreChecker(store StatsSource) *StoreChecker {
	return &StoreChecker{store: store}
}

// Name returns "cache".
func (c *StoreChecker) Name() string { return "cache" }

// Check inspects the store's counters.
func (c *StoreChecker) Check(ctx context.Context) Result {
	if err := ctx.Err(); err != nil {
		return Unhealthy("context done", err)
	}

	st := c.store.Stats()
	details := map[string]any{"sink_failures": st.SinkFailures}
	entries := 0
	for name, rs := range st.Regions {
		entries += rs.Entries
		details["region."+string(name)] = map[string]any{
			"entries":          rs.Entries,
			"hits":             rs.Hits,
			"misses":           rs.Misses,
			"computes":         rs.Computes,
			"compute_failures": rs.ComputeFailures,
		}
	}

	if st.SinkFailures > 0 {
		return Degraded(fmt.Sprintf("%d event sink failures", st.SinkFailures)).WithDetails(details)
	}
	return Healthy(fmt.Sprintf("%d entries in %d regions", entries, len(st.Regions))).WithDetails(details)
}
