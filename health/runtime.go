package health

import (
	"context"
	"fmt"
	"runtime"

	"github.com/dustin/go-humanize"
)

// RuntimeChecker reports heap usage against a budget.
type RuntimeChecker struct {
	maxHeap  uint64
	warnAt   float64
	failAt   float64
	readMem  func(*runtime.MemStats)
	routines func() int
}

// NewRuntimeChecker creates a checker that is degraded above 80% and
// unhealthy above 95% of maxHeap bytes. A zero maxHeap measures against the
// heap obtained from the OS.
func NewRuntimeChecker(maxHeap uint64) *RuntimeChecker {
	return &RuntimeChecker{
		maxHeap:  maxHeap,
		warnAt:   0.80,
		failAt:   0.95,
		readMem:  runtime.ReadMemStats,
		routines: runtime.NumGoroutine,
	}
}

// Name returns "runtime".
func (c *RuntimeChecker) Name() string { return "runtime" }

// Check reads the current memory statistics.
func (c *RuntimeChecker) Check(ctx context.Context) Result {
	if err := ctx.Err(); err != nil {
		return Unhealthy("context done", err)
	}

	var ms runtime.MemStats
	c.readMem(&ms)

	budget := c.maxHeap
	if budget == 0 {
		budget = ms.HeapSys
	}
	details := map[string]any{
		"heap_alloc": humanize.IBytes(ms.HeapAlloc),
		"heap_sys":   humanize.IBytes(ms.HeapSys),
		"budget":     humanize.IBytes(budget),
		"num_gc":     ms.NumGC,
		"goroutines": c.routines(),
	}
	if budget == 0 {
		return Healthy("heap statistics unavailable").WithDetails(details)
	}

	ratio := float64(ms.HeapAlloc) / float64(budget)
	msg := fmt.Sprintf("heap %s of %s (%.1f%%)", humanize.IBytes(ms.HeapAlloc), humanize.IBytes(budget), ratio*100)
	switch {
	case ratio >= c.failAt:
		return Unhealthy(msg, ErrCheckFailed).WithDetails(details)
	case ratio >= c.warnAt:
		return Degraded(msg).WithDetails(details)
	default:
		return Healthy(msg).WithDetails(details)
	}
}
