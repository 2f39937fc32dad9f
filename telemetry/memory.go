// Copyright (C) 2019-2026, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package telemetry provides the process-global memory accounting shim:
// byte counters components charge their buffer allocations against, exposed
// both as plain getters and as Prometheus collectors. Tracking is opt-in so
// tests and embedders run without it.
package telemetry

import (
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
)

// MemTracker counts bytes charged and released by participating components.
// The zero value is disabled; all operations on a disabled tracker are
// no-ops so call sites never need to branch.
type MemTracker struct {
	enabled     atomic.Bool
	allocated   atomic.Uint64
	deallocated atomic.Uint64
}

// global is the process-wide tracker the package-level functions act on.
var global MemTracker

// Enable turns on process-global memory tracking.
func Enable() { global.enabled.Store(true) }

// Disable turns tracking off again. Counters keep their values.
func Disable() { global.enabled.Store(false) }

// CountAlloc charges n bytes against the global tracker.
func CountAlloc(n int) { global.CountAlloc(n) }

// CountFree releases n bytes from the global tracker.
func CountFree(n int) { global.CountFree(n) }

// MemoryUsage returns bytes currently held (allocated minus deallocated).
func MemoryUsage() uint64 { return global.MemoryUsage() }

// TotalAllocated returns the cumulative bytes charged.
func TotalAllocated() uint64 { return global.TotalAllocated() }

// TotalDeallocated returns the cumulative bytes released.
func TotalDeallocated() uint64 { return global.TotalDeallocated() }

// CountAlloc charges n bytes against the tracker.
func (t *MemTracker) CountAlloc(n int) {
	if n <= 0 || !t.enabled.Load() {
		return
	}
	t.allocated.Add(uint64(n))
}

// CountFree releases n bytes from the tracker.
func (t *MemTracker) CountFree(n int) {
	if n <= 0 || !t.enabled.Load() {
		return
	}
	t.deallocated.Add(uint64(n))
}

// MemoryUsage returns bytes currently held, saturating at zero if frees
// have outpaced charges.
func (t *MemTracker) MemoryUsage() uint64 {
	allocated := t.allocated.Load()
	deallocated := t.deallocated.Load()
	if deallocated > allocated {
		return 0
	}
	return allocated - deallocated
}

// TotalAllocated returns the cumulative bytes charged.
func (t *MemTracker) TotalAllocated() uint64 { return t.allocated.Load() }

// TotalDeallocated returns the cumulative bytes released.
func (t *MemTracker) TotalDeallocated() uint64 { return t.deallocated.Load() }

// Register installs gauge collectors for the global tracker on reg.
func Register(reg prometheus.Registerer) error {
	return RegisterTracker(reg, &global)
}

// RegisterTracker installs gauge collectors for t on reg.
func RegisterTracker(reg prometheus.Registerer, t *MemTracker) error {
	collectors := []prometheus.Collector{
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "qudag",
			Name:      "memory_usage_bytes",
			Help:      "Bytes currently held by tracked components.",
		}, func() float64 { return float64(t.MemoryUsage()) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "qudag",
			Name:      "memory_allocated_bytes_total",
			Help:      "Cumulative bytes charged by tracked components.",
		}, func() float64 { return float64(t.TotalAllocated()) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "qudag",
			Name:      "memory_deallocated_bytes_total",
			Help:      "Cumulative bytes released by tracked components.",
		}, func() float64 { return float64(t.TotalDeallocated()) }),
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}
