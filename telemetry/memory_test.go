// Copyright (C) 2019-2026, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package telemetry

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

func TestDisabledTrackerIsNoOp(t *testing.T) {
	var tr MemTracker
	tr.CountAlloc(1024)
	require.EqualValues(t, 0, tr.TotalAllocated())
	require.EqualValues(t, 0, tr.MemoryUsage())
}

func TestTrackerCountsWhenEnabled(t *testing.T) {
	var tr MemTracker
	tr.enabled.Store(true)

	tr.CountAlloc(1024)
	tr.CountAlloc(512)
	require.EqualValues(t, 1536, tr.TotalAllocated())
	require.EqualValues(t, 1536, tr.MemoryUsage())

	tr.CountFree(1024)
	require.EqualValues(t, 1024, tr.TotalDeallocated())
	require.EqualValues(t, 512, tr.MemoryUsage())
}

func TestMemoryUsageSaturatesAtZero(t *testing.T) {
	var tr MemTracker
	tr.enabled.Store(true)
	tr.CountAlloc(10)
	tr.CountFree(100)
	require.EqualValues(t, 0, tr.MemoryUsage())
}

func TestNegativeCountsIgnored(t *testing.T) {
	var tr MemTracker
	tr.enabled.Store(true)
	tr.CountAlloc(-5)
	tr.CountFree(-5)
	require.EqualValues(t, 0, tr.TotalAllocated())
	require.EqualValues(t, 0, tr.TotalDeallocated())
}

func TestRegisterTrackerCollectors(t *testing.T) {
	var tr MemTracker
	tr.enabled.Store(true)
	tr.CountAlloc(2048)

	reg := prometheus.NewRegistry()
	require.NoError(t, RegisterTracker(reg, &tr))

	families, err := reg.Gather()
	require.NoError(t, err)
	require.Len(t, families, 3)
}
