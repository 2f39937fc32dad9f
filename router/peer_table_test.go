// Copyright (C) 2019-2026, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package router

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPeerTableUpsertDefaultsNeutralReputation(t *testing.T) {
	tbl := NewPeerTable()
	rec := tbl.Upsert("peer-1")
	require.Equal(t, 0.5, rec.Reputation)
}

func TestPeerTableAdjustReputationClamps(t *testing.T) {
	tbl := NewPeerTable()
	tbl.Upsert("peer-1")

	tbl.AdjustReputation("peer-1", 10)
	rec, ok := tbl.Get("peer-1")
	require.True(t, ok)
	require.Equal(t, 1.0, rec.Reputation)

	tbl.AdjustReputation("peer-1", -10)
	rec, _ = tbl.Get("peer-1")
	require.Equal(t, 0.0, rec.Reputation)
}

func TestPeerTableBlacklist(t *testing.T) {
	tbl := NewPeerTable()
	require.False(t, tbl.IsBlacklisted("peer-1"))
	tbl.Blacklist("peer-1")
	require.True(t, tbl.IsBlacklisted("peer-1"))
}
