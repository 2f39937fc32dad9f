// Copyright (C) 2019-2026, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package dag

import (
	"fmt"
	"sync"
	"testing"

	"github.com/luxfi/ids"
	"github.com/stretchr/testify/require"
)

func TestStoreLinearChainTips(t *testing.T) {
	s := NewStore(nil)

	genesis := NewVertex([]byte("genesis"), nil, nil)
	require.NoError(t, s.AddNode(genesis))

	a := NewVertex([]byte("a"), []ids.ID{genesis.ID()}, nil)
	require.NoError(t, s.AddNode(a))

	b := NewVertex([]byte("b"), []ids.ID{a.ID()}, nil)
	require.NoError(t, s.AddNode(b))

	tips := s.Tips()
	require.Equal(t, []ids.ID{b.ID()}, tips)
	require.EqualValues(t, 3, s.TotalProcessed())
}

func TestStoreRejectsDuplicateInsert(t *testing.T) {
	s := NewStore(nil)
	v := NewVertex([]byte("x"), nil, nil)
	require.NoError(t, s.AddNode(v))
	err := s.AddNode(v)
	require.ErrorIs(t, err, ErrNodeExists)
}

func TestStoreRejectsMissingParent(t *testing.T) {
	s := NewStore(nil)

	ghost := NewVertex([]byte("never inserted"), nil, nil)
	orphan := NewVertex([]byte("child"), []ids.ID{ghost.ID()}, nil)

	err := s.AddNode(orphan)
	require.ErrorIs(t, err, ErrMissingParent)

	_, ok := s.GetNode(orphan.ID())
	require.False(t, ok, "a rejected insert must not be visible")
}

func TestStoreUpdateNodeStateMonotonic(t *testing.T) {
	s := NewStore(nil)
	v := NewVertex([]byte("x"), nil, nil)
	require.NoError(t, s.AddNode(v))

	require.NoError(t, s.UpdateNodeState(v.ID(), Verified))
	require.NoError(t, s.UpdateNodeState(v.ID(), Final))
	require.ErrorIs(t, s.UpdateNodeState(v.ID(), Verified), ErrInvalidStateTransition)

	unknown := ids.ID{0xFF}
	require.ErrorIs(t, s.UpdateNodeState(unknown, Verified), ErrNodeNotFound)
}

func TestStoreUpdateNodeStatePublishesEvent(t *testing.T) {
	s := NewStore(nil)
	v := NewVertex([]byte("x"), nil, nil)
	require.NoError(t, s.AddNode(v))
	require.NoError(t, s.UpdateNodeState(v.ID(), Verified))

	ev := <-s.Events()
	require.Equal(t, v.ID(), ev.VertexID)
	require.Equal(t, Pending, ev.Old)
	require.Equal(t, Verified, ev.New)
}

func TestStoreConcurrentInsertionOfIndependentChildren(t *testing.T) {
	s := NewStore(nil)
	genesis := NewVertex([]byte("genesis"), nil, nil)
	require.NoError(t, s.AddNode(genesis))

	const n = 64
	vertices := make([]*Vertex, n)
	for i := 0; i < n; i++ {
		vertices[i] = NewVertex([]byte(fmt.Sprintf("v%d", i)), []ids.ID{genesis.ID()}, nil)
	}

	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			require.NoError(t, s.AddNode(vertices[i]))
		}(i)
	}
	wg.Wait()

	// Every vertex shares genesis as its only parent, so concurrent inserts
	// have no ordering dependency on each other and all must succeed,
	// leaving genesis with n children and n tips.
	require.EqualValues(t, n+1, s.TotalProcessed())
	require.Len(t, s.Tips(), n)

	edges, ok := s.GetEdges(genesis.ID())
	require.True(t, ok)
	require.Len(t, edges, n)
}

func TestStoreCheckpointRoundTrip(t *testing.T) {
	s := NewStore(nil)
	genesis := NewVertex([]byte("genesis"), nil, nil)
	require.NoError(t, s.AddNode(genesis))
	a := NewVertex([]byte("a"), []ids.ID{genesis.ID()}, nil)
	require.NoError(t, s.AddNode(a))

	cp, err := s.Checkpoint(1)
	require.NoError(t, err)
	require.Len(t, cp.Vertices, 2)
	require.NoError(t, s.RestoreCheckpoint(cp))

	cp.Vertices = append(cp.Vertices, ids.ID{0xAB})
	require.ErrorIs(t, s.RestoreCheckpoint(cp), ErrNodeNotFound)
}
