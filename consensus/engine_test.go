// Copyright (C) 2019-2026, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package consensus

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/luxfi/ids"
	"github.com/luxfi/qudag/dag"
	"github.com/stretchr/testify/require"
)

// stubSampler is a deterministic PeerSampler test double reporting a
// fixed unanimous vote for every vertex except those listed in deny.
type stubSampler struct {
	mu   sync.Mutex
	deny map[ids.ID]bool
}

func newStubSampler() *stubSampler { return &stubSampler{deny: make(map[ids.ID]bool)} }

func (s *stubSampler) SampleVotes(_ context.Context, vertex ids.ID, k int) (int, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.deny[vertex] {
		return 0, k, nil
	}
	return k, k, nil
}

func (s *stubSampler) reject(id ids.ID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deny[id] = true
}

func fastParams() Params {
	p := DefaultParams()
	p.Beta = 2
	p.RoundInterval = time.Millisecond
	p.FinalityTimeout = time.Second
	return p
}

func TestEngineAcceptsUnanimousVertex(t *testing.T) {
	store := dag.NewStore(nil)
	sampler := newStubSampler()
	e, err := NewEngine(store, sampler, fastParams(), nil)
	require.NoError(t, err)
	defer e.Close()

	v := dag.NewVertex([]byte("x"), nil, nil)
	require.NoError(t, store.AddNode(v))
	require.NoError(t, e.Submit(context.Background(), v))

	waitForStatus(t, e, v.ID(), StatusAccepted)

	got, _ := store.GetNode(v.ID())
	require.Equal(t, dag.Final, got.State())
}

func TestEngineTimesOutWithoutQuorum(t *testing.T) {
	store := dag.NewStore(nil)
	sampler := newStubSampler()
	params := fastParams()
	params.FinalityTimeout = 30 * time.Millisecond
	e, err := NewEngine(store, sampler, params, nil)
	require.NoError(t, err)
	defer e.Close()

	v := dag.NewVertex([]byte("x"), nil, nil)
	require.NoError(t, store.AddNode(v))
	sampler.reject(v.ID())
	require.NoError(t, e.Submit(context.Background(), v))

	ev := <-e.Events()
	require.Equal(t, v.ID(), ev.VertexID)
	require.ErrorIs(t, ev.Err, ErrConsensusFailure)
}

func TestEngineRejectsConflictingVertex(t *testing.T) {
	store := dag.NewStore(nil)
	sampler := newStubSampler()
	e, err := NewEngine(store, sampler, fastParams(), nil)
	require.NoError(t, err)
	defer e.Close()

	genesis := dag.NewVertex([]byte("genesis"), nil, nil)
	require.NoError(t, store.AddNode(genesis))

	a := dag.NewVertex([]byte("a"), []ids.ID{genesis.ID()}, nil)
	b := dag.NewVertex([]byte("b"), []ids.ID{genesis.ID()}, nil)
	require.NoError(t, store.AddNode(a))
	require.NoError(t, store.AddNode(b))

	sampler.reject(b.ID())

	require.NoError(t, e.Submit(context.Background(), a))
	require.NoError(t, e.Submit(context.Background(), b))

	waitForStatus(t, e, a.ID(), StatusAccepted)
	waitForStatus(t, e, b.ID(), StatusRejected)

	gotA, _ := store.GetNode(a.ID())
	gotB, _ := store.GetNode(b.ID())
	require.Equal(t, dag.Final, gotA.State())
	require.Equal(t, dag.Rejected, gotB.State())
}

func waitForStatus(t *testing.T, e *Engine, id ids.ID, want Status) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		if got, ok := e.GetStatus(id); ok && got == want {
			return
		}
		select {
		case <-deadline:
			t.Fatalf("timed out waiting for %s to reach status %s", id, want)
		case <-time.After(time.Millisecond):
		}
	}
}
