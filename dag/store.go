// Copyright (C) 2019-2026, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package dag

import (
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/luxfi/ids"
	"github.com/prometheus/client_golang/prometheus"
)

// ChangeEvent is emitted whenever a vertex's lifecycle state changes. The
// consensus engine does not read them: it drives state changes through
// UpdateNodeState, and the events are there for other observers.
type ChangeEvent struct {
	VertexID ids.ID
	Old      State
	New      State
}

// Checkpoint is an immutable snapshot of a finalised prefix of the DAG.
type Checkpoint struct {
	ID        ids.ID
	Height    uint64
	Timestamp time.Time
	Hash      [32]byte
	Vertices  []ids.ID
}

// storeMetrics are the Prometheus collectors tracking average vertex
// insertion time and total vertices processed.
type storeMetrics struct {
	insertions prometheus.Histogram
	processed  prometheus.Counter
}

func newStoreMetrics(reg prometheus.Registerer) *storeMetrics {
	m := &storeMetrics{
		insertions: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "qudag",
			Subsystem: "dag",
			Name:      "vertex_insert_seconds",
			Help:      "Time to insert a vertex into the DAG store.",
			Buckets:   prometheus.DefBuckets,
		}),
		processed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "qudag",
			Subsystem: "dag",
			Name:      "vertices_processed_total",
			Help:      "Total vertices inserted into the DAG store.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.insertions, m.processed)
	}
	return m
}

// Store is the concurrent map{hash->Vertex} and map{hash->edges} at the
// heart of the ledger. It exclusively owns every Vertex and Edge; consensus holds only a
// read-mostly reference by id.
type Store struct {
	mu sync.RWMutex

	vertices map[ids.ID]*Vertex
	outEdges map[ids.ID][]Edge
	hasChild map[ids.ID]bool

	events chan ChangeEvent

	metrics        *storeMetrics
	totalProcessed atomic.Uint64
}

// NewStore creates an empty DAG store. reg may be nil, in which case
// insertion metrics are computed but not exported.
func NewStore(reg prometheus.Registerer) *Store {
	return &Store{
		vertices: make(map[ids.ID]*Vertex),
		outEdges: make(map[ids.ID][]Edge),
		hasChild: make(map[ids.ID]bool),
		events:   make(chan ChangeEvent, 1024),
		metrics:  newStoreMetrics(reg),
	}
}

// Events returns the channel change notifications are published on.
// Consumers must keep it drained; the store never blocks a writer on a full
// channel — it drops the oldest queued event instead, matching the
// "observers may coalesce" allowance for consensus events.
func (s *Store) Events() <-chan ChangeEvent { return s.events }

// AddNode inserts v, failing NodeExists if its id is already present or
// MissingParent if any declared parent is absent. Parents must already
// exist, so cycles are structurally impossible — no separate cycle check is
// needed.
func (s *Store) AddNode(v *Vertex) error {
	start := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.vertices[v.ID()]; exists {
		return fmt.Errorf("%w: %s", ErrNodeExists, v.ID())
	}

	parents := v.Parents()
	for _, p := range parents {
		if _, exists := s.vertices[p]; !exists {
			return fmt.Errorf("%w: %s", ErrMissingParent, p)
		}
	}

	s.vertices[v.ID()] = v

	var wg sync.WaitGroup
	wg.Add(len(parents))
	var mu sync.Mutex
	for _, p := range parents {
		go func(parent ids.ID) {
			defer wg.Done()
			edge := Edge{Parent: parent, Child: v.ID()}
			mu.Lock()
			s.outEdges[parent] = append(s.outEdges[parent], edge)
			s.hasChild[parent] = true
			mu.Unlock()
		}(p)
	}
	wg.Wait()

	s.totalProcessed.Add(1)
	s.metrics.processed.Inc()
	s.metrics.insertions.Observe(time.Since(start).Seconds())
	return nil
}

// GetNode returns the vertex with the given id. Reads take only the store's
// read lock and never block on a concurrent write to a different vertex's
// state (per-vertex atomicity is provided by Vertex's own mutex).
func (s *Store) GetNode(id ids.ID) (*Vertex, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.vertices[id]
	return v, ok
}

// GetEdges returns the outbound edges from parent.
func (s *Store) GetEdges(parent ids.ID) ([]Edge, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	edges, ok := s.outEdges[parent]
	if !ok {
		return nil, false
	}
	out := make([]Edge, len(edges))
	copy(out, edges)
	return out, true
}

// UpdateNodeState validates and applies a state transition, publishing a
// ChangeEvent on success.
func (s *Store) UpdateNodeState(id ids.ID, next State) error {
	s.mu.RLock()
	v, ok := s.vertices[id]
	s.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrNodeNotFound, id)
	}

	old := v.State()
	if err := v.UpdateState(next); err != nil {
		return err
	}

	select {
	case s.events <- ChangeEvent{VertexID: id, Old: old, New: next}:
	default:
		<-s.events
		s.events <- ChangeEvent{VertexID: id, Old: old, New: next}
	}
	return nil
}

// Tips returns the vertices with no outbound edges, sorted by id for
// deterministic output across nodes.
func (s *Store) Tips() []ids.ID {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tips := make([]ids.ID, 0, len(s.vertices))
	for id := range s.vertices {
		if !s.hasChild[id] {
			tips = append(tips, id)
		}
	}
	slices.SortFunc(tips, func(a, b ids.ID) int { return a.Compare(b) })
	return tips
}

// TotalProcessed returns the number of vertices ever inserted.
func (s *Store) TotalProcessed() uint64 { return s.totalProcessed.Load() }

// Checkpoint takes an immutable snapshot naming every vertex currently known
// to the store, stamped with the given height.
func (s *Store) Checkpoint(height uint64) (*Checkpoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	vertexIDs := make([]ids.ID, 0, len(s.vertices))
	for id := range s.vertices {
		vertexIDs = append(vertexIDs, id)
	}
	slices.SortFunc(vertexIDs, func(a, b ids.ID) int { return a.Compare(b) })

	h := checkpointHash(height, vertexIDs)
	return &Checkpoint{
		ID:        idFromHash(h),
		Height:    height,
		Timestamp: time.Now().UTC(),
		Hash:      h,
		Vertices:  vertexIDs,
	}, nil
}

// RestoreCheckpoint is a no-op validity check: every vertex the checkpoint
// names must already be present in the store (the store itself never
// reconstructs vertices from a checkpoint alone — persistence of payload
// bytes is the storage collaborator's concern).
func (s *Store) RestoreCheckpoint(cp *Checkpoint) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, id := range cp.Vertices {
		if _, ok := s.vertices[id]; !ok {
			return fmt.Errorf("%w: checkpoint references %s", ErrNodeNotFound, id)
		}
	}
	return nil
}
