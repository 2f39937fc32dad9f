// Copyright (C) 2019-2026, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package consensus implements the QR-Avalanche finality engine:
// repeated k-sample query rounds over a vertex's conflict set, deciding
// Accepted once the affirmative fraction holds at or above alpha for beta
// consecutive rounds.
package consensus

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/luxfi/ids"
	"github.com/luxfi/qudag/dag"
)

// Event is published on the engine's broadcast channel when a vertex is
// Accepted or Rejected, and when voting on a vertex ends without a decision
// because the finality timeout fired or the engine was closed (Err is then
// ErrConsensusFailure and Status is the vertex's last status). The
// Pending -> Querying step is not published.
type Event struct {
	VertexID ids.ID
	Status   Status
	Err      error
}

// Engine runs QR-Avalanche voting over vertices submitted to it. It keeps
// its own voting records in an owned map and references vertices by id only
// — it never reaches back into the DAG store's internals.
type Engine struct {
	params            Params
	sampler           PeerSampler
	conflictPredicate ConflictPredicate
	store             *dag.Store

	mu           sync.Mutex
	records      map[ids.ID]*VotingRecord
	conflictSets map[ids.ID]map[ids.ID]bool

	workCh chan *VotingRecord
	events chan Event

	ctx    context.Context
	cancel context.CancelFunc
}

// NewEngine constructs an engine bound to store (may be nil for unit tests
// that only exercise voting logic) and sampler, starting params.MaxConcurrent
// worker goroutines to process submissions. predicate may be nil, in which
// case DefaultConflictPredicate is used.
func NewEngine(store *dag.Store, sampler PeerSampler, params Params, predicate ConflictPredicate) (*Engine, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if sampler == nil {
		return nil, fmt.Errorf("consensus: sampler must not be nil")
	}
	if predicate == nil {
		predicate = DefaultConflictPredicate
	}

	ctx, cancel := context.WithCancel(context.Background())
	e := &Engine{
		params:            params,
		sampler:           sampler,
		conflictPredicate: predicate,
		store:             store,
		records:           make(map[ids.ID]*VotingRecord),
		conflictSets:      make(map[ids.ID]map[ids.ID]bool),
		workCh:            make(chan *VotingRecord, params.MaxConcurrent*4),
		events:            make(chan Event, 1024),
		ctx:               ctx,
		cancel:            cancel,
	}

	for i := 0; i < params.MaxConcurrent; i++ {
		go e.worker()
	}
	return e, nil
}

// Close stops all worker goroutines. In-flight rounds observe ctx
// cancellation and exit without marking a decision.
func (e *Engine) Close() {
	e.cancel()
}

// Events returns the channel consensus state changes are published on.
func (e *Engine) Events() <-chan Event { return e.events }

// Submit registers v for voting, detecting conflicts against every other
// vertex currently known to the engine, then enqueues it for a worker to
// pick up. Submit itself is the back-pressure point: it
// blocks until a worker slot is available or ctx is cancelled.
func (e *Engine) Submit(ctx context.Context, v *dag.Vertex) error {
	if v == nil {
		return ErrInvalidVertex
	}

	rec := newVotingRecord(v.ID(), v.Parents(), [32]byte(v.ID()))

	e.mu.Lock()
	if _, exists := e.records[rec.VertexID]; exists {
		e.mu.Unlock()
		return fmt.Errorf("%w: %s already submitted", ErrInvalidVertex, rec.VertexID)
	}
	for id, other := range e.records {
		if e.conflictPredicate(rec, other) {
			e.addConflictLocked(rec.VertexID, id)
		}
	}
	e.records[rec.VertexID] = rec
	e.mu.Unlock()

	select {
	case e.workCh <- rec:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-e.ctx.Done():
		return fmt.Errorf("%w: engine closed", ErrInvalidState)
	}
}

func (e *Engine) addConflictLocked(a, b ids.ID) {
	if e.conflictSets[a] == nil {
		e.conflictSets[a] = make(map[ids.ID]bool)
	}
	e.conflictSets[a][b] = true
	if e.conflictSets[b] == nil {
		e.conflictSets[b] = make(map[ids.ID]bool)
	}
	e.conflictSets[b][a] = true
}

// GetStatus returns the current consensus status of a submitted vertex.
func (e *Engine) GetStatus(id ids.ID) (Status, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	rec, ok := e.records[id]
	if !ok {
		return StatusPending, false
	}
	return rec.Status, true
}

// Conflicts returns the ids currently registered as conflicting with id.
func (e *Engine) Conflicts(id ids.ID) []ids.ID {
	e.mu.Lock()
	defer e.mu.Unlock()
	set := e.conflictSets[id]
	out := make([]ids.ID, 0, len(set))
	for other := range set {
		out = append(out, other)
	}
	return out
}

func (e *Engine) worker() {
	for {
		select {
		case rec := <-e.workCh:
			e.runVertex(rec)
		case <-e.ctx.Done():
			return
		}
	}
}

// runVertex drives the query-round loop for a single vertex until it is
// Accepted, Rejected by a winning conflict, or the finality timeout fires.
func (e *Engine) runVertex(rec *VotingRecord) {
	ctx, cancel := context.WithTimeout(e.ctx, e.params.FinalityTimeout)
	defer cancel()

	e.mu.Lock()
	if rec.Status == StatusPending {
		rec.Status = StatusQuerying
	}
	e.mu.Unlock()

	for {
		e.mu.Lock()
		status := rec.Status
		e.mu.Unlock()
		if status == StatusRejected {
			// A conflicting vertex already won; stop polling for this one.
			return
		}

		affirmative, total, err := e.sampler.SampleVotes(ctx, rec.VertexID, e.params.K)
		switch {
		case err != nil:
			rec.confidence = 0
		case total > 0 && float64(affirmative)/float64(total) >= e.params.Alpha:
			rec.confidence++
			rec.rounds++
			if rec.confidence >= e.params.Beta {
				e.accept(rec)
				return
			}
		default:
			rec.confidence = 0
			rec.rounds++
		}

		select {
		case <-time.After(e.params.RoundInterval):
		case <-ctx.Done():
			e.publish(Event{VertexID: rec.VertexID, Status: rec.Status, Err: ErrConsensusFailure})
			return
		}
	}
}

// accept marks rec Accepted, rejects every still-pending vertex in its
// conflict set, and mirrors both outcomes into the DAG store's own state
// machine, driving the winner Verified -> Final. The first vertex of a
// conflict set to be accepted wins; content hashes are not used to break
// ties.
func (e *Engine) accept(rec *VotingRecord) {
	e.mu.Lock()
	if rec.Status == StatusRejected {
		// A conflicting vertex was accepted after this vertex's last status
		// check; it stays Rejected.
		e.mu.Unlock()
		return
	}
	rec.Status = StatusAccepted
	losers := make([]ids.ID, 0, len(e.conflictSets[rec.VertexID]))
	for other := range e.conflictSets[rec.VertexID] {
		if o, ok := e.records[other]; ok && o.Status != StatusAccepted {
			o.Status = StatusRejected
			losers = append(losers, other)
		}
	}
	e.mu.Unlock()

	if e.store != nil {
		_ = e.store.UpdateNodeState(rec.VertexID, dag.Verified)
		_ = e.store.UpdateNodeState(rec.VertexID, dag.Final)
		for _, loser := range losers {
			_ = e.store.UpdateNodeState(loser, dag.Rejected)
		}
	}

	e.publish(Event{VertexID: rec.VertexID, Status: StatusAccepted})
	for _, loser := range losers {
		e.publish(Event{VertexID: loser, Status: StatusRejected})
	}
}

func (e *Engine) publish(ev Event) {
	select {
	case e.events <- ev:
	default:
		select {
		case <-e.events:
		default:
		}
		select {
		case e.events <- ev:
		default:
		}
	}
}
