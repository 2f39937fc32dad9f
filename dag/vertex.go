// Copyright (C) 2019-2026, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package dag implements the concurrent vertex/edge graph of the ledger:
// a hash->Vertex map with a monotone per-vertex state machine, owned
// exclusively by the store that holds it.
package dag

import (
	"fmt"
	"sync"
	"time"

	"github.com/luxfi/ids"
	"github.com/luxfi/qudag/crypto/pq"
)

// State is a vertex's position in the lifecycle state machine.
type State int

const (
	Pending State = iota
	Verified
	Final
	Rejected
)

func (s State) String() string {
	switch s {
	case Pending:
		return "Pending"
	case Verified:
		return "Verified"
	case Final:
		return "Final"
	case Rejected:
		return "Rejected"
	default:
		return "Unknown"
	}
}

// validTransitions enumerates the only legal state changes. Every other
// attempt fails with ErrInvalidStateTransition.
var validTransitions = map[State]map[State]bool{
	Pending:  {Verified: true, Rejected: true},
	Verified: {Final: true, Rejected: true},
}

// Vertex is a single node in the DAG. Its identity (ID) is the BLAKE3 content
// hash of its payload and parent ids; once inserted, State is the only
// mutable field.
type Vertex struct {
	mu sync.RWMutex

	id        ids.ID
	parents   []ids.ID
	payload   []byte
	timestamp time.Time
	signature []byte
	state     State
}

// NewVertex computes a vertex's content-hash identity from payload and
// parents and returns it in the Pending state. parents order is preserved as
// given but identity is computed including a canonical per-parent 32-byte
// encoding so two vertices with the same parents in different declared
// orders still hash identically only if callers sort first — the store does
// not impose an ordering of its own.
func NewVertex(payload []byte, parents []ids.ID, signature []byte) *Vertex {
	parentsCopy := append([]ids.ID(nil), parents...)
	id := computeID(payload, parentsCopy)
	return &Vertex{
		id:        id,
		parents:   parentsCopy,
		payload:   payload,
		timestamp: time.Now().UTC(),
		signature: signature,
		state:     Pending,
	}
}

func computeID(payload []byte, parents []ids.ID) ids.ID {
	h := pq.NewHasher()
	_, _ = h.Update(payload)
	for _, p := range parents {
		_, _ = h.Update(p[:])
	}
	return ids.ID(h.Finalize())
}

func (v *Vertex) ID() ids.ID { return v.id }

// Parents returns a copy of the declared parent ids.
func (v *Vertex) Parents() []ids.ID {
	v.mu.RLock()
	defer v.mu.RUnlock()
	out := make([]ids.ID, len(v.parents))
	copy(out, v.parents)
	return out
}

func (v *Vertex) Payload() []byte {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.payload
}

func (v *Vertex) Timestamp() time.Time {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.timestamp
}

func (v *Vertex) Signature() []byte {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.signature
}

func (v *Vertex) State() State {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.state
}

// UpdateState attempts the transition current -> next, failing with
// ErrInvalidStateTransition if it is not one of the pairs validTransitions
// allows.
func (v *Vertex) UpdateState(next State) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if !validTransitions[v.state][next] {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidStateTransition, v.state, next)
	}
	v.state = next
	return nil
}
