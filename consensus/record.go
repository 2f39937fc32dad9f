// Copyright (C) 2019-2026, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package consensus

import (
	"github.com/luxfi/ids"
)

// Status is a vertex's position in the abstract consensus state machine of
// the engine — independent of the DAG store's own Pending/Verified/Final
// state machine.
type Status int

const (
	StatusPending Status = iota
	StatusQuerying
	StatusAccepted
	StatusRejected
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "Pending"
	case StatusQuerying:
		return "Querying"
	case StatusAccepted:
		return "Accepted"
	case StatusRejected:
		return "Rejected"
	default:
		return "Unknown"
	}
}

// VotingRecord is consensus's private bookkeeping for one vertex. It is
// owned exclusively by the engine that created it and referenced by id only
// — it never holds a pointer back into the DAG store.
type VotingRecord struct {
	VertexID ids.ID
	Parents  []ids.ID
	Hash     [32]byte // content hash; the engine does not consult it when resolving conflicts

	Status Status

	rounds     int
	confidence int // consecutive rounds at/above Alpha
}

func newVotingRecord(id ids.ID, parents []ids.ID, hash [32]byte) *VotingRecord {
	return &VotingRecord{
		VertexID: id,
		Parents:  append([]ids.ID(nil), parents...),
		Hash:     hash,
		Status:   StatusPending,
	}
}

// ConflictPredicate decides whether two pending vertices conflict. The
// default "overlapping parents implies conflict" rule is deliberately
// conservative; applications may supply a finer-grained predicate.
type ConflictPredicate func(a, b *VotingRecord) bool

// DefaultConflictPredicate is the conservative default: two vertices
// conflict iff their declared parent sets intersect.
func DefaultConflictPredicate(a, b *VotingRecord) bool {
	parentSet := make(map[ids.ID]struct{}, len(a.Parents))
	for _, p := range a.Parents {
		parentSet[p] = struct{}{}
	}
	for _, p := range b.Parents {
		if _, ok := parentSet[p]; ok {
			return true
		}
	}
	return false
}
