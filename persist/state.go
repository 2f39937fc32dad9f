// Copyright (C) 2019-2026, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package persist defines the versioned state blob a node hands to its
// storage collaborator: peers, DAG contents, voting records, sessions and
// metrics, CBOR-encoded behind a checksummed envelope. Where the bytes
// actually land (disk, vault, database) is the collaborator's concern; this
// package owns only the layout and its integrity checks.
package persist

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"
	"github.com/luxfi/ids"

	"github.com/luxfi/qudag/crypto/pq"
)

// CurrentVersion is the blob version this build reads and writes.
const CurrentVersion uint32 = 1

// PeerStats are a peer's accumulated connection statistics.
type PeerStats struct {
	TotalConnections      uint64 `cbor:"1,keyasint"`
	SuccessfulConnections uint64 `cbor:"2,keyasint"`
	FailedConnections     uint64 `cbor:"3,keyasint"`
	BytesSent             uint64 `cbor:"4,keyasint"`
	BytesReceived         uint64 `cbor:"5,keyasint"`
	AvgResponseTimeMillis uint64 `cbor:"6,keyasint"`
}

// PeerRecord is the persisted form of one known peer.
type PeerRecord struct {
	ID          []byte            `cbor:"1,keyasint"`
	Address     string            `cbor:"2,keyasint"`
	Reputation  uint32            `cbor:"3,keyasint"` // 0..=100
	LastSeen    uint64            `cbor:"4,keyasint"` // unix seconds
	Stats       PeerStats         `cbor:"5,keyasint"`
	Blacklisted bool              `cbor:"6,keyasint"`
	Whitelisted bool              `cbor:"7,keyasint"`
	Metadata    map[string]string `cbor:"8,keyasint,omitempty"`
}

// Validate checks a peer record's field invariants.
func (p *PeerRecord) Validate() error {
	if len(p.ID) == 0 {
		return fmt.Errorf("%w: peer with empty id", ErrValidation)
	}
	if p.Reputation > 100 {
		return fmt.Errorf("%w: peer reputation %d out of range", ErrValidation, p.Reputation)
	}
	return nil
}

// Vertex is the persisted form of one DAG vertex.
type Vertex struct {
	ID        ids.ID   `cbor:"1,keyasint"`
	Parents   []ids.ID `cbor:"2,keyasint,omitempty"`
	Payload   []byte   `cbor:"3,keyasint"`
	Timestamp uint64   `cbor:"4,keyasint"`
	Signature []byte   `cbor:"5,keyasint,omitempty"`
	State     uint8    `cbor:"6,keyasint"`
}

// VotingRecord is the persisted consensus tally for one vertex.
type VotingRecord struct {
	VertexID  ids.ID `cbor:"1,keyasint"`
	YesVotes  uint32 `cbor:"2,keyasint"`
	NoVotes   uint32 `cbor:"3,keyasint"`
	Round     uint32 `cbor:"4,keyasint"`
	Finalized bool   `cbor:"5,keyasint"`
}

// Checkpoint is the persisted form of a finalised-prefix snapshot.
type Checkpoint struct {
	ID        ids.ID   `cbor:"1,keyasint"`
	Height    uint64   `cbor:"2,keyasint"`
	Timestamp uint64   `cbor:"3,keyasint"`
	Hash      [32]byte `cbor:"4,keyasint"`
	Vertices  []ids.ID `cbor:"5,keyasint"`
}

// DagState is the persisted DAG and consensus bookkeeping.
type DagState struct {
	Vertices       []Vertex       `cbor:"1,keyasint,omitempty"`
	Tips           []ids.ID       `cbor:"2,keyasint,omitempty"`
	VotingRecords  []VotingRecord `cbor:"3,keyasint,omitempty"`
	LastCheckpoint *Checkpoint    `cbor:"4,keyasint,omitempty"`
}

// SessionInfo is one live peer session at save time.
type SessionInfo struct {
	ID          uuid.UUID `cbor:"1,keyasint"`
	PeerID      []byte    `cbor:"2,keyasint"`
	Established uint64    `cbor:"3,keyasint"`
}

// Metrics are the coarse node counters carried across restarts.
type Metrics struct {
	MessagesProcessed uint64 `cbor:"1,keyasint"`
	VerticesProcessed uint64 `cbor:"2,keyasint"`
	BytesSent         uint64 `cbor:"3,keyasint"`
	BytesReceived     uint64 `cbor:"4,keyasint"`
}

// State is the complete persisted node state.
type State struct {
	Version       uint32        `cbor:"1,keyasint"`
	NodeID        []byte        `cbor:"2,keyasint"`
	ProtocolState string        `cbor:"3,keyasint"`
	Sessions      []SessionInfo `cbor:"4,keyasint,omitempty"`
	Peers         []PeerRecord  `cbor:"5,keyasint,omitempty"`
	DagState      DagState      `cbor:"6,keyasint"`
	Metrics       Metrics       `cbor:"7,keyasint"`
	LastSaved     uint64        `cbor:"8,keyasint"`
}

// NewState returns an empty state blob for nodeID at the current version.
func NewState(nodeID []byte) *State {
	return &State{
		Version: CurrentVersion,
		NodeID:  append([]byte(nil), nodeID...),
	}
}

// Validate checks the blob's internal invariants before it is handed to
// storage or accepted from it.
func (s *State) Validate() error {
	if len(s.NodeID) == 0 {
		return fmt.Errorf("%w: empty node id", ErrValidation)
	}
	for i := range s.Peers {
		if err := s.Peers[i].Validate(); err != nil {
			return err
		}
	}
	return nil
}

// envelope is the outer frame around the encoded state: the version is
// repeated outside the body so mismatches are detected before decoding a
// possibly incompatible layout, and the checksum covers the body bytes.
type envelope struct {
	Version  uint32   `cbor:"1,keyasint"`
	Body     []byte   `cbor:"2,keyasint"`
	Checksum [32]byte `cbor:"3,keyasint"`
}

var encMode cbor.EncMode

func init() {
	var err error
	encMode, err = cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(err)
	}
}

// Save validates s, stamps LastSaved, and writes the enveloped blob to w.
func Save(w io.Writer, s *State) error {
	if err := s.Validate(); err != nil {
		return err
	}
	s.Version = CurrentVersion
	s.LastSaved = uint64(time.Now().UTC().Unix())

	body, err := encMode.Marshal(s)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSerialization, err)
	}
	env := envelope{
		Version:  CurrentVersion,
		Body:     body,
		Checksum: pq.Hash(body),
	}
	raw, err := encMode.Marshal(&env)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSerialization, err)
	}
	if _, err := w.Write(raw); err != nil {
		return fmt.Errorf("%w: %v", ErrIo, err)
	}
	return nil
}

// Load reads an enveloped blob from r, verifying version and checksum
// before decoding the body.
func Load(r io.Reader) (*State, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIo, err)
	}

	var env envelope
	if err := cbor.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSerialization, err)
	}
	if env.Version != CurrentVersion {
		return nil, &VersionMismatchError{Expected: CurrentVersion, Actual: env.Version}
	}
	if pq.Hash(env.Body) != env.Checksum {
		return nil, fmt.Errorf("%w: checksum mismatch", ErrCorruption)
	}

	var s State
	if err := cbor.Unmarshal(env.Body, &s); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSerialization, err)
	}
	if s.Version != CurrentVersion {
		return nil, &VersionMismatchError{Expected: CurrentVersion, Actual: s.Version}
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Clone deep-copies s so a snapshot can be handed to a backup writer while
// the live state keeps mutating.
func (s *State) Clone() *State {
	raw, err := encMode.Marshal(s)
	if err != nil {
		return nil
	}
	var out State
	if err := cbor.Unmarshal(raw, &out); err != nil {
		return nil
	}
	return &out
}

// Backup writes a snapshot of s to w; Restore reads one back. They are the
// thin backup/restore surface the storage collaborator drives.
func Backup(w io.Writer, s *State) error {
	snapshot := s.Clone()
	if snapshot == nil {
		return fmt.Errorf("%w: snapshot failed", ErrBackupRestore)
	}
	if err := Save(w, snapshot); err != nil {
		return fmt.Errorf("%w: %v", ErrBackupRestore, err)
	}
	return nil
}

// Restore loads a state blob previously written by Backup.
func Restore(r io.Reader) (*State, error) {
	s, err := Load(r)
	if err != nil {
		var vm *VersionMismatchError
		if errors.As(err, &vm) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrBackupRestore, err)
	}
	return s, nil
}
