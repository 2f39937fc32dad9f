// Copyright (C) 2019-2026, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package mix

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"time"
)

// TrafficPattern is one known packet-size/inter-packet-delay shape a batch
// can be reshaped to mimic.
type TrafficPattern struct {
	Name              string
	PacketSizes       []int
	InterPacketDelays []time.Duration
	Weight            float64
}

// PatternDatabase holds the known patterns a mix node may draw from.
type PatternDatabase struct {
	patterns []TrafficPattern
}

// NewPatternDatabase builds a database from the given patterns. Weights
// need not sum to 1; Sample normalises against their total.
func NewPatternDatabase(patterns []TrafficPattern) *PatternDatabase {
	return &PatternDatabase{patterns: patterns}
}

// DefaultPatternDatabase ships a small set of representative shapes: a
// web-browsing-like bursty pattern, a steady low-rate heartbeat, and a
// bulk-transfer pattern of uniformly large packets.
func DefaultPatternDatabase() *PatternDatabase {
	return NewPatternDatabase([]TrafficPattern{
		{
			Name:              "web-burst",
			PacketSizes:       []int{512, 1024, 1024, 512, 2048},
			InterPacketDelays: []time.Duration{2 * time.Millisecond, 5 * time.Millisecond, 3 * time.Millisecond, 8 * time.Millisecond, 15 * time.Millisecond},
			Weight:            0.5,
		},
		{
			Name:              "heartbeat",
			PacketSizes:       []int{256, 256},
			InterPacketDelays: []time.Duration{500 * time.Millisecond, 500 * time.Millisecond},
			Weight:            0.2,
		},
		{
			Name:              "bulk-transfer",
			PacketSizes:       []int{4096, 4096, 4096, 4096},
			InterPacketDelays: []time.Duration{1 * time.Millisecond, 1 * time.Millisecond, 1 * time.Millisecond, 1 * time.Millisecond},
			Weight:            0.3,
		},
	})
}

// Sample draws one pattern with probability proportional to its Weight.
func (db *PatternDatabase) Sample() (TrafficPattern, error) {
	if len(db.patterns) == 0 {
		return TrafficPattern{}, fmt.Errorf("mix: pattern database is empty")
	}

	var total float64
	for _, p := range db.patterns {
		total += p.Weight
	}
	if total <= 0 {
		return db.patterns[0], nil
	}

	r, err := randFloat()
	if err != nil {
		return TrafficPattern{}, err
	}
	target := r * total

	var cumulative float64
	for _, p := range db.patterns {
		cumulative += p.Weight
		if target <= cumulative {
			return p, nil
		}
	}
	return db.patterns[len(db.patterns)-1], nil
}

func randFloat() (float64, error) {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return 0, fmt.Errorf("mix: %w", err)
	}
	return float64(binary.BigEndian.Uint64(b[:])>>11) / (1 << 53), nil
}

// ReshapePayload pads payload up to the target size the pattern names for
// position i (cycling through PacketSizes if the batch is longer than the
// pattern). Payloads already at or above the target round up to the next
// standard bucket instead of being truncated.
func ReshapePayload(pattern TrafficPattern, index int, payload []byte) []byte {
	if len(pattern.PacketSizes) == 0 {
		return payload
	}
	target := pattern.PacketSizes[index%len(pattern.PacketSizes)]
	if len(payload) >= target {
		target = NormalizeSize(len(payload))
	}
	out := make([]byte, target)
	copy(out, payload)
	return out
}

// InterPacketDelay returns the delay the pattern assigns to position i.
func (p TrafficPattern) InterPacketDelay(index int) time.Duration {
	if len(p.InterPacketDelays) == 0 {
		return 0
	}
	return p.InterPacketDelays[index%len(p.InterPacketDelays)]
}
