// Copyright (C) 2019-2026, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package mix implements a batching mix node: messages
// accumulate in a bounded buffer and are flushed as a shuffled, dummy-padded,
// rate-shaped batch once a size or timeout trigger fires.
package mix

import "time"

// Config holds the mix node tunables. DefaultConfig supplies the stock
// value for each.
type Config struct {
	BatchSize    int
	BatchTimeout time.Duration
	IngressDepth int

	PDummy       float64
	MinDummySize int
	MaxDummySize int

	TargetRate float64 // messages/sec

	TimingObfuscation bool
	MinObfuscateDelay time.Duration
	MaxObfuscateDelay time.Duration

	MinInterPacketDelay time.Duration
	MaxInterPacketDelay time.Duration
}

// DefaultConfig returns the stock mix tunables.
func DefaultConfig() Config {
	return Config{
		BatchSize:    100,
		BatchTimeout: 500 * time.Millisecond,
		IngressDepth: 1000,

		PDummy:       0.1,
		MinDummySize: 256,
		MaxDummySize: 4096,

		TargetRate: 50,

		TimingObfuscation: false,
		MinObfuscateDelay: 50 * time.Millisecond,
		MaxObfuscateDelay: 150 * time.Millisecond,

		MinInterPacketDelay: 1 * time.Millisecond,
		MaxInterPacketDelay: 20 * time.Millisecond,
	}
}
