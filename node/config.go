// Copyright (C) 2019-2026, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package node

import (
	"fmt"
	"time"
)

// Config holds a node's lifecycle tunables. DefaultConfig supplies the
// stock value for each.
type Config struct {
	DataDir      string
	Port         uint16
	MaxPeers     int
	InitialPeers []string

	// InboundDepth bounds the channel inbound transport messages queue on.
	InboundDepth int

	// SessionTimeout expires handshaken sessions that have gone quiet.
	SessionTimeout time.Duration
}

// DefaultConfig returns the stock node tunables.
func DefaultConfig() Config {
	return Config{
		DataDir:        "./data",
		Port:           8000,
		MaxPeers:       50,
		InboundDepth:   1000,
		SessionTimeout: 10 * time.Minute,
	}
}

// Validate rejects configurations no node can run with.
func (c Config) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("node: data dir must not be empty")
	}
	if c.MaxPeers <= 0 {
		return fmt.Errorf("node: max peers must be positive, got %d", c.MaxPeers)
	}
	if c.InboundDepth <= 0 {
		return fmt.Errorf("node: inbound depth must be positive, got %d", c.InboundDepth)
	}
	return nil
}
