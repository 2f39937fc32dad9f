// Copyright (C) 2019-2026, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package mix

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.BatchSize = 100
	cfg.BatchTimeout = 50 * time.Millisecond
	cfg.TargetRate = 1_000_000 // effectively disable rate shaping delay in tests
	return cfg
}

func TestNodeFlushesExactlyBatchSizeOnTimeout(t *testing.T) {
	cfg := testConfig()
	n := NewNode(cfg, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go n.Run(ctx)

	const real = 37
	for i := 0; i < real; i++ {
		require.NoError(t, n.Submit(ctx, Message{Content: []byte("m"), Kind: KindReal}))
	}

	select {
	case batch := <-n.Out():
		require.Len(t, batch, cfg.BatchSize)
		dummies := 0
		for _, m := range batch {
			if m.Kind == KindDummy {
				dummies++
			}
		}
		require.Equal(t, cfg.BatchSize-real, dummies)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for batch flush")
	}
}

func TestNodeFlushesOnSizeTrigger(t *testing.T) {
	cfg := testConfig()
	cfg.BatchTimeout = time.Hour // size trigger must fire first
	n := NewNode(cfg, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go n.Run(ctx)

	for i := 0; i < cfg.BatchSize; i++ {
		require.NoError(t, n.Submit(ctx, Message{Content: []byte("m"), Kind: KindReal}))
	}

	select {
	case batch := <-n.Out():
		require.Len(t, batch, cfg.BatchSize)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for size-triggered flush")
	}
}

func TestNodeOutputOrderIsShuffled(t *testing.T) {
	cfg := testConfig()
	cfg.BatchSize = 50
	n := NewNode(cfg, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go n.Run(ctx)

	for i := 0; i < cfg.BatchSize; i++ {
		require.NoError(t, n.Submit(ctx, Message{Content: []byte{byte(i)}, Kind: KindReal}))
	}

	batch := <-n.Out()
	require.Len(t, batch, cfg.BatchSize)

	identity := true
	for i, m := range batch {
		if len(m.Content) != 1 || m.Content[0] != byte(i) {
			identity = false
			break
		}
	}
	require.False(t, identity, "shuffled output must not equal submission order")
}

func TestShuffleIsPermutation(t *testing.T) {
	batch := make([]Message, 20)
	for i := range batch {
		batch[i] = Message{Content: []byte{byte(i)}}
	}
	require.NoError(t, shuffle(batch))

	seen := make(map[byte]bool)
	for _, m := range batch {
		seen[m.Content[0]] = true
	}
	require.Len(t, seen, 20)
}
