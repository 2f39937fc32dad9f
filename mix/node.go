// Copyright (C) 2019-2026, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package mix

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"math/big"
	"time"
)

// Node accumulates submitted messages and flushes them as shuffled,
// dummy-padded, rate-shaped batches.
type Node struct {
	cfg      Config
	patterns *PatternDatabase // nil disables pattern mimicking

	ingress chan Message
	out     chan []Message
}

// NewNode constructs a mix node. patterns may be nil to disable pattern
// mimicking entirely.
func NewNode(cfg Config, patterns *PatternDatabase) *Node {
	return &Node{
		cfg:      cfg,
		patterns: patterns,
		ingress:  make(chan Message, cfg.IngressDepth),
		out:      make(chan []Message),
	}
}

// Out returns the channel emitted batches are published on.
func (n *Node) Out() <-chan []Message { return n.out }

// Submit enqueues msg, blocking until the ingress buffer has capacity or ctx
// is cancelled (if a deadline elapses during the
// wait, the submission is reported as failed rather than queued").
func (n *Node) Submit(ctx context.Context, msg Message) error {
	select {
	case n.ingress <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run drives the node's batching loop until ctx is cancelled. Callers
// typically invoke it in its own goroutine.
func (n *Node) Run(ctx context.Context) {
	buffer := make([]Message, 0, n.cfg.BatchSize)
	timer := time.NewTimer(n.cfg.BatchTimeout)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case msg := <-n.ingress:
			buffer = append(buffer, msg)
			if len(buffer) >= n.cfg.BatchSize {
				n.flush(ctx, buffer)
				buffer = make([]Message, 0, n.cfg.BatchSize)
				drainTimer(timer)
				timer.Reset(n.cfg.BatchTimeout)
			}

		case <-timer.C:
			if len(buffer) > 0 {
				n.flush(ctx, buffer)
				buffer = make([]Message, 0, n.cfg.BatchSize)
			}
			timer.Reset(n.cfg.BatchTimeout)
		}
	}
}

func drainTimer(t *time.Timer) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
}

// flush fills batch to BatchSize with dummy traffic, shuffles it, applies
// rate shaping and optional timing obfuscation, then emits it.
func (n *Node) flush(ctx context.Context, batch []Message) {
	for len(batch) < n.cfg.BatchSize {
		dummy, err := GenerateDummyMessage(n.cfg.MinDummySize, n.cfg.MaxDummySize)
		if err != nil {
			// Cannot safely continue filling without randomness; emit what
			// we have rather than block indefinitely.
			break
		}
		batch = append(batch, dummy)
	}

	// A failed shuffle still ships real traffic; anonymity degrades to
	// submission order for this batch only.
	_ = shuffle(batch)

	if n.patterns != nil {
		if pattern, err := n.patterns.Sample(); err == nil {
			for i := range batch {
				batch[i].Content = ReshapePayload(pattern, i, batch[i].Content)
			}
		}
	}

	for i := range batch {
		batch[i].NormalizedSize = NormalizeSize(len(batch[i].Content))
	}

	waitForRate(ctx, len(batch), n.cfg.TargetRate)

	if n.cfg.TimingObfuscation {
		if d, err := randDurationBetween(n.cfg.MinObfuscateDelay, n.cfg.MaxObfuscateDelay); err == nil {
			sleep(ctx, d)
		}
	}

	select {
	case n.out <- batch:
	case <-ctx.Done():
	}
}

// shuffle performs an unbiased Fisher-Yates shuffle using a CSPRNG, so batch
// output order leaks nothing about submission order.
func shuffle(batch []Message) error {
	for i := len(batch) - 1; i > 0; i-- {
		j, err := randIntN(i + 1)
		if err != nil {
			return err
		}
		batch[i], batch[j] = batch[j], batch[i]
	}
	return nil
}

func randIntN(n int) (int, error) {
	max := big.NewInt(int64(n))
	v, err := rand.Int(rand.Reader, max)
	if err != nil {
		return 0, fmt.Errorf("mix: %w", err)
	}
	return int(v.Int64()), nil
}

// waitForRate sleeps long enough that emitting batchSize messages does not
// exceed targetRate messages per second.
func waitForRate(ctx context.Context, batchSize int, targetRate float64) {
	if targetRate <= 0 {
		return
	}
	d := time.Duration(float64(batchSize) / targetRate * float64(time.Second))
	sleep(ctx, d)
}

func sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}

func randDurationBetween(min, max time.Duration) (time.Duration, error) {
	if max <= min {
		return min, nil
	}
	span := uint64(max - min)
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return 0, fmt.Errorf("mix: %w", err)
	}
	return min + time.Duration(binary.BigEndian.Uint64(b[:])%span), nil
}
