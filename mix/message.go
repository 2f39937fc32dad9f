// Copyright (C) 2019-2026, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package mix

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"time"
)

// Kind classifies a mix message.
type Kind int

const (
	KindReal Kind = iota
	KindDummy
	KindHeartbeat
)

func (k Kind) String() string {
	switch k {
	case KindReal:
		return "Real"
	case KindDummy:
		return "Dummy"
	case KindHeartbeat:
		return "Heartbeat"
	default:
		return "Unknown"
	}
}

// Message is a single unit submitted to or emitted from a mix node.
type Message struct {
	Content        []byte
	Priority       int
	Timestamp      time.Time
	Kind           Kind
	NormalizedSize int
}

// StandardSizes are the five size buckets message content length is
// normalised to.
var StandardSizes = []int{512, 1024, 2048, 4096, 8192}

const fourKiB = 4096

// NormalizeSize returns the smallest standard bucket that fits n bytes,
// rounding up to the next 4 KiB multiple for content larger than the
// biggest bucket.
func NormalizeSize(n int) int {
	for _, size := range StandardSizes {
		if n <= size {
			return size
		}
	}
	rem := n % fourKiB
	if rem == 0 {
		return n
	}
	return n + (fourKiB - rem)
}

// GenerateDummyMessage returns a dummy message with a uniformly random size
// in [minSize, maxSize], filled with random bytes so it is indistinguishable
// from genuine ciphertext on the wire.
func GenerateDummyMessage(minSize, maxSize int) (Message, error) {
	if minSize <= 0 || maxSize < minSize {
		return Message{}, fmt.Errorf("mix: invalid dummy size range [%d, %d]", minSize, maxSize)
	}
	span := uint64(maxSize - minSize + 1)
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return Message{}, fmt.Errorf("mix: generating dummy size: %w", err)
	}
	size := minSize + int(binary.BigEndian.Uint64(b[:])%span)

	content := make([]byte, size)
	if _, err := rand.Read(content); err != nil {
		return Message{}, fmt.Errorf("mix: generating dummy content: %w", err)
	}
	return Message{
		Content:        content,
		Timestamp:      time.Now().UTC(),
		Kind:           KindDummy,
		NormalizedSize: NormalizeSize(len(content)),
	}, nil
}

// ShouldInjectDummy flips a p-weighted coin, for callers that proactively
// inject cover traffic into a node's ingress between flushes rather than
// relying solely on flush-time fill-to-batch-size.
func ShouldInjectDummy(pDummy float64) (bool, error) {
	if pDummy <= 0 {
		return false, nil
	}
	if pDummy >= 1 {
		return true, nil
	}
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return false, fmt.Errorf("mix: %w", err)
	}
	r := float64(binary.BigEndian.Uint64(b[:])>>11) / (1 << 53)
	return r < pDummy, nil
}
