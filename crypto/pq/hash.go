// Copyright (C) 2019-2026, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package pq

import (
	"io"

	"github.com/zeebo/blake3"
)

// DigestSize is the fixed output size of the BLAKE3-family hash used
// throughout the core (vertex identity, fingerprint digests).
const DigestSize = 32

// Hasher streams input into a BLAKE3 digest. The zero value is not usable;
// construct with NewHasher.
type Hasher struct {
	h *blake3.Hasher
}

// NewHasher returns a fresh streaming hasher.
func NewHasher() *Hasher {
	return &Hasher{h: blake3.New()}
}

// Update folds more input into the digest. It never fails under normal
// operation; io.Writer compliance lets Hasher be used with io.Copy.
func (h *Hasher) Update(p []byte) (int, error) {
	return h.h.Write(p)
}

// Write implements io.Writer in terms of Update.
func (h *Hasher) Write(p []byte) (int, error) {
	return h.Update(p)
}

var _ io.Writer = (*Hasher)(nil)

// Finalize returns the 32-byte digest without mutating further state.
func (h *Hasher) Finalize() [DigestSize]byte {
	var out [DigestSize]byte
	sum := h.h.Sum(nil)
	copy(out[:], sum)
	return out
}

// Hash is the one-shot form of NewHasher().Update(data).Finalize().
func Hash(data []byte) [DigestSize]byte {
	return blake3.Sum256(data)
}

// HashConcat hashes the concatenation of every argument in order, used to
// derive a vertex's content-hash identity from its payload and parent ids
// without allocating an intermediate buffer.
func HashConcat(parts ...[]byte) [DigestSize]byte {
	h := NewHasher()
	for _, p := range parts {
		_, _ = h.Update(p)
	}
	return h.Finalize()
}
