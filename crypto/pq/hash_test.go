// Copyright (C) 2019-2026, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package pq

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHashDeterministic(t *testing.T) {
	data := []byte("qudag vertex payload")
	require.Equal(t, Hash(data), Hash(data))
}

func TestHashStreamingMatchesOneShot(t *testing.T) {
	data := []byte("streamed in two parts")
	h := NewHasher()
	_, _ = h.Update(data[:10])
	_, _ = h.Update(data[10:])
	require.Equal(t, Hash(data), h.Finalize())
}

func TestHashConcatOrderMatters(t *testing.T) {
	a := HashConcat([]byte("a"), []byte("b"))
	b := HashConcat([]byte("b"), []byte("a"))
	require.NotEqual(t, a, b)
}

func TestHashAvalanche(t *testing.T) {
	base := []byte("the quick brown fox jumps over the lazy dog!!!!")
	flipped := append([]byte(nil), base...)
	flipped[0] ^= 0x01

	h1 := Hash(base)
	h2 := Hash(flipped)

	diffBits := 0
	for i := range h1 {
		diffBits += popcount(h1[i] ^ h2[i])
	}
	require.GreaterOrEqual(t, diffBits, (len(h1)*8)/3)
}

func popcount(b byte) int {
	n := 0
	for b != 0 {
		n += int(b & 1)
		b >>= 1
	}
	return n
}
