// Copyright (C) 2019-2026, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package pq

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCTEq(t *testing.T) {
	require.True(t, CTEq([]byte("abc"), []byte("abc")))
	require.False(t, CTEq([]byte("abc"), []byte("abd")))
	require.False(t, CTEq([]byte("abc"), []byte("ab")))
}

func TestCTSelect(t *testing.T) {
	a := []byte{1, 2, 3}
	b := []byte{4, 5, 6}
	require.Equal(t, a, CTSelect(a, b, true))
	require.Equal(t, b, CTSelect(a, b, false))
}

func TestZeroize(t *testing.T) {
	buf := []byte{1, 2, 3, 4}
	Zeroize(buf)
	require.Equal(t, []byte{0, 0, 0, 0}, buf)
}
