// Copyright (C) 2019-2026, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package mix

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGenerateDummyMessageWithinSizeRange(t *testing.T) {
	for i := 0; i < 50; i++ {
		m, err := GenerateDummyMessage(256, 4096)
		require.NoError(t, err)
		require.Equal(t, KindDummy, m.Kind)
		require.GreaterOrEqual(t, len(m.Content), 256)
		require.LessOrEqual(t, len(m.Content), 4096)
		require.Equal(t, NormalizeSize(len(m.Content)), m.NormalizedSize)
	}
}

func TestGenerateDummyMessageRejectsInvalidRange(t *testing.T) {
	_, err := GenerateDummyMessage(100, 50)
	require.Error(t, err)
}

func TestNormalizeSizeBuckets(t *testing.T) {
	require.Equal(t, 512, NormalizeSize(1))
	require.Equal(t, 512, NormalizeSize(300))
	require.Equal(t, 8192, NormalizeSize(8192))
	require.Equal(t, 12288, NormalizeSize(8193))
}

func TestShouldInjectDummyBounds(t *testing.T) {
	always, err := ShouldInjectDummy(1.5)
	require.NoError(t, err)
	require.True(t, always)

	never, err := ShouldInjectDummy(0)
	require.NoError(t, err)
	require.False(t, never)
}
