// Copyright (C) 2019-2026, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package pq

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMLKEMRoundTrip(t *testing.T) {
	kp, err := MLKEMKeyGen()
	require.NoError(t, err)

	ct, ss1, err := MLKEMEncapsulate(kp.Public)
	require.NoError(t, err)
	require.Len(t, ss1, MLKEMSharedKeySize)

	ss2, err := MLKEMDecapsulate(kp.Secret, ct)
	require.NoError(t, err)
	require.Equal(t, ss1, ss2)
}

func TestMLKEMDistinctEncapsulationsDiffer(t *testing.T) {
	kp, err := MLKEMKeyGen()
	require.NoError(t, err)

	_, ss1, err := MLKEMEncapsulate(kp.Public)
	require.NoError(t, err)
	_, ss2, err := MLKEMEncapsulate(kp.Public)
	require.NoError(t, err)

	require.NotEqual(t, ss1, ss2)
}

func TestMLKEMDecapsulateNilSecretKey(t *testing.T) {
	var ct [MLKEMCiphertextSize]byte
	_, err := MLKEMDecapsulate(nil, ct)
	require.ErrorIs(t, err, ErrDecapsulation)
}
