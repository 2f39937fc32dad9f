// Copyright (C) 2019-2026, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package pq

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMLDSASignVerify(t *testing.T) {
	kp, err := MLDSAKeyGen()
	require.NoError(t, err)

	msg := []byte("hello")
	sig, err := MLDSASign(kp.Secret, msg)
	require.NoError(t, err)

	require.True(t, MLDSAVerify(kp.Public, msg, sig))
}

func TestMLDSATamperedSignatureFails(t *testing.T) {
	kp, err := MLDSAKeyGen()
	require.NoError(t, err)

	msg := []byte("hello")
	sig, err := MLDSASign(kp.Secret, msg)
	require.NoError(t, err)

	sig[0] ^= 0x01
	require.False(t, MLDSAVerify(kp.Public, msg, sig))
}

func TestMLDSATamperedMessageFails(t *testing.T) {
	kp, err := MLDSAKeyGen()
	require.NoError(t, err)

	sig, err := MLDSASign(kp.Secret, []byte("hello"))
	require.NoError(t, err)

	require.False(t, MLDSAVerify(kp.Public, []byte("hellp"), sig))
}

func TestMLDSASigningIsRandomised(t *testing.T) {
	kp, err := MLDSAKeyGen()
	require.NoError(t, err)

	msg := []byte("same message")
	sig1, err := MLDSASign(kp.Secret, msg)
	require.NoError(t, err)
	sig2, err := MLDSASign(kp.Secret, msg)
	require.NoError(t, err)

	require.NotEqual(t, sig1, sig2)
	require.True(t, MLDSAVerify(kp.Public, msg, sig1))
	require.True(t, MLDSAVerify(kp.Public, msg, sig2))
}
