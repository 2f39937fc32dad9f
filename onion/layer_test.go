// Copyright (C) 2019-2026, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package onion

import (
	"testing"
	"time"

	"github.com/luxfi/qudag/crypto/pq"
	"github.com/stretchr/testify/require"
)

func mustKeyPair(t *testing.T) *pq.MLKEMKeyPair {
	t.Helper()
	kp, err := pq.MLKEMKeyGen()
	require.NoError(t, err)
	return kp
}

func TestBuildLayerPeelRoundTrip(t *testing.T) {
	kp := mustKeyPair(t)
	now := time.Now().UTC()

	l, err := BuildLayer(kp.Public, []byte("relay-2"), []byte("ping"), now)
	require.NoError(t, err)

	plaintext, err := Peel(kp.Secret, l)
	require.NoError(t, err)
	require.Equal(t, []byte("ping"), plaintext)
}

func TestPeelWithWrongKeyFails(t *testing.T) {
	kp := mustKeyPair(t)
	other := mustKeyPair(t)

	l, err := BuildLayer(kp.Public, nil, []byte("secret"), time.Now().UTC())
	require.NoError(t, err)

	_, err = Peel(other.Secret, l)
	require.Error(t, err)
}

func TestSerializeDeserializeRoundTrip(t *testing.T) {
	kp := mustKeyPair(t)
	l, err := BuildLayer(kp.Public, []byte("next"), []byte("hello"), time.Now().UTC())
	require.NoError(t, err)

	raw := Serialize(l)
	got, err := Deserialize(raw)
	require.NoError(t, err)

	require.Equal(t, l.NextHop, got.NextHop)
	require.Equal(t, l.Nonce, got.Nonce)
	require.Equal(t, l.KEMCiphertext, got.KEMCiphertext)
	require.Equal(t, l.Sealed, got.Sealed)
	require.Equal(t, l.Timestamp.Unix(), got.Timestamp.Unix())
}

func TestSerializeToBucketProducesStandardSize(t *testing.T) {
	kp := mustKeyPair(t)
	l, err := BuildLayer(kp.Public, []byte("next"), []byte("hello"), time.Now().UTC())
	require.NoError(t, err)

	wire, err := SerializeToBucket(l)
	require.NoError(t, err)
	require.Contains(t, StandardSizes, len(wire))

	got, err := DeserializeFromBucket(wire)
	require.NoError(t, err)
	require.Equal(t, l.Sealed, got.Sealed)
}

func TestDeserializeFromBucketRejectsNonBucketSize(t *testing.T) {
	_, err := DeserializeFromBucket(make([]byte, 999))
	require.ErrorIs(t, err, ErrInvalidFormat)
}

func TestValidateRejectsStaleTimestamp(t *testing.T) {
	kp := mustKeyPair(t)
	old := time.Now().Add(-10 * time.Minute)
	l, err := BuildLayer(kp.Public, []byte("next"), []byte("hello"), old)
	require.NoError(t, err)

	err = l.Validate(false, time.Now(), 5*time.Minute)
	require.ErrorIs(t, err, ErrTiming)
}

func TestValidateRejectsMissingNextHopWhenNonTerminal(t *testing.T) {
	kp := mustKeyPair(t)
	l, err := BuildLayer(kp.Public, nil, []byte("hello"), time.Now())
	require.NoError(t, err)

	err = l.Validate(false, time.Now(), 5*time.Minute)
	require.ErrorIs(t, err, ErrInvalidFormat)
}

func TestPadRejectsOversizedInput(t *testing.T) {
	_, err := Pad(make([]byte, 100), 50)
	require.ErrorIs(t, err, ErrMessageTooLarge)
}

func TestStandardBucketRoundsUpBeyondLargestBucket(t *testing.T) {
	require.Equal(t, 512, StandardBucket(1))
	require.Equal(t, 16384, StandardBucket(16384))
	require.Equal(t, 20480, StandardBucket(16385))
}
