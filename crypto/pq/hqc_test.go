// Copyright (C) 2019-2026, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package pq

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHQCRoundTrip(t *testing.T) {
	for _, level := range []HQCLevel{HQC128, HQC192, HQC256} {
		level := level
		t.Run(hqcLevelName(level), func(t *testing.T) {
			kp, err := HQCKeyGen(level)
			require.NoError(t, err)

			p := hqcParamSets[level]
			msg := make([]byte, p.k/8)
			for i := range msg {
				msg[i] = byte(i*31 + 7)
			}

			ct, err := HQCEncrypt(kp.Public, msg)
			require.NoError(t, err)

			got, err := HQCDecrypt(kp.Secret, ct)
			require.NoError(t, err)
			require.Equal(t, msg, got)
		})
	}
}

func TestHQCRejectsOversizedMessage(t *testing.T) {
	kp, err := HQCKeyGen(HQC128)
	require.NoError(t, err)

	oversized := make([]byte, hqcParamSets[HQC128].k/8+1)
	_, err = HQCEncrypt(kp.Public, oversized)
	require.ErrorIs(t, err, ErrInvalidParameters)
}

func TestHQCShortMessageIsZeroPadded(t *testing.T) {
	kp, err := HQCKeyGen(HQC128)
	require.NoError(t, err)

	msg := []byte("short")
	ct, err := HQCEncrypt(kp.Public, msg)
	require.NoError(t, err)

	got, err := HQCDecrypt(kp.Secret, ct)
	require.NoError(t, err)
	require.Equal(t, msg, got[:len(msg)])
}

func hqcLevelName(l HQCLevel) string {
	switch l {
	case HQC128:
		return "HQC128"
	case HQC192:
		return "HQC192"
	case HQC256:
		return "HQC256"
	default:
		return "unknown"
	}
}
