// Copyright (C) 2019-2026, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package pq

import (
	"crypto/rand"

	"github.com/luxfi/crypto/mldsa"
)

// ML-DSA-65 fixed sizes per FIPS 204.
const (
	MLDSAPublicKeySize = 1952
	MLDSASecretKeySize = 4032
	MLDSASignatureSize = 3309
)

// mldsaMode pins the security level used across the core. An upstream
// scaffold had a verification path that short-circuits to success; this
// wrapper always calls through to the library verifier and never bypasses
// it.
const mldsaMode = mldsa.MLDSA65

// MLDSAKeyPair is an ML-DSA-65 signing keypair.
type MLDSAKeyPair struct {
	Public *mldsa.PublicKey
	Secret *mldsa.PrivateKey
}

// MLDSAKeyGen generates a fresh ML-DSA-65 signing keypair.
func MLDSAKeyGen() (*MLDSAKeyPair, error) {
	priv, err := mldsa.GenerateKey(rand.Reader, mldsaMode)
	if err != nil {
		return nil, opaqueErr(ErrKeyGenerationFailed)
	}
	return &MLDSAKeyPair{Public: priv.PublicKey, Secret: priv}, nil
}

// MLDSAPublicKeyFromBytes parses a 1952-byte wire-format public key.
func MLDSAPublicKeyFromBytes(b []byte) (*mldsa.PublicKey, error) {
	if len(b) != MLDSAPublicKeySize {
		return nil, opaqueErr(ErrInvalidKeyLength)
	}
	pk, err := mldsa.PublicKeyFromBytes(b, mldsaMode)
	if err != nil {
		return nil, opaqueErr(ErrInvalidKeyLength)
	}
	return pk, nil
}

// MLDSASign signs msg with sk. ML-DSA signing is randomised: two calls over
// identical msg and sk produce different signature bytes (hedged signing),
// which the fingerprint layer depends on downstream.
func MLDSASign(sk *mldsa.PrivateKey, msg []byte) ([MLDSASignatureSize]byte, error) {
	var out [MLDSASignatureSize]byte
	if sk == nil {
		return out, opaqueErr(ErrSigningFailed)
	}
	sig, err := sk.Sign(rand.Reader, msg, nil)
	if err != nil || len(sig) != MLDSASignatureSize {
		return out, opaqueErr(ErrSigningFailed)
	}
	copy(out[:], sig)
	return out, nil
}

// MLDSAVerify reports whether sig is a valid ML-DSA-65 signature over msg
// under pk. Verification runs in time independent of which coefficient
// mismatches; this wrapper adds no secret-dependent branching of its own.
func MLDSAVerify(pk *mldsa.PublicKey, msg []byte, sig [MLDSASignatureSize]byte) bool {
	if pk == nil {
		return false
	}
	return pk.Verify(msg, sig[:], nil)
}
