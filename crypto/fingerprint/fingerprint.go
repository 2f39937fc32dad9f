// Copyright (C) 2019-2026, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package fingerprint implements quantum fingerprints: a
// content-binding digest signed with a freshly generated ML-DSA-65 keypair.
package fingerprint

import (
	"github.com/luxfi/crypto/mldsa"
	"github.com/luxfi/qudag/crypto/pq"
)

// DigestSize is the fixed digest width bound by a fingerprint.
const DigestSize = 64

// Fingerprint binds a 64-byte digest of some data to an ML-DSA signature
// over that digest. The digest is deterministic in the input; the signature
// is randomised, so two fingerprints over identical data share Digest but
// differ in Signature.
type Fingerprint struct {
	Digest    [DigestSize]byte
	Signature [pq.MLDSASignatureSize]byte
}

// Generate produces a fingerprint over data together with the freshly
// generated public key a verifier needs. The returned keypair's secret half
// is intentionally not exposed: a fingerprint is single-use by construction.
func Generate(data []byte) (*Fingerprint, *mldsa.PublicKey, error) {
	digest := digest64(data)

	kp, err := pq.MLDSAKeyGen()
	if err != nil {
		return nil, nil, err
	}

	sig, err := pq.MLDSASign(kp.Secret, digest[:])
	if err != nil {
		return nil, nil, err
	}

	return &Fingerprint{Digest: digest, Signature: sig}, kp.Public, nil
}

// Verify reports whether fp's signature over its digest is valid under pk.
// It does not recompute the digest from any external data: callers that want
// to bind a fingerprint to specific content must also compare Digest against
// digest64(data) themselves (or use VerifyData).
func Verify(fp *Fingerprint, pk *mldsa.PublicKey) bool {
	if fp == nil {
		return false
	}
	return pq.MLDSAVerify(pk, fp.Digest[:], fp.Signature)
}

// VerifyData reports whether fp both signs digest64(data) and carries a
// valid signature under pk.
func VerifyData(fp *Fingerprint, data []byte, pk *mldsa.PublicKey) bool {
	if fp == nil {
		return false
	}
	if digest64(data) != fp.Digest {
		return false
	}
	return Verify(fp, pk)
}

// digest64 derives a 64-byte digest from data by concatenating two
// independent 32-byte BLAKE3 digests (the content hash and the content hash
// of its own hash), giving the fixed 64-byte digest width
// without understating BLAKE3's 32-byte native output.
func digest64(data []byte) [DigestSize]byte {
	var out [DigestSize]byte
	h1 := pq.Hash(data)
	h2 := pq.Hash(h1[:])
	copy(out[:32], h1[:])
	copy(out[32:], h2[:])
	return out
}
