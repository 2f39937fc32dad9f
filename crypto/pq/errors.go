// Copyright (C) 2019-2026, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package pq implements the post-quantum cryptographic substrate: ML-KEM-768
// key encapsulation, ML-DSA-65 signatures, HQC code-based encryption, a BLAKE3
// hash, and constant-time helpers shared by every component that touches
// secret material.
package pq

import "errors"

// Crypto error kinds. These are returned as sentinel values so callers can
// use errors.Is without depending on which algorithm produced them; the
// boundary never leaks why an operation failed (see opaqueErr).
var (
	ErrKeyGen              = errors.New("pq: key generation failed")
	ErrEncapsulation       = errors.New("pq: encapsulation failed")
	ErrDecapsulation       = errors.New("pq: decapsulation failed")
	ErrInvalidLength       = errors.New("pq: invalid length")
	ErrInvalidKeyLength    = errors.New("pq: invalid key length")
	ErrInvalidSigLength    = errors.New("pq: invalid signature length")
	ErrVerificationFailed  = errors.New("pq: verification failed")
	ErrKeyGenerationFailed = errors.New("pq: key generation failed")
	ErrSigningFailed       = errors.New("pq: signing failed")
	ErrInvalidParameters   = errors.New("pq: invalid parameters")
	ErrInputTooLarge       = errors.New("pq: input too large")
	ErrComputationFailed   = errors.New("pq: computation failed")
)

// opaqueErr returns the sentinel kind unchanged, carrying no detail about
// the underlying cause. The network boundary must not vary in length or timing with
// the cause of a crypto failure, so every public function returns one of the
// sentinels above rather than fmt.Errorf("%w: %s", kind, underlyingDetail).
func opaqueErr(kind error) error {
	return kind
}
