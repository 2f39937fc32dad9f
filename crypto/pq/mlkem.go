// Copyright (C) 2019-2026, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package pq

import (
	"github.com/cloudflare/circl/kem"
	"github.com/cloudflare/circl/kem/mlkem/mlkem768"
)

// ML-KEM-768 fixed sizes per FIPS 203. Two independent scaffolding paths
// existed upstream (a BLAKE3-XOF variant and a direct-RNG variant); this
// package treats NIST ML-KEM-768 as the sole authoritative algorithm and wraps circl's certified implementation rather than
// reimplementing either scaffold.
const (
	MLKEMPublicKeySize  = 1184
	MLKEMSecretKeySize  = 2400
	MLKEMCiphertextSize = 1088
	MLKEMSharedKeySize  = 32
)

var mlkemScheme kem.Scheme = mlkem768.Scheme()

// MLKEMPublicKey is the wire-format ML-KEM-768 public key.
type MLKEMPublicKey [MLKEMPublicKeySize]byte

// MLKEMSecretKey is the wire-format ML-KEM-768 secret key. It is zeroised on
// Zeroize and must never be duplicated.
type MLKEMSecretKey struct {
	bytes [MLKEMSecretKeySize]byte
}

// Bytes returns the raw secret key material. Callers must not retain the
// returned slice past the holder's lifetime.
func (sk *MLKEMSecretKey) Bytes() []byte { return sk.bytes[:] }

// Zeroize overwrites the secret key in place.
func (sk *MLKEMSecretKey) Zeroize() { Zeroize(sk.bytes[:]) }

// MLKEMKeyPair is an ML-KEM-768 encapsulation keypair.
type MLKEMKeyPair struct {
	Public MLKEMPublicKey
	Secret *MLKEMSecretKey
}

// MLKEMKeyGen generates a fresh ML-KEM-768 keypair.
func MLKEMKeyGen() (*MLKEMKeyPair, error) {
	pk, sk, err := mlkemScheme.GenerateKeyPair()
	if err != nil {
		return nil, opaqueErr(ErrKeyGen)
	}
	pkBytes, err := pk.MarshalBinary()
	if err != nil || len(pkBytes) != MLKEMPublicKeySize {
		return nil, opaqueErr(ErrKeyGen)
	}
	skBytes, err := sk.MarshalBinary()
	if err != nil || len(skBytes) != MLKEMSecretKeySize {
		return nil, opaqueErr(ErrKeyGen)
	}

	kp := &MLKEMKeyPair{Secret: &MLKEMSecretKey{}}
	copy(kp.Public[:], pkBytes)
	copy(kp.Secret.bytes[:], skBytes)
	Zeroize(skBytes)
	return kp, nil
}

// MLKEMEncapsulate derives a fresh 32-byte shared secret for pk and returns
// the 1088-byte ciphertext that the holder of the matching secret key can
// decapsulate to recover it.
func MLKEMEncapsulate(pk MLKEMPublicKey) (ciphertext [MLKEMCiphertextSize]byte, sharedSecret [MLKEMSharedKeySize]byte, err error) {
	pubKey, unmarshalErr := mlkemScheme.UnmarshalBinaryPublicKey(pk[:])
	if unmarshalErr != nil {
		err = opaqueErr(ErrInvalidLength)
		return
	}
	ct, ss, encErr := mlkemScheme.Encapsulate(pubKey)
	if encErr != nil || len(ct) != MLKEMCiphertextSize || len(ss) != MLKEMSharedKeySize {
		err = opaqueErr(ErrEncapsulation)
		return
	}
	copy(ciphertext[:], ct)
	copy(sharedSecret[:], ss)
	return
}

// MLKEMDecapsulate recovers the shared secret for ciphertext using sk. It
// runs in time independent of sk and ciphertext content: circl's
// implementation performs implicit rejection on malformed ciphertexts rather
// than branching, and this wrapper does not add any secret-dependent
// branches of its own.
func MLKEMDecapsulate(sk *MLKEMSecretKey, ciphertext [MLKEMCiphertextSize]byte) (sharedSecret [MLKEMSharedKeySize]byte, err error) {
	if sk == nil {
		err = opaqueErr(ErrDecapsulation)
		return
	}
	privKey, unmarshalErr := mlkemScheme.UnmarshalBinaryPrivateKey(sk.bytes[:])
	if unmarshalErr != nil {
		err = opaqueErr(ErrInvalidLength)
		return
	}
	ss, decErr := mlkemScheme.Decapsulate(privKey, ciphertext[:])
	if decErr != nil || len(ss) != MLKEMSharedKeySize {
		err = opaqueErr(ErrDecapsulation)
		return
	}
	copy(sharedSecret[:], ss)
	return
}
