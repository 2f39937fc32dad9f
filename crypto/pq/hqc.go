// Copyright (C) 2019-2026, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package pq

import (
	"crypto/rand"
	"encoding/binary"
)

// HQCLevel selects an HQC security parameter set, with vector lengths and
// weights as in the NIST submission.
type HQCLevel int

const (
	HQC128 HQCLevel = iota
	HQC192
	HQC256
)

// hqcParams holds the per-level (n, k, w, wr, we) tuple. w is the secret
// vector's weight, wr the encryption randomness weight, we the message-layer
// masking weight, matching the NIST submission's three parameter sets.
type hqcParams struct {
	n, k, w, wr, we int
}

var hqcParamSets = map[HQCLevel]hqcParams{
	HQC128: {n: 17669, k: 128, w: 66, wr: 77, we: 77},
	HQC192: {n: 35851, k: 192, w: 100, wr: 114, we: 114},
	HQC256: {n: 57637, k: 256, w: 133, wr: 149, we: 149},
}

// HQCPublicKey is the (h, s) pair published by the keypair owner.
type HQCPublicKey struct {
	Level HQCLevel
	H     []byte // packed bits, length (n+7)/8
	S     []byte
}

// HQCSecretKey holds the sparse secret polynomial x. Zeroised on drop.
type HQCSecretKey struct {
	Level HQCLevel
	X     []byte
}

// Zeroize overwrites the secret polynomial.
func (sk *HQCSecretKey) Zeroize() { Zeroize(sk.X) }

// HQCCiphertext is the (u, v) pair produced by HQCEncrypt.
type HQCCiphertext struct {
	Level HQCLevel
	U     []byte
	V     []byte
}

// HQCKeyPair is an HQC keypair at a fixed security level.
type HQCKeyPair struct {
	Public *HQCPublicKey
	Secret *HQCSecretKey
}

// HQCKeyGen generates a keypair: a sparse secret x of weight w, a uniformly
// random public h, and the public syndrome s = h⊠x computed in
// GF(2)[X]/(X^n−1), where ⊠ denotes polynomial multiplication modulo X^n−1
// (addition and subtraction coincide in GF(2)).
func HQCKeyGen(level HQCLevel) (*HQCKeyPair, error) {
	p, ok := hqcParamSets[level]
	if !ok {
		return nil, opaqueErr(ErrInvalidParameters)
	}

	xBits, _, err := generateSparseVector(p.n, p.w)
	if err != nil {
		return nil, opaqueErr(ErrKeyGen)
	}
	hBits, err := generateRandomVector(p.n)
	if err != nil {
		return nil, opaqueErr(ErrKeyGen)
	}

	_, xPositions := bitsToPositions(xBits)
	sBits := polyMulAddSparse(zeroBits(p.n), hBits, xPositions, p.n)

	return &HQCKeyPair{
		Public: &HQCPublicKey{Level: level, H: bitsToBytes(hBits, p.n), S: bitsToBytes(sBits, p.n)},
		Secret: &HQCSecretKey{Level: level, X: bitsToBytes(xBits, p.n)},
	}, nil
}

// HQCEncrypt encrypts a message of at most k/8 bytes under pk. Messages
// longer than k/8 bytes fail with ErrInvalidParameters.
func HQCEncrypt(pk *HQCPublicKey, message []byte) (*HQCCiphertext, error) {
	p, ok := hqcParamSets[pk.Level]
	if !ok {
		return nil, opaqueErr(ErrInvalidParameters)
	}
	if len(message) > p.k/8 {
		return nil, opaqueErr(ErrInvalidParameters)
	}

	hBits := bytesToBits(pk.H, p.n)
	sBits := bytesToBits(pk.S, p.n)

	_, rPositions, err := generateSparseVector(p.n, p.wr)
	if err != nil {
		return nil, opaqueErr(ErrComputationFailed)
	}
	eBits, _, err := generateSparseVector(p.n, p.we)
	if err != nil {
		return nil, opaqueErr(ErrComputationFailed)
	}

	uBits := polyMulAddSparse(zeroBits(p.n), hBits, rPositions, p.n)
	vBits := polyMulAddSparse(encodeMessage(message, p.k, p.n), sBits, rPositions, p.n)
	vBits = xorBits(vBits, eBits)

	return &HQCCiphertext{Level: pk.Level, U: bitsToBytes(uBits, p.n), V: bitsToBytes(vBits, p.n)}, nil
}

// HQCDecrypt recovers the plaintext from ct using sk. Because s = h⊠x, the
// term s⊠r introduced by the encryptor equals u⊠x exactly (polynomial
// multiplication in GF(2)[X]/(X^n−1) is commutative), so v ⊕ (u⊠x) cancels
// that term exactly and leaves only the small-weight masking vector e, which
// the repetition code in decodeMessage removes.
func HQCDecrypt(sk *HQCSecretKey, ct *HQCCiphertext) ([]byte, error) {
	p, ok := hqcParamSets[sk.Level]
	if !ok || sk.Level != ct.Level {
		return nil, opaqueErr(ErrInvalidParameters)
	}

	xBits := bytesToBits(sk.X, p.n)
	_, xPositions := bitsToPositions(xBits)
	uBits := bytesToBits(ct.U, p.n)
	vBits := bytesToBits(ct.V, p.n)

	uxBits := polyMulAddSparse(zeroBits(p.n), uBits, xPositions, p.n)
	raw := xorBits(vBits, uxBits)

	return decodeMessage(raw, p.k, p.n), nil
}

// --- polynomial / bit-vector helpers ---

func zeroBits(n int) []byte { return make([]byte, n) }

func xorBits(a, b []byte) []byte {
	out := make([]byte, len(a))
	for i := range a {
		out[i] = a[i] ^ b[i]
	}
	return out
}

// generateSparseVector returns an n-bit vector with exactly `weight` ones at
// uniformly sampled distinct positions, plus the position list (used to drive
// the cheap side of a polynomial multiplication).
func generateSparseVector(n, weight int) (bits []byte, positions []int, err error) {
	bits = make([]byte, n)
	seen := make(map[int]bool, weight)
	positions = make([]int, 0, weight)
	for len(positions) < weight {
		pos, rerr := randIntN(n)
		if rerr != nil {
			return nil, nil, rerr
		}
		if seen[pos] {
			continue
		}
		seen[pos] = true
		positions = append(positions, pos)
		bits[pos] = 1
	}
	return bits, positions, nil
}

func generateRandomVector(n int) ([]byte, error) {
	raw := make([]byte, (n+7)/8)
	if _, err := rand.Read(raw); err != nil {
		return nil, err
	}
	return bytesToBits(raw, n), nil
}

func randIntN(n int) (int, error) {
	var buf [4]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return 0, err
	}
	return int(binary.BigEndian.Uint32(buf[:]) % uint32(n)), nil
}

// polyMulAddSparse computes base ⊕ (dense ⊠ sparse) where sparse is given by
// its (short) list of set positions — driving the outer loop over the
// provably low-weight operand keeps every call in this package near
// O(n·weight) instead of O(n²).
func polyMulAddSparse(base, dense []byte, sparsePositions []int, n int) []byte {
	product := make([]byte, n)
	for _, i := range sparsePositions {
		for j := 0; j < n; j++ {
			if dense[j] == 1 {
				product[(i+j)%n] ^= 1
			}
		}
	}
	out := make([]byte, n)
	for i := 0; i < n; i++ {
		out[i] = base[i] ^ product[i]
	}
	return out
}

func bitsToPositions(bits []byte) (weight int, positions []int) {
	for i, b := range bits {
		if b == 1 {
			positions = append(positions, i)
			weight++
		}
	}
	return
}

func bytesToBits(b []byte, n int) []byte {
	bits := make([]byte, n)
	for i := 0; i < n; i++ {
		byteIdx, bitIdx := i/8, uint(i%8)
		if byteIdx < len(b) {
			bits[i] = (b[byteIdx] >> bitIdx) & 1
		}
	}
	return bits
}

func bitsToBytes(bits []byte, n int) []byte {
	out := make([]byte, (n+7)/8)
	for i := 0; i < n; i++ {
		if bits[i] == 1 {
			out[i/8] |= 1 << uint(i%8)
		}
	}
	return out
}

// encodeMessage spreads each message bit across a contiguous repetition
// block so decodeMessage can majority-vote through the small-weight masking
// error e introduced by HQCEncrypt.
func encodeMessage(message []byte, k, n int) []byte {
	poly := make([]byte, n)
	rep := n / k
	for bitIdx := 0; bitIdx < k; bitIdx++ {
		byteIdx, bitOff := bitIdx/8, uint(bitIdx%8)
		var bit byte
		if byteIdx < len(message) {
			bit = (message[byteIdx] >> bitOff) & 1
		}
		start := bitIdx * rep
		end := start + rep
		if bitIdx == k-1 {
			end = n
		}
		for i := start; i < end; i++ {
			poly[i] = bit
		}
	}
	return poly
}

// decodeMessage reverses encodeMessage via per-block majority vote.
func decodeMessage(poly []byte, k, n int) []byte {
	out := make([]byte, k/8)
	rep := n / k
	for bitIdx := 0; bitIdx < k; bitIdx++ {
		start := bitIdx * rep
		end := start + rep
		if bitIdx == k-1 {
			end = n
		}
		ones := 0
		for i := start; i < end; i++ {
			if poly[i] == 1 {
				ones++
			}
		}
		if ones*2 > (end - start) {
			out[bitIdx/8] |= 1 << uint(bitIdx%8)
		}
	}
	return out
}
