// Copyright (C) 2019-2026, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package onion implements the layered, ML-KEM-wrapped, AEAD-sealed message
// construction: each hop seals the next inner layer (or the
// final plaintext) under a key derived from an ML-KEM encapsulation to that
// hop's public key, and the result is padded to a standard bucket size.
package onion

import (
	"bytes"
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"io"
	"time"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"

	"github.com/luxfi/qudag/crypto/pq"
)

const nonceSize = chacha20poly1305.NonceSize // 12

// LayerWindow is the replay-acceptance window: layers older than this are
// rejected at validation time.
const LayerWindow = 5 * time.Minute

// hkdfInfo binds the derived AEAD key to this protocol and layer format version,
// so the same shared secret can never be reused for an unrelated purpose.
const hkdfInfo = "qudag-onion-layer-v1"

// Layer is a single hop's onion envelope in its wire form.
type Layer struct {
	NextHop       []byte // empty for the terminal (innermost) layer
	Nonce         [nonceSize]byte
	KEMCiphertext [pq.MLKEMCiphertextSize]byte
	Sealed        []byte // AEAD ciphertext: opens to the next Layer's wire bytes, or the final plaintext
	Timestamp     time.Time
}

// deriveLayerKey turns an ML-KEM shared secret into the 32-byte ChaCha20-
// Poly1305 key used to seal/open this layer.
func deriveLayerKey(sharedSecret [pq.MLKEMSharedKeySize]byte) ([]byte, error) {
	kdf := hkdf.New(sha256.New, sharedSecret[:], nil, []byte(hkdfInfo))
	key := make([]byte, chacha20poly1305.KeySize)
	if _, err := io.ReadFull(kdf, key); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRng, err)
	}
	return key, nil
}

// BuildLayer seals innerPlaintext for the hop owning hopPublicKey, producing
// a Layer whose Sealed field opens (given the hop's secret key) to
// innerPlaintext exactly.
func BuildLayer(hopPublicKey pq.MLKEMPublicKey, nextHop []byte, innerPlaintext []byte, ts time.Time) (*Layer, error) {
	kemCiphertext, sharedSecret, err := pq.MLKEMEncapsulate(hopPublicKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrKEM, err)
	}

	key, err := deriveLayerKey(sharedSecret)
	if err != nil {
		return nil, err
	}
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncryption, err)
	}

	var nonce [nonceSize]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRng, err)
	}

	sealed := aead.Seal(nil, nonce[:], innerPlaintext, nil)

	return &Layer{
		NextHop:       append([]byte(nil), nextHop...),
		Nonce:         nonce,
		KEMCiphertext: kemCiphertext,
		Sealed:        sealed,
		Timestamp:     ts,
	}, nil
}

// Peel opens a Layer using the recipient's ML-KEM secret key, recovering the
// plaintext it carries (the next inner Layer's wire bytes, or the final
// payload if this was the terminal layer).
func Peel(sk *pq.MLKEMSecretKey, l *Layer) ([]byte, error) {
	sharedSecret, err := pq.MLKEMDecapsulate(sk, l.KEMCiphertext)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrKEM, err)
	}
	key, err := deriveLayerKey(sharedSecret)
	if err != nil {
		return nil, err
	}
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecryption, err)
	}
	plaintext, err := aead.Open(nil, l.Nonce[:], l.Sealed, nil)
	if err != nil {
		return nil, ErrDecryption
	}
	return plaintext, nil
}

// Validate checks the reception-time invariants of a layer: a
// non-terminal layer must name its next hop, the sealed payload and KEM
// ciphertext must be present, and the timestamp must fall within the replay
// window.
func (l *Layer) Validate(terminal bool, now time.Time, window time.Duration) error {
	if !terminal && len(l.NextHop) == 0 {
		return fmt.Errorf("%w: missing next_hop on non-terminal layer", ErrInvalidFormat)
	}
	if len(l.Sealed) == 0 {
		return fmt.Errorf("%w: empty payload", ErrInvalidFormat)
	}
	var zero [pq.MLKEMCiphertextSize]byte
	if l.KEMCiphertext == zero {
		return fmt.Errorf("%w: missing kem_ciphertext", ErrInvalidFormat)
	}
	age := now.Sub(l.Timestamp)
	if age < 0 {
		age = -age
	}
	if age > window {
		return ErrTiming
	}
	return nil
}

// Serialize encodes l for the wire: a 4-byte little-endian length prefix
// ahead of each variable-size field, fixed-size nonce and KEM ciphertext
// arrays verbatim, and a big-endian unix-second timestamp.
func Serialize(l *Layer) []byte {
	var buf bytes.Buffer

	writeLP(&buf, l.NextHop)
	buf.Write(l.Nonce[:])
	buf.Write(l.KEMCiphertext[:])
	writeLP(&buf, l.Sealed)

	var ts [8]byte
	binary.BigEndian.PutUint64(ts[:], uint64(l.Timestamp.Unix()))
	buf.Write(ts[:])

	return buf.Bytes()
}

func writeLP(buf *bytes.Buffer, field []byte) {
	var length [4]byte
	binary.LittleEndian.PutUint32(length[:], uint32(len(field)))
	buf.Write(length[:])
	buf.Write(field)
}

// Deserialize parses the core frame written by Serialize. Trailing bytes
// beyond the last declared field are padding and are ignored.
func Deserialize(raw []byte) (*Layer, error) {
	r := bytes.NewReader(raw)

	nextHop, err := readLP(r)
	if err != nil {
		return nil, fmt.Errorf("%w: next_hop: %v", ErrInvalidFormat, err)
	}

	var nonce [nonceSize]byte
	if _, err := io.ReadFull(r, nonce[:]); err != nil {
		return nil, fmt.Errorf("%w: nonce: %v", ErrInvalidFormat, err)
	}

	var kemCiphertext [pq.MLKEMCiphertextSize]byte
	if _, err := io.ReadFull(r, kemCiphertext[:]); err != nil {
		return nil, fmt.Errorf("%w: kem_ciphertext: %v", ErrInvalidFormat, err)
	}

	sealed, err := readLP(r)
	if err != nil {
		return nil, fmt.Errorf("%w: payload: %v", ErrInvalidFormat, err)
	}

	var tsBytes [8]byte
	if _, err := io.ReadFull(r, tsBytes[:]); err != nil {
		return nil, fmt.Errorf("%w: timestamp: %v", ErrInvalidFormat, err)
	}
	ts := time.Unix(int64(binary.BigEndian.Uint64(tsBytes[:])), 0).UTC()

	return &Layer{
		NextHop:       nextHop,
		Nonce:         nonce,
		KEMCiphertext: kemCiphertext,
		Sealed:        sealed,
		Timestamp:     ts,
	}, nil
}

func readLP(r *bytes.Reader) ([]byte, error) {
	var length [4]byte
	if _, err := io.ReadFull(r, length[:]); err != nil {
		return nil, err
	}
	n := binary.LittleEndian.Uint32(length[:])
	out := make([]byte, n)
	if _, err := io.ReadFull(r, out); err != nil {
		return nil, err
	}
	return out, nil
}

// SerializeToBucket serialises l and pads it to the smallest standard bucket
// size that fits it. The bucket is chosen from the frame's own length, so
// the padding step never reports ErrMessageTooLarge here.
func SerializeToBucket(l *Layer) ([]byte, error) {
	core := Serialize(l)
	bucket := StandardBucket(len(core))
	return Pad(core, bucket)
}

// DeserializeFromBucket rejects any input whose total length is not itself
// a standard bucket size before parsing: receivers reject layers whose
// padded size does not match the advertised bucket.
func DeserializeFromBucket(raw []byte) (*Layer, error) {
	if StandardBucket(len(raw)) != len(raw) {
		return nil, fmt.Errorf("%w: size %d is not a standard bucket", ErrInvalidFormat, len(raw))
	}
	return Deserialize(raw)
}
