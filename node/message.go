// Copyright (C) 2019-2026, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package node

import (
	"errors"
	"fmt"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/luxfi/crypto/mldsa"

	"github.com/luxfi/qudag/crypto/pq"
)

// Kind dispatches an incoming message to its handler.
type Kind uint8

const (
	KindHandshake Kind = iota
	KindData
	KindControl
	KindSync
)

func (k Kind) String() string {
	switch k {
	case KindHandshake:
		return "Handshake"
	case KindData:
		return "Data"
	case KindControl:
		return "Control"
	case KindSync:
		return "Sync"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// Message error kinds.
var (
	ErrInvalidSignature = errors.New("node: invalid message signature")
	ErrInvalidFormat    = errors.New("node: invalid message format")
	ErrUnknownKind      = errors.New("node: unknown message kind")
)

// Message is one signed protocol envelope. The signature covers the
// canonical encoding of every other field.
type Message struct {
	Kind      Kind   `cbor:"1,keyasint"`
	Sender    []byte `cbor:"2,keyasint"`
	Payload   []byte `cbor:"3,keyasint"`
	Timestamp uint64 `cbor:"4,keyasint"` // unix seconds
	Signature []byte `cbor:"5,keyasint,omitempty"`
}

var msgEncMode cbor.EncMode

func init() {
	var err error
	msgEncMode, err = cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(err)
	}
}

// NewMessage returns an unsigned message stamped with the current time.
func NewMessage(kind Kind, sender, payload []byte) *Message {
	return &Message{
		Kind:      kind,
		Sender:    append([]byte(nil), sender...),
		Payload:   append([]byte(nil), payload...),
		Timestamp: uint64(time.Now().UTC().Unix()),
	}
}

// signingBytes is the canonical encoding the signature covers: the message
// with its signature field cleared.
func (m *Message) signingBytes() ([]byte, error) {
	unsigned := *m
	unsigned.Signature = nil
	raw, err := msgEncMode.Marshal(&unsigned)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}
	return raw, nil
}

// Sign signs the message with sk, replacing any existing signature.
func (m *Message) Sign(sk *mldsa.PrivateKey) error {
	raw, err := m.signingBytes()
	if err != nil {
		return err
	}
	sig, err := pq.MLDSASign(sk, raw)
	if err != nil {
		return err
	}
	m.Signature = sig[:]
	return nil
}

// Verify reports whether the message's signature is valid under pk. Every
// message is verified before any further processing.
func (m *Message) Verify(pk *mldsa.PublicKey) error {
	if len(m.Signature) != pq.MLDSASignatureSize {
		return ErrInvalidSignature
	}
	raw, err := m.signingBytes()
	if err != nil {
		return err
	}
	var sig [pq.MLDSASignatureSize]byte
	copy(sig[:], m.Signature)
	if !pq.MLDSAVerify(pk, raw, sig) {
		return ErrInvalidSignature
	}
	return nil
}

// Encode serialises the message for the wire.
func (m *Message) Encode() ([]byte, error) {
	raw, err := msgEncMode.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}
	return raw, nil
}

// DecodeMessage parses a wire message.
func DecodeMessage(raw []byte) (*Message, error) {
	var m Message
	if err := cbor.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}
	return &m, nil
}

// handshakePayload carries the sender's public keys during session
// establishment. The responder encapsulates to KEMPublicKey and returns the
// ciphertext; both sides then hold the session shared secret.
type handshakePayload struct {
	KEMPublicKey  []byte `cbor:"1,keyasint"`
	SigPublicKey  []byte `cbor:"2,keyasint"`
	KEMCiphertext []byte `cbor:"3,keyasint,omitempty"` // set on the ack leg only
}

// controlPayload carries topology commands.
type controlPayload struct {
	Command string `cbor:"1,keyasint"` // "add_peer" | "remove_peer"
	PeerID  []byte `cbor:"2,keyasint"`
	Address string `cbor:"3,keyasint,omitempty"`
}

// syncPayload carries DAG synchronisation data: the sender's tips and any
// vertices the receiver asked for.
type syncPayload struct {
	Tips     [][]byte     `cbor:"1,keyasint,omitempty"`
	Vertices []syncVertex `cbor:"2,keyasint,omitempty"`
}

type syncVertex struct {
	Parents   [][]byte `cbor:"1,keyasint,omitempty"`
	Payload   []byte   `cbor:"2,keyasint"`
	Signature []byte   `cbor:"3,keyasint,omitempty"`
}
