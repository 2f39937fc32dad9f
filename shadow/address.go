// Copyright (C) 2019-2026, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package shadow implements stealth destination addressing: shadow
// addresses carrying a view/spend key pair, and a .dark domain resolver
// that maps human-readable names to ML-KEM-encrypted network addresses.
package shadow

import (
	"crypto/rand"
	"fmt"

	"github.com/luxfi/qudag/crypto/pq"
)

// Network identifies which deployment an address belongs to.
type Network uint8

const (
	Mainnet Network = iota
	Testnet
	Devnet
)

func (n Network) String() string {
	switch n {
	case Mainnet:
		return "mainnet"
	case Testnet:
		return "testnet"
	case Devnet:
		return "devnet"
	default:
		return fmt.Sprintf("network(%d)", uint8(n))
	}
}

// PaymentIDSize is the fixed width of an optional payment identifier.
const PaymentIDSize = 32

// Metadata carries an address's version, network binding, optional expiry
// (unix seconds, zero for none) and feature flags.
type Metadata struct {
	Version   uint8
	Network   Network
	ExpiresAt uint64
	Flags     uint32
}

// Address is a stealth destination: a view key and a spend key plus
// metadata. Both keys are random 32-byte values with no private
// counterpart; an address made by DeriveAddress has fresh keys unrelated to
// those of its base.
type Address struct {
	ViewKey   []byte
	SpendKey  []byte
	PaymentID *[PaymentIDSize]byte
	Metadata  Metadata
}

// Validate reports whether the address is structurally well formed: both
// keys non-empty.
func (a *Address) Validate() error {
	if len(a.ViewKey) == 0 || len(a.SpendKey) == 0 {
		return fmt.Errorf("%w: empty view or spend key", ErrInvalidAddress)
	}
	return nil
}

// Generator mints fresh shadow addresses and derives one-time addresses
// from them.
type Generator struct {
	network Network
}

// NewGenerator returns a generator whose addresses are bound to network.
func NewGenerator(network Network) *Generator {
	return &Generator{network: network}
}

// GenerateAddress mints a fresh shadow address with independently random
// view and spend keys.
func (g *Generator) GenerateAddress() (*Address, error) {
	viewKey, spendKey, err := freshKeyPair()
	if err != nil {
		return nil, err
	}
	return &Address{
		ViewKey:  viewKey,
		SpendKey: spendKey,
		Metadata: Metadata{Version: 1, Network: g.network},
	}, nil
}

// DeriveAddress derives a new one-time address from base: fresh keys, same
// payment id and metadata, so payments to the derivation cannot be linked
// to the base address on the wire.
func (g *Generator) DeriveAddress(base *Address) (*Address, error) {
	if err := base.Validate(); err != nil {
		return nil, err
	}
	viewKey, spendKey, err := freshKeyPair()
	if err != nil {
		return nil, err
	}
	return &Address{
		ViewKey:   viewKey,
		SpendKey:  spendKey,
		PaymentID: base.PaymentID,
		Metadata:  base.Metadata,
	}, nil
}

// freshKeyPair draws a 64-byte seed and splits it through the hash into a
// 32-byte view key and a 32-byte spend key.
func freshKeyPair() (viewKey, spendKey []byte, err error) {
	var seed [64]byte
	if _, err := rand.Read(seed[:]); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrCrypto, err)
	}
	view := pq.HashConcat([]byte("shadow-view"), seed[:])
	spend := pq.HashConcat([]byte("shadow-spend"), seed[:])
	pq.Zeroize(seed[:])
	return view[:], spend[:], nil
}

// OneTimeTag computes the public recognition tag of an address: the digest
// of its view key, spend key, and payment id. A wallet scans for its own
// tags by recomputing this over its known addresses.
func OneTimeTag(a *Address) ([pq.DigestSize]byte, error) {
	if err := a.Validate(); err != nil {
		return [pq.DigestSize]byte{}, err
	}
	parts := [][]byte{a.ViewKey, a.SpendKey}
	if a.PaymentID != nil {
		parts = append(parts, a.PaymentID[:])
	}
	return pq.HashConcat(parts...), nil
}
