// Copyright (C) 2019-2026, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package onion

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"time"

	"github.com/luxfi/qudag/crypto/pq"
)

// RouteHop names one relay (or the final recipient, as the last element) in
// a constructed route.
type RouteHop struct {
	ID        []byte
	PublicKey pq.MLKEMPublicKey
}

// BuildRoute layers payload innermost-outward over hops. hops[len(hops)-1] is the final recipient; every earlier
// element is a relay. The returned bytes are what the caller sends to
// hops[0], bucket-padded and ready for the wire.
func BuildRoute(hops []RouteHop, payload []byte, ts time.Time) ([]byte, error) {
	if len(hops) == 0 {
		return nil, fmt.Errorf("%w: route has no hops", ErrInvalidFormat)
	}

	terminal, err := BuildLayer(hops[len(hops)-1].PublicKey, nil, payload, ts)
	if err != nil {
		return nil, err
	}
	wire, err := SerializeToBucket(terminal)
	if err != nil {
		return nil, err
	}

	for i := len(hops) - 2; i >= 0; i-- {
		l, err := BuildLayer(hops[i].PublicKey, hops[i+1].ID, wire, ts)
		if err != nil {
			return nil, err
		}
		wire, err = SerializeToBucket(l)
		if err != nil {
			return nil, err
		}
	}

	return wire, nil
}

// PeelResult is the outcome of opening one hop's layer.
type PeelResult struct {
	NextHop  []byte // empty when Terminal
	Payload  []byte // the final plaintext when Terminal, else the next layer's wire bytes
	Terminal bool
}

// PeelOneHop validates, opens, and (for non-terminal layers) hands back the
// next inner layer's wire bytes unchanged, ready to forward as-is.
func PeelOneHop(sk *pq.MLKEMSecretKey, wire []byte, now time.Time, replayWindow time.Duration) (*PeelResult, error) {
	l, err := DeserializeFromBucket(wire)
	if err != nil {
		return nil, err
	}

	terminal := len(l.NextHop) == 0
	if err := l.Validate(terminal, now, replayWindow); err != nil {
		return nil, err
	}

	plaintext, err := Peel(sk, l)
	if err != nil {
		return nil, err
	}

	return &PeelResult{
		NextHop:  l.NextHop,
		Payload:  plaintext,
		Terminal: terminal,
	}, nil
}

// RandomForwardDelay draws the per-hop forwarding delay this package
// requires (10-100 ms) to obfuscate hop-to-hop timing correlation.
func RandomForwardDelay() (time.Duration, error) {
	const lowMs, highMs = 10, 100
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRng, err)
	}
	span := uint64(highMs - lowMs)
	ms := lowMs + (binary.BigEndian.Uint64(b[:]) % span)
	return time.Duration(ms) * time.Millisecond, nil
}
