// Copyright (C) 2019-2026, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package onion

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"time"
)

// MetadataProtector obfuscates what a traffic observer can read off a layer: bucketed
// timestamps with in-bucket jitter, randomised header fields, size
// normalisation to a standard bucket, and anonymous routing identifiers.
type MetadataProtector struct {
	BucketWidth time.Duration
}

// NewMetadataProtector returns a protector using the default 100ms
// timestamp bucket width.
func NewMetadataProtector() *MetadataProtector {
	return &MetadataProtector{BucketWidth: 100 * time.Millisecond}
}

// ObfuscateTimestamp rounds ts down to the configured bucket width, then
// adds uniform in-bucket jitter, so the emitted timestamp reveals only
// which bucket the true time fell in.
func (p *MetadataProtector) ObfuscateTimestamp(ts time.Time) (time.Time, error) {
	width := p.BucketWidth
	if width <= 0 {
		width = 100 * time.Millisecond
	}
	bucketed := ts.Truncate(width)

	jitter, err := randDuration(width)
	if err != nil {
		return time.Time{}, err
	}
	return bucketed.Add(jitter), nil
}

// NormalizeSize returns the standard bucket size that fits a payload of n
// bytes, exactly the padding target Layer construction uses.
func (p *MetadataProtector) NormalizeSize(n int) int {
	return StandardBucket(n)
}

// RandomizeHeaderField returns n cryptographically random bytes suitable for
// an opaque header field value that carries no information about its
// origin.
func (p *MetadataProtector) RandomizeHeaderField(n int) ([]byte, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRng, err)
	}
	return buf, nil
}

// RoutingIdentifierSize is the length of an anonymous routing identifier.
const RoutingIdentifierSize = 16

// GenerateRoutingIdentifier returns a fresh random identifier unlinkable to
// any peer or prior identifier, used in place of a stable peer id on the
// wire.
func (p *MetadataProtector) GenerateRoutingIdentifier() ([RoutingIdentifierSize]byte, error) {
	var id [RoutingIdentifierSize]byte
	if _, err := rand.Read(id[:]); err != nil {
		return id, fmt.Errorf("%w: %v", ErrRng, err)
	}
	return id, nil
}

func randDuration(max time.Duration) (time.Duration, error) {
	if max <= 0 {
		return 0, nil
	}
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRng, err)
	}
	return time.Duration(binary.BigEndian.Uint64(b[:]) % uint64(max)), nil
}
