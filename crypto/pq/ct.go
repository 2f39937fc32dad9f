// Copyright (C) 2019-2026, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package pq

import "crypto/subtle"

// CTEq reports whether a and b are byte-equal in time independent of where
// they first differ. Unequal lengths short-circuit (and are themselves not
// secret in any of this package's call sites).
func CTEq(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare(a, b) == 1
}

// CTSelect returns a if cond is true, b otherwise, without branching on cond.
func CTSelect(a, b []byte, cond bool) []byte {
	out := make([]byte, len(a))
	c := 0
	if cond {
		c = 1
	}
	subtle.ConstantTimeCopy(c, out, a)
	subtle.ConstantTimeCopy(1-c, out, b)
	return out
}

// Zeroizable is implemented by every secret container in this module so
// callers can guarantee secret material does not outlive its holder.
type Zeroizable interface {
	Zeroize()
}

// Zeroize overwrites buf with zeros in place. It is not optimized away by the
// compiler because the caller-visible slice is the one being cleared.
func Zeroize(buf []byte) {
	for i := range buf {
		buf[i] = 0
	}
}
