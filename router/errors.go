// Copyright (C) 2019-2026, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package router

import "errors"

// Network error kinds: transient failures retry with backoff,
// persistent failures propagate.
var (
	ErrNoRoute         = errors.New("router: no route to destination")
	ErrMessageTooLarge = errors.New("router: message exceeds maximum size")
	ErrChannelError    = errors.New("router: outbound channel send failed")
	ErrConnection      = errors.New("router: peer connection error")

	ErrPathTooShort  = errors.New("router: path shorter than minimum hop count")
	ErrPathTooLong   = errors.New("router: path longer than maximum hop count")
	ErrDuplicateHop  = errors.New("router: path contains a duplicate hop")
	ErrUnknownHop    = errors.New("router: path references an unknown peer")
)

// MaxMessageSize is the 10 MiB ceiling placed on routed
// messages.
const MaxMessageSize = 10 * 1024 * 1024
