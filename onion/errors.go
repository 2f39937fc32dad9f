// Copyright (C) 2019-2026, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package onion

import "errors"

// Onion error kinds. The handling policy is to drop the message and log at
// debug level, never NACK, so a peeling failure cannot be used to
// fingerprint a relay's keys.
var (
	ErrInvalidFormat    = errors.New("onion: invalid layer format")
	ErrEncryption       = errors.New("onion: layer encryption failed")
	ErrDecryption       = errors.New("onion: layer decryption failed")
	ErrKEM              = errors.New("onion: key encapsulation failed")
	ErrRng              = errors.New("onion: random generation failed")
	ErrTiming           = errors.New("onion: layer timestamp outside acceptance window")
	ErrMessageTooLarge  = errors.New("onion: serialised layer too large to pad")
)
