// Copyright (C) 2019-2026, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package shadow

import "errors"

// Address error kinds. All surface directly to the caller; none are
// retryable.
var (
	ErrDomainExists   = errors.New("shadow: domain already registered")
	ErrDomainNotFound = errors.New("shadow: domain not found")
	ErrInvalidDomain  = errors.New("shadow: invalid domain name format")
	ErrCrypto         = errors.New("shadow: cryptographic operation failed")
	ErrStorage        = errors.New("shadow: domain record access failed")
	ErrInvalidAddress = errors.New("shadow: invalid shadow address")
)
