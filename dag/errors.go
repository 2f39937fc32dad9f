// Copyright (C) 2019-2026, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package dag

import "errors"

// Graph-integrity error kinds. Non-retryable; the caller's
// submission is aborted.
var (
	ErrNodeExists             = errors.New("dag: node already exists")
	ErrMissingParent          = errors.New("dag: missing parent")
	ErrInvalidStateTransition = errors.New("dag: invalid state transition")
	ErrNodeNotFound           = errors.New("dag: node not found")
)
