// Copyright (C) 2019-2026, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package consensus

import "errors"

// Consensus error kinds. Query rounds retry; ConsensusFailure
// is the terminal, surfaced-to-caller outcome of persistent failure.
var (
	ErrInvalidVertex    = errors.New("consensus: invalid vertex reference")
	ErrConflicting      = errors.New("consensus: vertex has an unresolved conflict")
	ErrConsensusFailure = errors.New("consensus: finality not reached before timeout")
	ErrInvalidState     = errors.New("consensus: invalid consensus state")
)
