// Copyright (C) 2019-2026, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package consensus

import (
	"fmt"
	"time"
)

// Params configures a QR-Avalanche engine instance.
type Params struct {
	// K is the sample size per query round.
	K int
	// Alpha is the affirmative-fraction finality threshold, in (0, 1].
	Alpha float64
	// Beta is the number of consecutive rounds at or above Alpha required
	// before a vertex is Accepted (the confirmation depth).
	Beta int
	// MaxConcurrent bounds the number of vertices with an in-flight query
	// loop at any one time.
	MaxConcurrent int
	// FinalityTimeout aborts voting on a vertex that has not reached a
	// decision, surfacing ConsensusFailure.
	FinalityTimeout time.Duration
	// RoundInterval is the pause between query rounds for a given vertex.
	RoundInterval time.Duration
}

// DefaultParams returns the stock QR-Avalanche tunables.
func DefaultParams() Params {
	return Params{
		K:               5,
		Alpha:           0.8,
		Beta:            4,
		MaxConcurrent:   64,
		FinalityTimeout: 5 * time.Second,
		RoundInterval:   50 * time.Millisecond,
	}
}

// Validate rejects parameter combinations that can never reach a decision.
func (p Params) Validate() error {
	if p.K <= 0 {
		return errInvalidParam("k must be positive")
	}
	if p.Alpha <= 0 || p.Alpha > 1 {
		return errInvalidParam("alpha must be in (0, 1]")
	}
	if p.Beta <= 0 {
		return errInvalidParam("beta must be positive")
	}
	if p.MaxConcurrent <= 0 {
		return errInvalidParam("maxConcurrent must be positive")
	}
	if p.FinalityTimeout <= 0 {
		return errInvalidParam("finalityTimeout must be positive")
	}
	return nil
}

func errInvalidParam(msg string) error {
	return fmt.Errorf("consensus: invalid parameters: %s", msg)
}
