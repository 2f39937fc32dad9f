// Copyright (C) 2019-2026, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package consensus

import (
	"context"

	"github.com/luxfi/ids"
)

// PeerSampler is the network-facing capability boundary of the engine
// ("Transport" as a polymorphic boundary): it samples k peers, asks each for
// their vote on a vertex, and reports how many responded affirmatively. The
// default QR-Avalanche engine is one realisation; a DHT-backed or
// test-double sampler may satisfy the same contract.
type PeerSampler interface {
	SampleVotes(ctx context.Context, vertex ids.ID, k int) (affirmative, total int, err error)
}
