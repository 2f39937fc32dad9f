// Copyright (C) 2019-2026, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package dag

import (
	"encoding/binary"

	"github.com/luxfi/ids"
	"github.com/luxfi/qudag/crypto/pq"
)

// checkpointHash binds a checkpoint's height to the sorted set of vertex ids
// it covers, so two checkpoints at different heights over the same vertex
// set never collide.
func checkpointHash(height uint64, vertexIDs []ids.ID) [32]byte {
	h := pq.NewHasher()
	var heightBytes [8]byte
	binary.BigEndian.PutUint64(heightBytes[:], height)
	_, _ = h.Update(heightBytes[:])
	for _, id := range vertexIDs {
		_, _ = h.Update(id[:])
	}
	return h.Finalize()
}

func idFromHash(h [32]byte) ids.ID {
	return ids.ID(h)
}
