// Copyright (C) 2019-2026, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package dag

import "github.com/luxfi/ids"

// Edge is a directed parent->child relationship, derived from a vertex's
// declared parents at insertion time. Edges cannot form a cycle
// because a vertex's parents must already exist when it is inserted.
type Edge struct {
	Parent ids.ID
	Child  ids.ID
}
