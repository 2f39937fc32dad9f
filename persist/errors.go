// Copyright (C) 2019-2026, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package persist

import (
	"errors"
	"fmt"
)

// Persistence error kinds. Version mismatches are candidates for migration
// by the caller; corruption halts the load.
var (
	ErrIo            = errors.New("persist: io failure")
	ErrSerialization = errors.New("persist: serialization failure")
	ErrValidation    = errors.New("persist: state validation failure")
	ErrCorruption    = errors.New("persist: corrupted state detected")
	ErrBackupRestore = errors.New("persist: backup/restore failed")
)

// VersionMismatchError reports a persisted blob whose version differs from
// the one this build reads and writes.
type VersionMismatchError struct {
	Expected uint32
	Actual   uint32
}

func (e *VersionMismatchError) Error() string {
	return fmt.Sprintf("persist: state version mismatch: expected %d, got %d", e.Expected, e.Actual)
}
