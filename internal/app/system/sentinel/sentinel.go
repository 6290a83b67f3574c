// Package sentinel holds store-level error facts shared by every backend.
//
// Stores return these (optionally wrapped) instead of driver errors so the
// allocation engine can translate them into its own typed errors without
// knowing which backend is in use.
package sentinel

import "errors"

var (
	// ErrNotFound means the requested document does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict means a guarded write lost to a concurrent writer.
	ErrConflict = errors.New("conflict")
)
