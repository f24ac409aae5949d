package storage

import "errors"

// Sentinel errors for storage operations.
var (
	// ErrNotFound is returned when a conversation has no recorded turns.
	ErrNotFound = errors.New("conversation not found")

	// ErrConflict is returned when a turn with the given request id has
	// already been recorded.
	ErrConflict = errors.New("turn already recorded")
)
