package store

import "errors"

// Error kinds exposed to callers. Match with errors.Is; storage failures are
// returned as wrapped driver errors and are fatal for the current operation.
var (
	// ErrValidation reports rejected input (empty title/content, rating out of range).
	ErrValidation = errors.New("validation failed")

	// ErrNotFound reports an operation targeting a nonexistent prompt where
	// absence is not a valid no-op. Delete and Get treat absence as a normal
	// empty result instead.
	ErrNotFound = errors.New("prompt not found")

	// ErrBadSnapshot reports malformed snapshot input, before any mutation.
	ErrBadSnapshot = errors.New("malformed snapshot")
)
