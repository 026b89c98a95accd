package storage

import "errors"

// Storage errors for the append-only snapshot history.
var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateRun is returned when persisting a run_id that already
	// exists. History is append-only: exactly one snapshot set per run.
	ErrDuplicateRun = errors.New("duplicate run: history is append-only")

	// ErrInvalidInput is returned when input validation fails.
	ErrInvalidInput = errors.New("invalid input")
)
