package models

import "errors"

// Contract errors returned across the engine boundary. Callers are expected
// to match with errors.Is.
var (
	// ErrInvalidAlert rejects a malformed AlertRecord at ingest. Nothing is
	// stored and no counters change.
	ErrInvalidAlert = errors.New("invalid alert")

	// ErrInvalidRule rejects a malformed CorrelationRule at registration.
	// The registry is left unchanged.
	ErrInvalidRule = errors.New("invalid correlation rule")

	// ErrCancelled reports a correlation pass aborted by the caller's
	// context. No partial cluster set is published.
	ErrCancelled = errors.New("correlation pass cancelled")
)
