package models

import "errors"

// Sentinel errors shared between services and the transport layer. Services
// wrap these with context via fmt.Errorf("...: %w", ...); handlers map them
// to HTTP status codes with errors.Is.
var (
	// ErrNotFound indicates a referenced alert, rule, chain, or user does
	// not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidArgument indicates the caller supplied input the engine
	// rejects: empty or non-contiguous escalation ladders, transitions out
	// of terminal states, escalation past the maximum level.
	ErrInvalidArgument = errors.New("invalid argument")
)
