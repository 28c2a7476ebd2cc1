package coordinator

import "errors"

// Errors returned by coordinator operations.
var (
	// ErrClosed indicates the coordinator has been closed.
	ErrClosed = errors.New("coordinator closed")

	// ErrSuperseded indicates a newer repair started before this one
	// finished, so its result was discarded.
	ErrSuperseded = errors.New("repair superseded by a newer request")

	// ErrNoRenderer indicates no renderer is configured.
	ErrNoRenderer = errors.New("no renderer configured")
)
