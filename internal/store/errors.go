package store

import "errors"

// Errors returned by stores.
var (
	// ErrNotFound indicates the diagram does not exist.
	ErrNotFound = errors.New("diagram not found")

	// ErrInvalid indicates a diagram or version failed validation.
	ErrInvalid = errors.New("invalid diagram")

	// ErrUnknownDriver indicates Config.Driver names no backend.
	ErrUnknownDriver = errors.New("unknown store driver")
)
