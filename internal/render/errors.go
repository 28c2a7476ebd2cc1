package render

import (
	"errors"
	"fmt"
)

// Errors returned by renderers.
var (
	// ErrUnsupportedFormat indicates an unknown output format.
	ErrUnsupportedFormat = errors.New("unsupported format")

	// ErrEmptyMarkup indicates there is nothing to render.
	ErrEmptyMarkup = errors.New("empty markup")
)

// Error is a diagram error reported by the rendering service, usually a
// markup syntax error. Message is the service's explanation.
type Error struct {
	Message string
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("render: %s", e.Message)
}

// AsError extracts a *Error from err's chain.
func AsError(err error) (*Error, bool) {
	var re *Error
	if errors.As(err, &re) {
		return re, true
	}
	return nil, false
}

// StatusError is a non-2xx response that is not a diagram error.
type StatusError struct {
	StatusCode int
	Body       string
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("render service returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("render service returned status %d: %s", e.StatusCode, e.Body)
}
