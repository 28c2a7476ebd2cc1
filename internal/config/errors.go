package config

import (
	"errors"
	"fmt"
)

// Errors returned by Load and Validate.
var (
	ErrFileNotFound      = errors.New("config file not found")
	ErrUnsupportedFormat = errors.New("unsupported config format")
	ErrValidationFailed  = errors.New("invalid configuration")
)

// ParseError reports a config file that could not be decoded.
// Line and Column are zero when the decoder gives no position.
type ParseError struct {
	Path   string
	Format string
	Line   int
	Column int
	Err    error
}

func (e *ParseError) Error() string {
	switch {
	case e.Line > 0 && e.Column > 0:
		return fmt.Sprintf("config %s (%s) %d:%d: %v", e.Path, e.Format, e.Line, e.Column, e.Err)
	case e.Line > 0:
		return fmt.Sprintf("config %s (%s) line %d: %v", e.Path, e.Format, e.Line, e.Err)
	}
	return fmt.Sprintf("config %s (%s): %v", e.Path, e.Format, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// ValidationError names the setting that failed Validate.
// It matches ErrValidationFailed with errors.Is.
type ValidationError struct {
	Path    string
	Message string
	Value   any
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config %s %s (got %v)", e.Path, e.Message, e.Value)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidationFailed
}
