package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrStorage marks failures of the underlying store (begin, query, commit).
	ErrStorage = errors.New("storage error")
	// ErrProtocol is returned when a realtime peer sends a malformed or unexpected frame.
	ErrProtocol = errors.New("protocol error")
	// ErrValidation is the target matched by every ValidationError.
	ErrValidation = errors.New("validation error")
)

// ValidationError describes malformed client input.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("invalid input: %v", e.Err)
	}

	return fmt.Sprintf("invalid %s: %v", e.Field, e.Err)
}

func (e *ValidationError) Unwrap() []error {
	return []error{ErrValidation, e.Err}
}
