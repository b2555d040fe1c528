// Package apperr holds the sentinel errors shared by the services and the
// HTTP layer. Callers match them with errors.Is / errors.As.
package apperr

import (
	"errors"
	"fmt"
)

var (
	// Repository-level errors.
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("already exists")

	// Service-level errors.
	ErrValidation        = errors.New("validation error")
	ErrInvalidTransition = errors.New("invalid stage transition")
	ErrUploadFailed      = errors.New("upload failed")
	ErrOperationDisabled = errors.New("operation disabled")

	// Auth errors.
	ErrUnauthorized = errors.New("unauthorized")
	ErrInvalidToken = errors.New("invalid token")
)

// ValidationError reports a missing or malformed input field. It matches
// ErrValidation with errors.Is.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// Invalid builds a ValidationError for field.
func Invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// Required is shorthand for a missing required field.
func Required(field string) error {
	return &ValidationError{Field: field, Reason: "is required"}
}
