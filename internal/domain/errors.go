package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors used across all layers.
var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	ErrValidation    = errors.New("validation error")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrForbidden     = errors.New("forbidden")
	ErrConflict      = errors.New("conflict")

	// ErrLinkExpired is distinct from ErrForbidden so clients can show
	// "link expired" instead of a generic access denial.
	ErrLinkExpired = errors.New("share link expired")

	// ErrReadOnly is returned when a view-mode session attempts a mutation.
	ErrReadOnly = errors.New("insufficient permission: read-only access")

	// ErrTooManyNodes is returned when a snapshot exceeds MaxNodesPerCanvas.
	ErrTooManyNodes = errors.New("too many nodes")
)

// FieldError describes a validation error for a specific field.
type FieldError struct {
	Field   string
	Message string
}

// ValidationError contains a list of field-level validation errors.
type ValidationError struct {
	Errors []FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Errors) == 1 {
		return fmt.Sprintf("validation: %s — %s", e.Errors[0].Field, e.Errors[0].Message)
	}
	return fmt.Sprintf("validation: %d errors", len(e.Errors))
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// NewValidationError creates a ValidationError for a single field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Errors: []FieldError{{Field: field, Message: message}},
	}
}

// ShareLockError reports an attempt to create a second indefinite view link
// for a canvas that already has one. ExistingID identifies the active lock.
type ShareLockError struct {
	ExistingID string
}

func (e *ShareLockError) Error() string {
	return fmt.Sprintf("canvas already has an indefinite view link (share %s)", e.ExistingID)
}

func (e *ShareLockError) Unwrap() error { return ErrConflict }
