package models

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates the referenced row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrValidation indicates user input was rejected before touching the store.
	ErrValidation = errors.New("validation error")
	// ErrStoreUnavailable covers every read/write failure of the backing store.
	// Callers surface it and retry the whole fetch; there is no partial retry.
	ErrStoreUnavailable = errors.New("store unavailable")
	// ErrConflict indicates a revision mismatch on a guarded update.
	ErrConflict = errors.New("revision conflict")
	// ErrInsufficientStock indicates a sale exceeds today's available units.
	ErrInsufficientStock = errors.New("insufficient stock")
)

// ValidationError describes a rejected input field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// NewValidationError builds a ValidationError for a single field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// Unavailable wraps a raw store failure so callers can match ErrStoreUnavailable.
// Domain errors pass through untouched.
func Unavailable(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrValidation) || errors.Is(err, ErrConflict) || errors.Is(err, ErrStoreUnavailable) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %w", op, ErrStoreUnavailable, err)
}
