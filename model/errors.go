package model

import (
	"errors"
	"fmt"
)

var (
	ErrValidation = errors.New("validation failed")
	ErrNotFound   = errors.New("not found")
	ErrDelivery   = errors.New("delivery failed")
	ErrStorage    = errors.New("storage failed")

	// ErrFileMissing means a record exists but its PDF is gone from storage.
	ErrFileMissing = fmt.Errorf("%w: contract file missing from storage", ErrNotFound)
)

// ValidationError carries a message that is safe to return to clients.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// Invalid returns a ValidationError with the given message.
func Invalid(msg string) error {
	return &ValidationError{Message: msg}
}
