package service

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrValidation = errors.New("validation failed")
)

// ValidationError carries the user-facing reason and optional detail, such
// as a rule compile message.
type ValidationError struct {
	Message string
	Details string
}

func (e *ValidationError) Error() string {
	if e.Details == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Message, e.Details)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

func invalid(message, details string) error {
	return &ValidationError{Message: message, Details: details}
}
