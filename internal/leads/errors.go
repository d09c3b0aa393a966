package leads

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingEmail is returned when a lead arrives without a contact email
	ErrMissingEmail = errors.New("email is required")

	// ErrInvalidEmail is returned when the email does not look like an address
	ErrInvalidEmail = errors.New("email is invalid")

	// ErrInvalidName is returned when the name is invalid
	ErrInvalidName = errors.New("name is required")

	// ErrLeadNotFound is returned when a lead is not found
	ErrLeadNotFound = errors.New("lead not found")
)

// FieldError reports which field of an inbound payload failed validation.
type FieldError struct {
	Field string
	Err   error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %v", e.Field, e.Err)
}

func (e *FieldError) Unwrap() error {
	return e.Err
}

// IsValidationError reports whether err came from payload validation.
func IsValidationError(err error) bool {
	var fieldErr *FieldError
	return errors.As(err, &fieldErr)
}
