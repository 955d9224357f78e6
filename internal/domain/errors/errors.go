package errors

import (
	"errors"
	"fmt"
)

var (
	// Payment verification errors
	ErrPaymentNotFound     = errors.New("payment not found")
	ErrPaymentNotCompleted = errors.New("payment not completed")

	// Rate limiting errors
	ErrRateLimited = errors.New("rate limit exceeded")

	// Provisioning errors
	ErrUserNotFound         = errors.New("user not found")
	ErrSubscriptionNotFound = errors.New("subscription not found")

	// Validation errors
	ErrInvalidInput = errors.New("invalid input")
)

// NotCompleted wraps ErrPaymentNotCompleted with the actual provider status
// for diagnostics.
func NotCompleted(status string) error {
	return fmt.Errorf("payment has status %q: %w", status, ErrPaymentNotCompleted)
}

// ValidationError is a field-attributed input validation failure.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for field %s: %s", e.Field, e.Message)
}

// NewValidationError creates a new validation error.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}
