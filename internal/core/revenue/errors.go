package revenue

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation marks malformed events. Never retried; nothing is written.
	ErrValidation = errors.New("invalid lifecycle event")

	// ErrBucketNotFound marks a bucket that should exist but does not.
	// The service self-heals it by creating the bucket at zero.
	ErrBucketNotFound = errors.New("revenue bucket not found")

	// ErrPersistence marks transaction, lock or timeout failures. Retryable by the feed.
	ErrPersistence = errors.New("revenue bucket persistence failed")

	// ErrAlreadyApplied is returned when an event ID was committed before.
	ErrAlreadyApplied = errors.New("lifecycle event already applied")

	// ErrInvariant marks a broken internal invariant. Redelivery cannot fix it,
	// so it is never retried.
	ErrInvariant = errors.New("revenue invariant violated")
)

// ValidationError names the offending field of a rejected event.
type ValidationError struct {
	Field  string
	Reason string
}

func newValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// NewValidationError builds a ValidationError for decoders outside this package.
func NewValidationError(field, reason string) *ValidationError {
	return newValidationError(field, reason)
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s %s", ErrValidation, e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// IsRetryable reports whether the feed should redeliver the event.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrPersistence)
}
