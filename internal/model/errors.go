package model

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNotFound is returned when a record does not exist or is not
	// owned by the caller. The two cases are deliberately
	// indistinguishable.
	ErrNotFound = errors.New("record not found")

	// ErrUnauthenticated is returned when a credential is missing,
	// malformed, expired or carries a bad signature.
	ErrUnauthenticated = errors.New("could not validate credentials")

	// ErrStorageUnavailable is returned when the durable backend is
	// unreachable. Callers may retry.
	ErrStorageUnavailable = errors.New("storage unavailable")
)

// InvalidInputError describes a request rejected before any expensive work.
type InvalidInputError struct {
	Reason string
}

func (e *InvalidInputError) Error() string {
	return e.Reason
}

// NewInvalidInputError creates an InvalidInputError with the given reason.
func NewInvalidInputError(format string, args ...any) *InvalidInputError {
	return &InvalidInputError{Reason: fmt.Sprintf(format, args...)}
}

// ExtractionError describes a failed OCR run. Cause is safe to show to
// callers and carries no internal stack detail.
type ExtractionError struct {
	Cause string
}

func (e *ExtractionError) Error() string {
	return "text extraction failed: " + e.Cause
}

// NewExtractionError creates an ExtractionError with the given cause.
func NewExtractionError(format string, args ...any) *ExtractionError {
	return &ExtractionError{Cause: fmt.Sprintf(format, args...)}
}

// RateLimitError describes an admission denial and how long the caller
// should wait before retrying.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded, retry after %s", e.RetryAfter)
}
