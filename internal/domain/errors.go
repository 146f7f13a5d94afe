package domain

import (
	"errors"
	"fmt"

	"github.com/kailas-cloud/analogist/internal/domain/usage"
)

var (
	// ErrInvalidInput signals a user-correctable request problem.
	ErrInvalidInput = errors.New("invalid input")
	// ErrQuotaExceeded signals an exhausted daily quota.
	ErrQuotaExceeded = errors.New("daily quota exceeded")
	// ErrUpstream signals a generation backend failure or malformed backend response.
	ErrUpstream = errors.New("upstream generation failed")
	// ErrConfiguration signals missing or invalid server configuration (e.g. no API key).
	ErrConfiguration = errors.New("configuration error")
	// ErrStoreUnavailable signals that the usage counter store could not be read or written.
	ErrStoreUnavailable = errors.New("usage store unavailable")
)

// InvalidInputError wraps ErrInvalidInput with a client-visible message.
type InvalidInputError struct {
	Message string
}

func (e *InvalidInputError) Error() string { return e.Message }
func (e *InvalidInputError) Unwrap() error { return ErrInvalidInput }

// NewInvalidInput creates an invalid input error.
func NewInvalidInput(format string, args ...any) error {
	return &InvalidInputError{Message: fmt.Sprintf(format, args...)}
}

// QuotaExceededError wraps ErrQuotaExceeded with the usage observed at decision time.
type QuotaExceededError struct {
	Usage usage.Snapshot
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("Daily limit of %d requests reached. Resets at midnight %s.",
		e.Usage.Limit(), e.Usage.ResetsAt().Format("MST"))
}

func (e *QuotaExceededError) Unwrap() error { return ErrQuotaExceeded }

// NewQuotaExceeded creates a quota exceeded error.
func NewQuotaExceeded(snap usage.Snapshot) error {
	return &QuotaExceededError{Usage: snap}
}

// UpstreamError carries the backend's own message. It matches both ErrUpstream
// and the underlying cause (e.g. context.DeadlineExceeded).
type UpstreamError struct {
	Message string
	Err     error
}

func (e *UpstreamError) Error() string { return e.Message }

func (e *UpstreamError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrUpstream}
	}
	return []error{ErrUpstream, e.Err}
}

// NewUpstreamError creates an upstream error with a client-visible message.
func NewUpstreamError(message string, cause error) error {
	if message == "" {
		message = "Failed to generate analogy"
	}
	return &UpstreamError{Message: message, Err: cause}
}
