package audio

import (
	"errors"
	"fmt"
)

// ErrQueueFull is returned when the pending queue cannot accept a request.
var ErrQueueFull = errors.New("audio: pending queue full")

// APIError represents an error response from the synthesis backend.
type APIError struct {
	// StatusCode is the HTTP status code.
	StatusCode int

	// Message is the error message from the backend.
	Message string

	// Backend identifies which synthesizer returned the error.
	Backend string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("audio [%s]: API error %d: %s", e.Backend, e.StatusCode, e.Message)
}

// IsRateLimited returns true if this is a rate limit error (HTTP 429).
func (e *APIError) IsRateLimited() bool {
	return e.StatusCode == 429
}

// IsServerError returns true if this is a server-side error (HTTP 5xx).
func (e *APIError) IsServerError() bool {
	return e.StatusCode >= 500 && e.StatusCode < 600
}

// IsRetryable returns true if the request should be retried.
func (e *APIError) IsRetryable() bool {
	return e.IsRateLimited() || e.IsServerError()
}

// BackendError wraps an error with backend context.
type BackendError struct {
	Backend string
	Err     error
}

// Error implements the error interface.
func (e *BackendError) Error() string {
	return fmt.Sprintf("audio [%s]: %v", e.Backend, e.Err)
}

// Unwrap returns the underlying error.
func (e *BackendError) Unwrap() error {
	return e.Err
}

// WrapError wraps an error with backend context.
func WrapError(backend string, err error) error {
	if err == nil {
		return nil
	}
	return &BackendError{Backend: backend, Err: err}
}
