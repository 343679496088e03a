package client

import (
	"errors"
	"fmt"
)

// ErrorClass classifies a failed request for retry decisions and metrics.
type ErrorClass string

const (
	// ErrorClassAPI marks a definitive server rejection: a non-2xx status
	// other than 429, or a body that is not valid JSON. Never retried.
	ErrorClassAPI ErrorClass = "api"

	// ErrorClassRateLimit marks a 429 response. Retried after the
	// server-mandated wait.
	ErrorClassRateLimit ErrorClass = "rate_limit"

	// ErrorClassNetwork marks a transport-level failure (connection,
	// timeout, DNS). Retried.
	ErrorClassNetwork ErrorClass = "network"
)

// Common errors returned by the client and facade.
var (
	// ErrRetryExhausted is returned when all retry attempts are exhausted.
	ErrRetryExhausted = errors.New("retry attempts exhausted")

	// ErrContextCancelled is returned when the context is cancelled while
	// waiting between attempts or for a rate-limit cooldown.
	ErrContextCancelled = errors.New("context cancelled")

	// ErrNotFound is returned by singular lookups whose result set is
	// empty.
	ErrNotFound = errors.New("not found")

	// ErrValidation is returned for malformed caller input, before any
	// request is made.
	ErrValidation = errors.New("validation failed")
)

// APIError carries the endpoint and cause of a failed Kolada request.
type APIError struct {
	Endpoint   string
	StatusCode int
	Class      ErrorClass
	Message    string
	Err        error
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("kolada %s error on %s (status %d): %s: %v",
			e.Class, e.Endpoint, e.StatusCode, e.Message, e.Err)
	}
	return fmt.Sprintf("kolada %s error on %s (status %d): %s",
		e.Class, e.Endpoint, e.StatusCode, e.Message)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *APIError) Unwrap() error {
	return e.Err
}

// classOf extracts the error class, defaulting to api for anything that is
// not an APIError.
func classOf(err error) ErrorClass {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Class
	}
	return ErrorClassAPI
}

// shouldRetry reports whether an error is transient. Only rate-limit and
// transport failures qualify; an HTTP error status the server did return
// is a definitive answer.
func shouldRetry(err error) bool {
	switch classOf(err) {
	case ErrorClassRateLimit, ErrorClassNetwork:
		return true
	default:
		return false
	}
}
