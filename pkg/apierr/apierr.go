// Package apierr defines the service's error taxonomy: typed upstream
// call errors for retry decisions, and sentinel errors that handlers map
// to HTTP status codes.
package apierr

import (
	"errors"
	"fmt"
)

// ErrorType classifies upstream call failures.
type ErrorType string

const (
	ErrorTypeNetwork     ErrorType = "network"
	ErrorTypeRateLimit   ErrorType = "rate_limit"
	ErrorTypeAuth        ErrorType = "auth"
	ErrorTypeParsing     ErrorType = "parsing"
	ErrorTypeNotFound    ErrorType = "not_found"
	ErrorTypeServerError ErrorType = "server_error"
	ErrorTypeUnknown     ErrorType = "unknown"
)

// Error represents a failed call to an upstream API (scraper backend,
// language model, Graph API). Adapter-level call failures are logged and
// swallowed by the fallback coordinator; they never reach a handler on
// their own.
type Error struct {
	Type    ErrorType
	Message string
	Code    int
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s error (code %d): %s", e.Type, e.Code, e.Message)
}

// IsRetryable reports whether an error type is worth retrying.
func IsRetryable(errorType ErrorType) bool {
	switch errorType {
	case ErrorTypeNetwork, ErrorTypeRateLimit, ErrorTypeServerError:
		return true
	default:
		return false
	}
}

// IsRetryableStatusCode reports whether an HTTP status code indicates a
// retryable failure.
func IsRetryableStatusCode(statusCode int) bool {
	switch statusCode {
	case 0: // network error
		return true
	case 429:
		return true
	case 401, 403, 404:
		return false
	default:
		return statusCode >= 500
	}
}

// Sentinel errors surfaced to API callers.
var (
	// ErrNoDataAvailable means every scraper adapter was exhausted
	// without producing data that passed the validity predicate.
	ErrNoDataAvailable = errors.New("no data available from any scraper backend")

	// ErrInvalidInput means a username or profile URL failed local
	// validation; no network call was made.
	ErrInvalidInput = errors.New("invalid input")

	// ErrConfigurationMissing means a required upstream credential is
	// absent from the configuration.
	ErrConfigurationMissing = errors.New("required configuration missing")

	// ErrNotFound means a stored record does not exist.
	ErrNotFound = errors.New("not found")
)

// NoData wraps the last underlying adapter error, if any, into an
// ErrNoDataAvailable chain for diagnostics.
func NoData(last error) error {
	if last == nil {
		return ErrNoDataAvailable
	}
	return fmt.Errorf("%w: last error: %w", ErrNoDataAvailable, last)
}

// Invalid annotates ErrInvalidInput with a reason.
func Invalid(reason string) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, reason)
}

// MissingConfig annotates ErrConfigurationMissing with the credential name.
func MissingConfig(name string) error {
	return fmt.Errorf("%w: %s", ErrConfigurationMissing, name)
}
