package errors

import (
	"errors"
	"fmt"
	"time"
)

// ErrorType classifies export failures for retry and abort decisions
type ErrorType string

const (
	ErrorTypeNetwork     ErrorType = "network"
	ErrorTypeRateLimit   ErrorType = "rate_limit"
	ErrorTypeServerError ErrorType = "server_error"
	ErrorTypeAuth        ErrorType = "auth"
	ErrorTypeNotFound    ErrorType = "not_found"
	ErrorTypeParsing     ErrorType = "parsing"
	ErrorTypePagination  ErrorType = "pagination_anomaly"
	ErrorTypeStoreIO     ErrorType = "store_io"
	ErrorTypeUnknown     ErrorType = "unknown"
)

// Error represents a classified export error
type Error struct {
	Type    ErrorType
	Message string
	Code    int
	// RetryAfter is the server-suggested backoff for rate limit errors
	RetryAfter time.Duration
	// Endpoint and Cursor locate the failure within an export session
	Endpoint string
	Cursor   string
	Err      error
}

func (e *Error) Error() string {
	if e.Endpoint != "" {
		return fmt.Sprintf("%s error (code %d) on endpoint %q: %s", e.Type, e.Code, e.Endpoint, e.Message)
	}
	return fmt.Sprintf("%s error (code %d): %s", e.Type, e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a classified error
func New(t ErrorType, code int, format string, args ...interface{}) *Error {
	return &Error{Type: t, Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates a classified error around an underlying cause
func Wrap(t ErrorType, err error, format string, args ...interface{}) *Error {
	return &Error{Type: t, Message: fmt.Sprintf(format, args...), Err: err}
}

// IsRetryable reports whether an error type should be retried with backoff
func IsRetryable(t ErrorType) bool {
	switch t {
	case ErrorTypeNetwork, ErrorTypeRateLimit, ErrorTypeServerError:
		return true
	default:
		return false
	}
}

// IsRetryableError reports whether err should be retried with backoff.
// Unclassified errors are treated as retryable network-level failures.
func IsRetryableError(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return IsRetryable(e.Type)
	}
	return err != nil
}

// IsFatal reports whether err should abort the endpoint without retrying
func IsFatal(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		switch e.Type {
		case ErrorTypeAuth, ErrorTypeNotFound, ErrorTypeParsing, ErrorTypePagination:
			return true
		}
	}
	return false
}

// IsStoreIO reports whether err is a checkpoint persistence failure,
// which is fatal to the whole session
func IsStoreIO(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Type == ErrorTypeStoreIO
}

// TypeOf returns the classification of err, or ErrorTypeUnknown
func TypeOf(err error) ErrorType {
	var e *Error
	if errors.As(err, &e) {
		return e.Type
	}
	return ErrorTypeUnknown
}

// RetryAfterOf returns the server-suggested backoff carried by err, if any
func RetryAfterOf(err error) time.Duration {
	var e *Error
	if errors.As(err, &e) {
		return e.RetryAfter
	}
	return 0
}

// IsRetryableStatusCode checks if an HTTP status code indicates a retryable error
func IsRetryableStatusCode(statusCode int) bool {
	switch statusCode {
	case 0: // Network error
		return true
	case 429: // Too Many Requests
		return true
	case 401, 403, 404:
		return false
	default:
		return statusCode >= 500
	}
}

// TypeForStatusCode maps an HTTP status code to an error type
func TypeForStatusCode(statusCode int) ErrorType {
	switch {
	case statusCode == 0:
		return ErrorTypeNetwork
	case statusCode == 429:
		return ErrorTypeRateLimit
	case statusCode == 401 || statusCode == 403:
		return ErrorTypeAuth
	case statusCode == 404:
		return ErrorTypeNotFound
	case statusCode >= 500:
		return ErrorTypeServerError
	default:
		return ErrorTypeUnknown
	}
}
