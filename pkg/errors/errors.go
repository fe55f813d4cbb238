package errors

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// ErrorType represents different types of errors that can occur
type ErrorType string

const (
	ErrorTypeNetwork     ErrorType = "network"
	ErrorTypeRateLimit   ErrorType = "rate_limit"
	ErrorTypeAuth        ErrorType = "auth"
	ErrorTypeForbidden   ErrorType = "forbidden"
	ErrorTypeParsing     ErrorType = "parsing"
	ErrorTypeNotFound    ErrorType = "not_found"
	ErrorTypeServerError ErrorType = "server_error"
	ErrorTypeUnknown     ErrorType = "unknown"
)

// Error represents a Reddit API error with type information
type Error struct {
	Type    ErrorType
	Message string
	Code    int
	// Wait is the server-requested delay before retrying, if any
	Wait time.Duration
}

func (e *Error) Error() string {
	return fmt.Sprintf("reddit %s error (code %d): %s", e.Type, e.Code, e.Message)
}

// RetryAfter reports the server-requested delay
func (e *Error) RetryAfter() time.Duration {
	return e.Wait
}

// New creates a typed error
func New(t ErrorType, code int, format string, args ...interface{}) *Error {
	return &Error{Type: t, Code: code, Message: fmt.Sprintf(format, args...)}
}

// FromStatus maps an HTTP status code to a typed error. It returns nil for 2xx.
func FromStatus(statusCode int, url string) *Error {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return nil
	case statusCode == http.StatusUnauthorized:
		return New(ErrorTypeAuth, statusCode, "authentication required: %s", url)
	case statusCode == http.StatusForbidden:
		// private or suspended profiles and quarantined subreddits
		return New(ErrorTypeForbidden, statusCode, "access forbidden: %s", url)
	case statusCode == http.StatusNotFound:
		return New(ErrorTypeNotFound, statusCode, "resource not found: %s", url)
	case statusCode == http.StatusTooManyRequests:
		return New(ErrorTypeRateLimit, statusCode, "rate limit exceeded: %s", url)
	case statusCode >= 500:
		return New(ErrorTypeServerError, statusCode, "server error: %s", url)
	default:
		return New(ErrorTypeUnknown, statusCode, "unexpected status code %d: %s", statusCode, url)
	}
}

// IsRetryable checks if an error type should be retried
func IsRetryable(errorType ErrorType) bool {
	switch errorType {
	case ErrorTypeNetwork, ErrorTypeRateLimit, ErrorTypeServerError:
		return true
	default:
		return false
	}
}

// TypeOf returns the ErrorType of err, or ErrorTypeUnknown if err is not typed
func TypeOf(err error) ErrorType {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Type
	}
	return ErrorTypeUnknown
}

// Is reports whether err is a typed error of the given type
func Is(err error, t ErrorType) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Type == t
}

// Sentinel errors shared across packages
var (
	ErrCredentialsNotFound = errors.New("credentials not found")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrStoreUnavailable    = errors.New("credential store unavailable")
	ErrInvalidMode         = errors.New("invalid collection mode")
)
