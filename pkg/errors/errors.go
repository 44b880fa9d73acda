package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorType represents the failure classes a catalog call can end in
type ErrorType string

const (
	ErrorTypeRateLimited       ErrorType = "rate_limited"
	ErrorTypeServerUnavailable ErrorType = "server_unavailable"
	ErrorTypeTimeout           ErrorType = "timeout"
	ErrorTypeClient            ErrorType = "client_error"
	ErrorTypeDownload          ErrorType = "download_failure"
	ErrorTypeUnknown           ErrorType = "unknown"
)

// Error represents a classified catalog or download error
type Error struct {
	Type    ErrorType
	Message string
	Code    int
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s error (code %d): %s", e.Type, e.Code, e.Message)
}

// New creates a classified error
func New(errorType ErrorType, code int, format string, args ...interface{}) *Error {
	return &Error{
		Type:    errorType,
		Message: fmt.Sprintf(format, args...),
		Code:    code,
	}
}

// TypeOf returns the type of a classified error, or ErrorTypeUnknown
func TypeOf(err error) ErrorType {
	var classified *Error
	if stderrors.As(err, &classified) {
		return classified.Type
	}
	return ErrorTypeUnknown
}

// Is reports whether err is a classified error of the given type
func Is(err error, errorType ErrorType) bool {
	var classified *Error
	return stderrors.As(err, &classified) && classified.Type == errorType
}

// IsRetryable checks if an error type should be retried
func IsRetryable(errorType ErrorType) bool {
	switch errorType {
	case ErrorTypeRateLimited, ErrorTypeServerUnavailable, ErrorTypeTimeout:
		return true
	case ErrorTypeClient, ErrorTypeDownload:
		return false
	default:
		return false
	}
}

// IsShrinkable checks if an error type may be caused by a page that is too large.
// Rate limits never are
func IsShrinkable(errorType ErrorType) bool {
	return errorType == ErrorTypeServerUnavailable || errorType == ErrorTypeTimeout
}

// ClassifyStatusCode maps an HTTP status code to an error type.
// 2xx codes return ErrorTypeUnknown since they are not failures
func ClassifyStatusCode(statusCode int) ErrorType {
	switch {
	case statusCode == 429:
		return ErrorTypeRateLimited
	case statusCode == 502, statusCode == 503, statusCode == 504:
		return ErrorTypeServerUnavailable
	case statusCode == 408:
		return ErrorTypeTimeout
	case statusCode >= 400 && statusCode < 500:
		return ErrorTypeClient
	default:
		// 500 and other non-gateway 5xx responses stay unclassified and propagate
		return ErrorTypeUnknown
	}
}
