// Package errors defines the error codes and error type used across flagcache.
package errors

import (
	stderrors "errors"
)

// ErrorCode represents a flagcache error code.
type ErrorCode string

const (
	// Initialization errors
	ErrInitFailed ErrorCode = "INIT_FAILED"

	// Authentication errors
	ErrAuthUnauthorized ErrorCode = "AUTH_UNAUTHORIZED"
	ErrAuthInvalidKey   ErrorCode = "AUTH_INVALID_KEY"

	// Network errors
	ErrNetworkError      ErrorCode = "NETWORK_ERROR"
	ErrNetworkTimeout    ErrorCode = "NETWORK_TIMEOUT"
	ErrNetworkRetryLimit ErrorCode = "NETWORK_RETRY_LIMIT"

	// Evaluation errors
	ErrEvalFailed       ErrorCode = "EVAL_FAILED"
	ErrEvalInvalidKey   ErrorCode = "EVAL_INVALID_KEY"
	ErrEvalUnsupported  ErrorCode = "EVAL_UNSUPPORTED"
	ErrEvalFlagNotFound ErrorCode = "EVAL_FLAG_NOT_FOUND"

	// Circuit breaker errors
	ErrCircuitOpen ErrorCode = "CIRCUIT_OPEN"

	// Security errors
	ErrSecurityPIIDetected ErrorCode = "SECURITY_PII_DETECTED"

	// Configuration errors
	ErrConfigMissingRequired  ErrorCode = "CONFIG_MISSING_REQUIRED"
	ErrConfigInvalidURL       ErrorCode = "CONFIG_INVALID_URL"
	ErrConfigInvalidTTL       ErrorCode = "CONFIG_INVALID_TTL"
	ErrConfigInvalidTransport ErrorCode = "CONFIG_INVALID_TRANSPORT"
	ErrConfigInvalidSize      ErrorCode = "CONFIG_INVALID_SIZE"
)

// Error is the error type returned by flagcache components.
type Error struct {
	Code        ErrorCode
	Message     string
	Cause       error
	Recoverable bool
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return "[" + string(e.Code) + "] " + e.Message + ": " + e.Cause.Error()
	}
	return "[" + string(e.Code) + "] " + e.Message
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError creates a new Error.
func NewError(code ErrorCode, message string) *Error {
	return &Error{
		Code:        code,
		Message:     message,
		Recoverable: isRecoverableCode(code),
	}
}

// NewErrorWithCause creates a new Error wrapping cause.
func NewErrorWithCause(code ErrorCode, message string, cause error) *Error {
	return &Error{
		Code:        code,
		Message:     message,
		Cause:       cause,
		Recoverable: isRecoverableCode(code),
	}
}

// NetworkError creates a network error.
func NetworkError(code ErrorCode, message string, cause error) *Error {
	return NewErrorWithCause(code, message, cause)
}

// ConfigError creates a configuration error.
func ConfigError(code ErrorCode, message string) *Error {
	return NewError(code, message)
}

// HasCode reports whether any Error in err's chain carries code.
func HasCode(err error, code ErrorCode) bool {
	for err != nil {
		var e *Error
		if !stderrors.As(err, &e) {
			return false
		}
		if e.Code == code {
			return true
		}
		err = e.Cause
	}
	return false
}

// IsRecoverable reports whether any Error in err's chain is recoverable.
func IsRecoverable(err error) bool {
	for err != nil {
		var e *Error
		if !stderrors.As(err, &e) {
			return false
		}
		if e.Recoverable {
			return true
		}
		err = e.Cause
	}
	return false
}

func isRecoverableCode(code ErrorCode) bool {
	switch code {
	case ErrNetworkError, ErrNetworkTimeout, ErrNetworkRetryLimit, ErrCircuitOpen:
		return true
	default:
		return false
	}
}
