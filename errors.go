package flagcache

import (
	"github.com/teracrafts/flagcache-go/errors"
)

// ErrorCode represents a flagcache error code.
type ErrorCode = errors.ErrorCode

// Error codes
const (
	ErrInitFailed = errors.ErrInitFailed

	// Authentication errors
	ErrAuthUnauthorized = errors.ErrAuthUnauthorized
	ErrAuthInvalidKey   = errors.ErrAuthInvalidKey

	// Network errors
	ErrNetworkError      = errors.ErrNetworkError
	ErrNetworkTimeout    = errors.ErrNetworkTimeout
	ErrNetworkRetryLimit = errors.ErrNetworkRetryLimit

	// Evaluation errors
	ErrEvalFailed       = errors.ErrEvalFailed
	ErrEvalInvalidKey   = errors.ErrEvalInvalidKey
	ErrEvalUnsupported  = errors.ErrEvalUnsupported
	ErrEvalFlagNotFound = errors.ErrEvalFlagNotFound

	ErrCircuitOpen = errors.ErrCircuitOpen

	ErrSecurityPIIDetected = errors.ErrSecurityPIIDetected

	// Configuration errors
	ErrConfigMissingRequired  = errors.ErrConfigMissingRequired
	ErrConfigInvalidURL       = errors.ErrConfigInvalidURL
	ErrConfigInvalidTTL       = errors.ErrConfigInvalidTTL
	ErrConfigInvalidTransport = errors.ErrConfigInvalidTransport
	ErrConfigInvalidSize      = errors.ErrConfigInvalidSize
)

// Error is the error type returned by flagcache.
type Error = errors.Error

// ErrorSanitizationConfig controls redaction of logged error messages.
type ErrorSanitizationConfig = errors.ErrorSanitizationConfig

// NewError creates a new Error.
func NewError(code ErrorCode, message string) *Error {
	return errors.NewError(code, message)
}

// NewErrorWithCause creates a new Error with a cause.
func NewErrorWithCause(code ErrorCode, message string, cause error) *Error {
	return errors.NewErrorWithCause(code, message, cause)
}

// HasCode reports whether err carries code anywhere in its chain.
func HasCode(err error, code ErrorCode) bool {
	return errors.HasCode(err, code)
}

// IsRecoverable checks if the error is recoverable.
func IsRecoverable(err error) bool {
	return errors.IsRecoverable(err)
}
