package errors

import (
	"regexp"
)

// ErrorSanitizationConfig configures redaction of sensitive data in logged error messages.
type ErrorSanitizationConfig struct {
	// Enabled enables error message sanitization. Default: false.
	Enabled bool
}

type sanitizationPattern struct {
	pattern     *regexp.Regexp
	replacement string
}

// Connection strings and bearer tokens must be matched before bare paths.
var sanitizationPatterns = []sanitizationPattern{
	// Connection strings (postgres, mysql, mongodb, redis)
	{regexp.MustCompile(`(?i)(?:postgres|mysql|mongodb|redis)://[^\s]+`), "[CONNECTION_STRING]"},
	// Bearer tokens
	{regexp.MustCompile(`(?i)bearer\s+[a-zA-Z0-9._~+/=-]+`), "Bearer [REDACTED]"},
	// Unix-style file paths
	{regexp.MustCompile(`/(?:[\w.-]+/)+[\w.-]+`), "[PATH]"},
	// Windows-style file paths
	{regexp.MustCompile(`[A-Za-z]:\\(?:[^\\]+\\)+[^\\]*`), "[PATH]"},
	// IPv4 addresses
	{regexp.MustCompile(`\b\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3}\b`), "[IP]"},
	// Email addresses
	{regexp.MustCompile(`[\w.+-]+@[\w.-]+\.\w+`), "[EMAIL]"},
}

// SanitizeErrorMessage removes sensitive information from an error message.
// If sanitization is disabled, the original message is returned unchanged.
func SanitizeErrorMessage(message string, config ErrorSanitizationConfig) string {
	if !config.Enabled {
		return message
	}

	result := message
	for _, sp := range sanitizationPatterns {
		result = sp.pattern.ReplaceAllString(result, sp.replacement)
	}
	return result
}

// SanitizeError returns err's message with sensitive information removed.
func SanitizeError(err error, config ErrorSanitizationConfig) string {
	if err == nil {
		return ""
	}
	return SanitizeErrorMessage(err.Error(), config)
}
