package errors

import (
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeErrorMessageDisabled(t *testing.T) {
	message := "Error at /home/user/app/config.json with IP 192.168.1.100"
	assert.Equal(t, message, SanitizeErrorMessage(message, ErrorSanitizationConfig{}))
}

func TestSanitizeErrorMessage(t *testing.T) {
	config := ErrorSanitizationConfig{Enabled: true}

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"unix path", "Failed to read /home/user/config.json", "Failed to read [PATH]"},
		{"windows path", `open C:\Users\app\flags.json`, "open [PATH]"},
		{"ipv4", "dial tcp 10.0.0.12:9000: connection refused", "dial tcp [IP]:9000: connection refused"},
		{"bearer token", "token Bearer abc.def-123 rejected", "token Bearer [REDACTED] rejected"},
		{"email", "user jane.doe@example.com not allowed", "user [EMAIL] not allowed"},
		{"connection string", "connect postgres://admin:secret@db:5432/flags failed", "connect [CONNECTION_STRING] failed"},
		{"nothing sensitive", "flag not found", "flag not found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, SanitizeErrorMessage(tt.input, config))
		})
	}
}

func TestSanitizeError(t *testing.T) {
	config := ErrorSanitizationConfig{Enabled: true}

	assert.Equal(t, "", SanitizeError(nil, config))
	assert.Equal(t, "dial [IP]: refused", SanitizeError(stderrors.New("dial 127.0.0.1: refused"), config))
}
