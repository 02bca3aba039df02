package security

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teracrafts/flagcache-go/errors"
)

type countingLogger struct {
	warnings []string
}

func (l *countingLogger) Debug(string, ...any) {}
func (l *countingLogger) Info(string, ...any)  {}
func (l *countingLogger) Warn(msg string, keysAndValues ...any) {
	l.warnings = append(l.warnings, msg)
}
func (l *countingLogger) Error(string, ...any) {}

func TestIsPotentialPIIField(t *testing.T) {
	tests := []struct {
		field string
		want  bool
	}{
		{"email", true},
		{"userEmail", true},
		{"phone_number", true},
		{"zip-code", true},
		{"Credit_Card", true},
		{"plan", false},
		{"userAgent", false},
		{"region", false},
	}

	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			assert.Equal(t, tt.want, IsPotentialPIIField(tt.field))
		})
	}
}

func TestDetectPotentialPIISkipsEmptyValues(t *testing.T) {
	fields := DetectPotentialPII(map[string]string{
		"email": "",
		"phone": "555-0100",
		"plan":  "free",
		"ssn":   "000-00-0000",
	})
	assert.Equal(t, []string{"phone", "ssn"}, fields)
	assert.Empty(t, DetectPotentialPII(nil))
}

func TestPIIGuardWarnsOncePerField(t *testing.T) {
	logger := &countingLogger{}
	guard := NewPIIGuard(false, logger)

	require.NoError(t, guard.Check(map[string]string{"email": "a@example.com"}))
	require.NoError(t, guard.Check(map[string]string{"email": "b@example.com"}))
	require.NoError(t, guard.Check(map[string]string{"email": "c@example.com", "phone": "1"}))
	require.NoError(t, guard.Check(map[string]string{"plan": "free"}))

	assert.Len(t, logger.warnings, 2)
}

func TestPIIGuardStrict(t *testing.T) {
	guard := NewPIIGuard(true, nil)

	err := guard.Check(map[string]string{"email": "a@example.com"})
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrSecurityPIIDetected))
	assert.Contains(t, err.Error(), "email")

	assert.NoError(t, guard.Check(map[string]string{"plan": "enterprise"}))
}

func TestStripPII(t *testing.T) {
	evalCtx := map[string]string{
		"email":     "user@example.com",
		"userPhone": "555-0100",
		"password":  "",
		"plan":      "enterprise",
		"userAgent": "test-agent",
	}

	stripped := StripPII(evalCtx)
	assert.Equal(t, map[string]string{
		"password":  "",
		"plan":      "enterprise",
		"userAgent": "test-agent",
	}, stripped)
	assert.Empty(t, DetectPotentialPII(stripped))
	assert.NoError(t, NewPIIGuard(true, nil).Check(stripped))
	assert.Len(t, evalCtx, 5, "input must not be modified")
	assert.Empty(t, StripPII(nil))
}
