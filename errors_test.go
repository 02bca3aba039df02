package flagcache

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewError(t *testing.T) {
	err := NewError(ErrAuthInvalidKey, "invalid token")

	assert.Equal(t, ErrAuthInvalidKey, err.Code)
	assert.Equal(t, "invalid token", err.Message)
	assert.Nil(t, err.Cause)
	assert.False(t, err.Recoverable)
	assert.Equal(t, "[AUTH_INVALID_KEY] invalid token", err.Error())
}

func TestErrorChain(t *testing.T) {
	cause := errors.New("connection refused")
	inner := NewErrorWithCause(ErrNetworkError, "request failed", cause)
	outer := NewErrorWithCause(ErrEvalFailed, "evaluate flag new_dashboard", inner)
	wrapped := fmt.Errorf("handler: %w", outer)

	assert.True(t, HasCode(wrapped, ErrEvalFailed))
	assert.True(t, HasCode(wrapped, ErrNetworkError))
	assert.False(t, HasCode(wrapped, ErrCircuitOpen))
	assert.True(t, IsRecoverable(wrapped))
	assert.ErrorIs(t, wrapped, cause)
}
