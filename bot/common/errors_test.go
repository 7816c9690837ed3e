package common

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBotError_ErrorIncludesUnderlying(t *testing.T) {
	underlying := errors.New("connection refused")
	err := NewSystemError(underlying, "node call failed")

	assert.Equal(t, "node call failed: connection refused", err.Error())
	assert.Equal(t, "❌ Something went wrong. Please try again later.", err.UserMessage)
	assert.True(t, err.Ephemeral)
}

func TestBotError_ErrorWithoutUnderlying(t *testing.T) {
	err := NewUserError("Could not join <#42>.", "voice join failed")

	assert.Equal(t, "voice join failed", err.Error())
	assert.Equal(t, "Could not join <#42>.", err.UserMessage)
	assert.True(t, err.Ephemeral)
	assert.Nil(t, err.Err)
}

func TestBotError_Unwrap(t *testing.T) {
	underlying := errors.New("pool exhausted")
	err := NewSystemError(fmt.Errorf("query: %w", underlying), "binding load failed")

	assert.True(t, errors.Is(err, underlying))
}
