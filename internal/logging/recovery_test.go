package logging

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestRecoveryHandler_Wrap(t *testing.T) {
	executed := false
	NewRecoveryHandler("test-component").Wrap(func() {
		executed = true
	})
	assert.True(t, executed)
}

func TestRecoveryHandler_WrapPanic(t *testing.T) {
	logs := observe(t, zapcore.ErrorLevel)
	handler := NewRecoveryHandler("test-component")

	var captured any
	var stack string
	handler.OnPanic = func(rec any, s string) {
		captured = rec
		stack = s
	}

	handler.Wrap(func() {
		panic("test panic")
	})

	assert.Equal(t, "test panic", captured)
	assert.True(t, strings.Contains(stack, "TestRecoveryHandler_WrapPanic"))
	assert.Equal(t, 1, logs.FilterMessage("panic_recovered").Len())
}

func TestRecoveryHandler_WrapError(t *testing.T) {
	handler := NewRecoveryHandler("c")

	err := handler.WrapError(func() error { return errors.New("plain") })
	assert.EqualError(t, err, "plain")

	err = handler.WrapError(func() error { panic("kaboom") })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "panic in c: kaboom")
}
