//nolint:revive // Package name matches the package it tests
package errors

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSentinelErrors(t *testing.T) {
	all := []error{
		ErrValidation, ErrConfigNotFound, ErrAmbiguousConfig, ErrTypeMismatch,
		ErrSubstrateUnavailable, ErrInterrupted, ErrNoOp, ErrConnectivity,
		ErrPermission, ErrNotFound,
	}
	for i := range all {
		for j := range all {
			if i != j {
				assert.False(t, errors.Is(all[i], all[j]), "%v must not match %v", all[i], all[j])
			}
		}
	}
}

func TestDetailErrorError(t *testing.T) {
	detail := &DetailError{
		Type:     "config not found",
		Message:  "no account named k8s-2",
		Location: "prod.kubernetes.k8s-2",
		Field:    "name",
		Context:  map[string]string{"Provider": "kubernetes", "Deployment": "prod"},
		Hint:     "Add the account first",
	}

	output := detail.Error()

	assert.Contains(t, output, "Error: config not found")
	assert.Contains(t, output, "Location: prod.kubernetes.k8s-2")
	assert.Contains(t, output, "Field: name")
	assert.Contains(t, output, "Provider: kubernetes")
	assert.Contains(t, output, "no account named k8s-2")
	assert.Contains(t, output, "Hint: Add the account first")
	assert.Less(t, strings.Index(output, "Deployment: prod"), strings.Index(output, "Provider: kubernetes"),
		"context keys are rendered in sorted order")
}

func TestDetailErrorUnwrap(t *testing.T) {
	detail := &DetailError{Type: "test", Message: "test message", Cause: ErrValidation}

	assert.True(t, errors.Is(detail, ErrValidation))
	assert.Equal(t, ErrValidation, detail.Unwrap())
}

func TestConstructors(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		sentinel error
	}{
		{"config not found", NewConfigNotFoundError("missing", "prod", "add it"), ErrConfigNotFound},
		{"ambiguous", NewAmbiguousConfigError("two matches", "prod.kubernetes"), ErrAmbiguousConfig},
		{"substrate", NewSubstrateError("create failed", nil, fmt.Errorf("boom")), ErrSubstrateUnavailable},
		{"interrupted", NewInterruptedError("cancelled", nil), ErrInterrupted},
		{"not found", NewNotFoundError("missing file", "/tmp/x", ""), ErrNotFound},
		{"connectivity", NewConnectivityError("unreachable", nil, ""), ErrConnectivity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Error(t, tt.err)
			assert.ErrorIs(t, tt.err, tt.sentinel)

			var detail *DetailError
			require.True(t, errors.As(tt.err, &detail))
		})
	}
}

func TestNewSubstrateErrorKeepsCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := NewSubstrateError("listing pods", map[string]string{"service": "gate"}, cause)

	assert.ErrorIs(t, err, cause)
	assert.ErrorIs(t, err, ErrSubstrateUnavailable)
}

func TestWrap(t *testing.T) {
	err := Wrap(ErrNoOp, "features unchanged")

	assert.ErrorIs(t, err, ErrNoOp)
	assert.Equal(t, "features unchanged: no changes", err.Error())
}

func TestExitError(t *testing.T) {
	inner := Wrap(ErrValidation, "bad config")
	exitErr := &ExitError{Err: inner, Code: 2}

	assert.Equal(t, inner.Error(), exitErr.Error())
	assert.ErrorIs(t, exitErr, ErrValidation)
	assert.Equal(t, "exit code 3", (&ExitError{Code: 3}).Error())
}
