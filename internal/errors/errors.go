// Package errors provides the error taxonomy shared by hal packages.
package errors

import (
	"fmt"
	"sort"
	"strings"
)

// DetailError captures structured error information.
type DetailError struct {
	// Type is the error category (required).
	Type string

	// Message is the specific description (required).
	Message string

	// Location is the dotted config path or file the error refers to (optional).
	Location string

	// Field is the offending field name (optional).
	Field string

	// Context contains additional key-value context (optional).
	Context map[string]string

	// Hint provides actionable guidance (optional).
	Hint string

	// Cause is the underlying error (optional).
	Cause error
}

// Error implements the error interface.
func (e *DetailError) Error() string {
	var b strings.Builder

	b.WriteString("Error: ")
	b.WriteString(e.Type)
	b.WriteString("\n")

	if e.Location != "" {
		b.WriteString("  Location: ")
		b.WriteString(e.Location)
		b.WriteString("\n")
	}
	if e.Field != "" {
		b.WriteString("  Field: ")
		b.WriteString(e.Field)
		b.WriteString("\n")
	}

	keys := make([]string, 0, len(e.Context))
	for k := range e.Context {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		b.WriteString("  ")
		b.WriteString(k)
		b.WriteString(": ")
		b.WriteString(e.Context[k])
		b.WriteString("\n")
	}

	b.WriteString("\n  ")
	b.WriteString(e.Message)
	b.WriteString("\n")

	if e.Hint != "" {
		b.WriteString("\nHint: ")
		b.WriteString(e.Hint)
		b.WriteString("\n")
	}

	return b.String()
}

// Unwrap returns the underlying error.
func (e *DetailError) Unwrap() error {
	return e.Cause
}

// NewConfigNotFoundError reports that nothing in the halconfig matched location.
func NewConfigNotFoundError(message, location, hint string) error {
	return &DetailError{
		Type:     "config not found",
		Message:  message,
		Location: location,
		Hint:     hint,
		Cause:    ErrConfigNotFound,
	}
}

// NewAmbiguousConfigError reports that more than one node matched location.
func NewAmbiguousConfigError(message, location string) error {
	return &DetailError{
		Type:     "ambiguous config",
		Message:  message,
		Location: location,
		Hint:     "This indicates a corrupted halconfig; node names must be unique among siblings.",
		Cause:    ErrAmbiguousConfig,
	}
}

// NewSubstrateError reports a failed or timed-out cluster operation.
func NewSubstrateError(message string, context map[string]string, cause error) error {
	return &DetailError{
		Type:    "substrate unavailable",
		Message: message,
		Context: context,
		Cause:   fmt.Errorf("%w: %w", ErrSubstrateUnavailable, cause),
	}
}

// NewInterruptedError reports a cancelled wait.
func NewInterruptedError(message string, context map[string]string) error {
	return &DetailError{
		Type:    "interrupted",
		Message: message,
		Context: context,
		Cause:   ErrInterrupted,
	}
}

// NewNotFoundError creates a not found error with details.
func NewNotFoundError(message, location, hint string) error {
	return &DetailError{
		Type:     "not found",
		Message:  message,
		Location: location,
		Hint:     hint,
		Cause:    ErrNotFound,
	}
}

// NewConnectivityError creates a connectivity error with details.
func NewConnectivityError(message string, context map[string]string, hint string) error {
	return &DetailError{
		Type:    "connectivity failed",
		Message: message,
		Context: context,
		Hint:    hint,
		Cause:   ErrConnectivity,
	}
}

// Wrap wraps an error with a sentinel error type.
func Wrap(sentinel error, message string) error {
	return fmt.Errorf("%s: %w", message, sentinel)
}

// ExitError carries a process exit code through the command layer.
type ExitError struct {
	Err  error
	Code int

	// Printed is set when the command already rendered the error.
	Printed bool
}

// Error implements the error interface.
func (e *ExitError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("exit code %d", e.Code)
	}
	return e.Err.Error()
}

// Unwrap returns the wrapped error.
func (e *ExitError) Unwrap() error {
	return e.Err
}
