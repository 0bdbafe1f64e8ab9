package errors

import "errors"

// Sentinel errors for known conditions.
var (
	// ErrValidation indicates the configuration has blocking problems.
	ErrValidation = errors.New("validation error")

	// ErrConfigNotFound indicates a required filter matched no configuration node.
	ErrConfigNotFound = errors.New("config not found")

	// ErrAmbiguousConfig indicates a filter matched more than one node where
	// exactly one was expected.
	ErrAmbiguousConfig = errors.New("ambiguous config")

	// ErrTypeMismatch indicates an operation across incompatible node types.
	ErrTypeMismatch = errors.New("type mismatch")

	// ErrSubstrateUnavailable indicates a cluster call failed or timed out.
	ErrSubstrateUnavailable = errors.New("substrate unavailable")

	// ErrInterrupted indicates an operation was cancelled while waiting.
	ErrInterrupted = errors.New("operation interrupted")

	// ErrNoOp indicates an update that would not change the configuration.
	ErrNoOp = errors.New("no changes")

	// ErrConnectivity indicates a network connectivity issue.
	ErrConnectivity = errors.New("connectivity error")

	// ErrPermission indicates insufficient permissions.
	ErrPermission = errors.New("permission denied")

	// ErrNotFound indicates a resource or file was not found.
	ErrNotFound = errors.New("not found")
)
