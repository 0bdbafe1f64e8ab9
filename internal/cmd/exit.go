// Package cmd provides the hal command tree.
package cmd

// Exit codes.
const (
	// ExitSuccess indicates the command completed successfully.
	ExitSuccess = 0

	// ExitGeneralError indicates an unspecified error occurred.
	ExitGeneralError = 1

	// ExitValidationError indicates the configuration has blocking problems.
	ExitValidationError = 2

	// ExitConnectivityError indicates the cluster could not be reached or a
	// cluster call failed.
	ExitConnectivityError = 3

	// ExitPermissionDenied indicates insufficient permissions.
	ExitPermissionDenied = 4

	// ExitNotFound indicates a deployment, provider, account or resource was
	// not found.
	ExitNotFound = 5

	// ExitInterrupted indicates the operation was cancelled.
	ExitInterrupted = 6

	// ExitNoOp indicates an edit that would not change the configuration.
	ExitNoOp = 7
)

// ExitCodeName returns the name of the exit code.
func ExitCodeName(code int) string {
	switch code {
	case ExitSuccess:
		return "Success"
	case ExitGeneralError:
		return "General Error"
	case ExitValidationError:
		return "Validation Error"
	case ExitConnectivityError:
		return "Connectivity Error"
	case ExitPermissionDenied:
		return "Permission Denied"
	case ExitNotFound:
		return "Not Found"
	case ExitInterrupted:
		return "Interrupted"
	case ExitNoOp:
		return "No Changes"
	default:
		return "Unknown"
	}
}
