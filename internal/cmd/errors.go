package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	oerrors "github.com/opmodel/hal/internal/errors"
	"github.com/opmodel/hal/internal/halconfig"
	"github.com/opmodel/hal/internal/output"
)

// ExitCodeFromError determines the exit code for an error returned by a
// command.
func ExitCodeFromError(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var exitErr *oerrors.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}

	switch {
	case errors.Is(err, oerrors.ErrValidation),
		errors.Is(err, oerrors.ErrTypeMismatch),
		errors.Is(err, oerrors.ErrAmbiguousConfig):
		return ExitValidationError
	case errors.Is(err, oerrors.ErrConnectivity),
		errors.Is(err, oerrors.ErrSubstrateUnavailable):
		return ExitConnectivityError
	case errors.Is(err, oerrors.ErrPermission):
		return ExitPermissionDenied
	case errors.Is(err, oerrors.ErrNotFound),
		errors.Is(err, oerrors.ErrConfigNotFound):
		return ExitNotFound
	case errors.Is(err, oerrors.ErrInterrupted),
		errors.Is(err, context.Canceled):
		return ExitInterrupted
	case errors.Is(err, oerrors.ErrNoOp):
		return ExitNoOp
	default:
		return ExitGeneralError
	}
}

// PrintError writes err to w. Validation errors list their problems and
// detail errors print their own header.
func PrintError(w io.Writer, err error) {
	var ve *halconfig.ValidationError
	if errors.As(err, &ve) {
		fmt.Fprintf(w, "Error: %s\n", ve.Error())
		fmt.Fprintln(w, formatProblems(ve.Problems))
		return
	}
	var detail *oerrors.DetailError
	if errors.As(err, &detail) {
		fmt.Fprint(w, detail.Error())
		if detail.Cause != nil {
			output.Debug("error cause", "cause", detail.Cause)
		}
		return
	}
	fmt.Fprintf(w, "Error: %s\n", err)
}

func formatProblems(problems []halconfig.Problem) string {
	lines := make([]string, 0, len(problems))
	for _, p := range problems {
		lines = append(lines, output.FormatProblem(strings.ToLower(p.Severity.String()), p.Location, p.Message, p.Remediation))
	}
	return strings.Join(lines, "\n")
}
