package output

import (
	"context"
	"fmt"
	"os"

	"github.com/charmbracelet/huh/spinner"
	"golang.org/x/term"
)

// IsTTY reports whether stdout is a terminal.
func IsTTY() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// SpinnerOption configures RunWithSpinner.
type SpinnerOption func(*spinner.Spinner)

// WithTitle sets the text shown next to the spinner.
func WithTitle(title string) SpinnerOption {
	return func(s *spinner.Spinner) { s.Title(title) }
}

// RunWithSpinner runs action, showing a spinner while it runs when stdout is
// a terminal. Cancelling ctx stops the spinner but not action.
func RunWithSpinner(ctx context.Context, action func() error, opts ...SpinnerOption) error {
	if !IsTTY() {
		return action()
	}

	result := make(chan error, 1)
	go func() { result <- action() }()

	var err error
	s := spinner.New().Title("Working...").Action(func() {
		select {
		case err = <-result:
		case <-ctx.Done():
			err = ctx.Err()
		}
	})
	for _, opt := range opts {
		opt(s)
	}
	if runErr := s.Run(); runErr != nil && err == nil {
		return fmt.Errorf("spinner: %w", runErr)
	}
	return err
}
