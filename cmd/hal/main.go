// Package main is the entry point for hal.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/opmodel/hal/internal/cmd"
	oerrors "github.com/opmodel/hal/internal/errors"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := cmd.NewRootCmd().ExecuteContext(ctx)
	stop()
	if err == nil {
		return
	}

	// Only print if the command layer hasn't already printed it
	var exitErr *oerrors.ExitError
	if !errors.As(err, &exitErr) || !exitErr.Printed {
		cmd.PrintError(os.Stderr, err)
	}
	os.Exit(cmd.ExitCodeFromError(err))
}
