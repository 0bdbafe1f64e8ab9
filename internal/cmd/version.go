package cmd

import (
	"github.com/spf13/cobra"

	"github.com/opmodel/hal/internal/output"
	"github.com/opmodel/hal/internal/version"
)

// NewVersionCmd creates the version command.
func NewVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long: `Show hal version information: version, commit, build date, and the
Go and Kubernetes client versions hal was built with.`,
		Annotations: map[string]string{skipConfigAnnotation: "true"},
		Args:        cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			output.Println(version.GetInfo().String())
			return nil
		},
	}
}
