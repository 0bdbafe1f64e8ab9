package cmd

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/opmodel/hal/internal/cluster"
	oerrors "github.com/opmodel/hal/internal/errors"
	"github.com/opmodel/hal/internal/inventory"
	"github.com/opmodel/hal/internal/orchestrator"
	"github.com/opmodel/hal/internal/output"
)

// NewDeployCmd creates the deploy command group.
func NewDeployCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "deploy",
		Short: "Deploy, roll back and remove services",
		Long: `Deploy a deployment configuration to its Kubernetes cluster.

Services are deployed as versioned ReplicaSets named <service>-v<NNN>.
A version only receives traffic once every instance is healthy.`,
	}

	cmd.PersistentFlags().String("metrics-file", "",
		"Write Prometheus metrics of the run to this file (textfile collector format)")

	cmd.AddCommand(NewDeployApplyCmd())
	cmd.AddCommand(NewDeployRollbackCmd())
	cmd.AddCommand(NewDeployDeleteCmd())
	cmd.AddCommand(NewDeployHistoryCmd())
	cmd.AddCommand(NewDeployConnectCmd())

	return cmd
}

// withDeploy runs fn with the deploy services and writes metrics afterwards.
func withDeploy(cmd *cobra.Command, fn func(s *services) error) error {
	s, err := newServices(cmd.Context(), true)
	if err != nil {
		return err
	}
	defer s.Close()

	runErr := fn(s)
	metricsFile, _ := cmd.Flags().GetString("metrics-file")
	if err := s.WriteMetrics(metricsFile); err != nil {
		if runErr == nil {
			return err
		}
		output.Warn("writing metrics", "error", err)
	}
	return runErr
}

// NewDeployApplyCmd creates the deploy apply command.
func NewDeployApplyCmd() *cobra.Command {
	var servicesFlag []string

	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Deploy the services of a deployment",
		Long: `Validate the deployment, generate every profile and deploy the services.

Bootstrap services are deployed first, one priority tier at a time. Each
service gets a new version which replaces the previous one once healthy.
Services that cannot be safely replaced while running are left alone when
they already exist.

Examples:
  # Deploy every enabled service of the current deployment
  hal deploy apply

  # Deploy two services of the staging deployment
  hal deploy apply -d staging --services gate,deck`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDeploy(cmd, func(s *services) error {
				res, err := s.deploy.Apply(cmd.Context(), GetDeployment(), servicesFlag)
				if err != nil {
					return err
				}
				output.Print(resultTable(res).String() + "\n")
				output.Println(output.FormatCheckmark("Deployed " + res.Deployment))
				return nil
			})
		},
	}

	cmd.Flags().StringSliceVar(&servicesFlag, "services", nil, "Services to deploy (default: all enabled)")
	return cmd
}

func resultTable(res *orchestrator.Result) *output.Table {
	names := make([]string, 0, len(res.Services))
	for name := range res.Services {
		names = append(names, name)
	}
	sort.Strings(names)

	t := output.NewTable("SERVICE", "VERSION", "STATUS", "CONFIG")
	for _, name := range names {
		r := res.Services[name]
		status := output.StatusRunning
		version := cluster.VersionName(r.Service, r.Version)
		if r.Skipped {
			status, version = "skipped", "-"
		}
		sources := make([]string, 0, len(r.ConfigSources))
		for _, cs := range r.ConfigSources {
			sources = append(sources, cs.ID)
		}
		t.Row(name, version, output.StatusStyle(status).Render(status), strings.Join(sources, ","))
	}
	return t
}

// NewDeployRollbackCmd creates the deploy rollback command.
func NewDeployRollbackCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rollback SERVICE VERSION",
		Short: "Route a service back to an earlier version",
		Long: `Route a service back to an earlier version that still exists in the
cluster, and remove the versions after it.

VERSION is the number of the version, as shown by hal deploy history.

Examples:
  hal deploy rollback gate 3`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			version, err := strconv.Atoi(strings.TrimPrefix(strings.ToLower(args[1]), "v"))
			if err != nil || version <= 0 {
				return &oerrors.DetailError{
					Type:    "invalid argument",
					Message: fmt.Sprintf("version %q is not a positive number", args[1]),
					Hint:    "List versions with: hal deploy history",
					Cause:   oerrors.ErrValidation,
				}
			}
			return withDeploy(cmd, func(s *services) error {
				got, err := s.deploy.Rollback(cmd.Context(), GetDeployment(), args[0], version)
				if err != nil {
					return err
				}
				output.Println(output.FormatCheckmark(fmt.Sprintf("%s routed to %s", args[0], cluster.VersionName(args[0], got))))
				return nil
			})
		},
	}
}

// NewDeployDeleteCmd creates the deploy delete command.
func NewDeployDeleteCmd() *cobra.Command {
	var servicesFlag []string

	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Remove the services of a deployment from the cluster",
		Long: `Remove every version, service and staged configuration of the given
services, or of every service when --services is not given. The halconfig
is not changed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDeploy(cmd, func(s *services) error {
				if err := s.deploy.Delete(cmd.Context(), GetDeployment(), servicesFlag); err != nil {
					return err
				}
				output.Println(output.FormatCheckmark("Deleted services"))
				return nil
			})
		},
	}

	cmd.Flags().StringSliceVar(&servicesFlag, "services", nil, "Services to delete (default: all)")
	return cmd
}

// NewDeployHistoryCmd creates the deploy history command.
func NewDeployHistoryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "history",
		Short: "List promoted versions, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDeploy(cmd, func(s *services) error {
				var entries []inventory.Entry
				err := output.RunWithSpinner(cmd.Context(), func() error {
					var histErr error
					entries, histErr = s.deploy.History(cmd.Context(), GetDeployment())
					return histErr
				}, output.WithTitle("Reading history"))
				if err != nil {
					return err
				}
				if len(entries) == 0 {
					output.Println("No history recorded.")
					return nil
				}
				output.Print(historyTable(entries).String() + "\n")
				return nil
			})
		},
	}
}

func historyTable(entries []inventory.Entry) *output.Table {
	t := output.NewTable("SERVICE", "VERSION", "DIGEST", "CONFIG", "TIMESTAMP")
	for _, e := range entries {
		digest := e.Digest
		if len(digest) > 12 {
			digest = digest[:12]
		}
		t.Row(e.Service, cluster.VersionName(e.Service, e.Version), digest, strconv.Itoa(len(e.ConfigSources)), e.Timestamp)
	}
	return t
}

// NewDeployConnectCmd creates the deploy connect command.
func NewDeployConnectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "connect",
		Short: "Open a local proxy to the cluster of a deployment",
		Long: `Open a local proxy to the Kubernetes API of a deployment's cluster and
keep it open until interrupted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDeploy(cmd, func(s *services) error {
				proxy, err := s.deploy.Connect(cmd.Context(), GetDeployment())
				if err != nil {
					return err
				}
				output.Println(output.FormatCheckmark("Proxy listening on " + proxy.URL()))
				output.Println("Press Ctrl-C to stop.")
				<-cmd.Context().Done()
				return nil
			})
		},
	}
}
