package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
	sigsyaml "sigs.k8s.io/yaml"

	"github.com/opmodel/hal/internal/config"
	oerrors "github.com/opmodel/hal/internal/errors"
	"github.com/opmodel/hal/internal/halconfig"
	"github.com/opmodel/hal/internal/output"
	"github.com/opmodel/hal/internal/service"
)

// NewConfigCmd creates the config command group.
func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and edit the halconfig",
		Long: `Inspect and edit the halconfig.

Every edit is applied to a copy of the deployment, diffed against the stored
one and validated before it is written. Edits that change nothing exit with
code 7; edits that leave problems at or above --severity exit with code 2.
Neither writes anything.`,
	}

	cmd.PersistentFlags().String("severity", "ERROR",
		"Blocking problem severity: WARNING, ERROR or FATAL (validate also accepts NONE)")

	cmd.AddCommand(NewConfigInitCmd())
	cmd.AddCommand(NewConfigGetCmd())
	cmd.AddCommand(NewConfigValidateCmd())
	cmd.AddCommand(NewConfigDiffCmd())
	cmd.AddCommand(NewConfigGenerateCmd())
	cmd.AddCommand(NewConfigFeaturesCmd())
	cmd.AddCommand(NewConfigProviderCmd())
	cmd.AddCommand(NewConfigEditEnvironmentCmd())
	cmd.AddCommand(NewConfigVersionCmd())

	return cmd
}

// severityFlag parses the inherited --severity flag.
func severityFlag(cmd *cobra.Command) (halconfig.Severity, error) {
	raw, err := cmd.Flags().GetString("severity")
	if err != nil {
		return 0, err
	}
	sev, err := halconfig.ParseSeverity(raw)
	if err != nil {
		return 0, &oerrors.DetailError{
			Type:    "invalid flag",
			Message: err.Error(),
			Field:   "--severity",
			Cause:   oerrors.ErrValidation,
		}
	}
	return sev, nil
}

// NewConfigInitCmd creates the config init command.
func NewConfigInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write the default hal config",
		Long: `Write the default hal configuration to ~/.hal/config.yaml, or to the
path given by --config or HAL_CONFIG.

Examples:
  # Initialize configuration
  hal config init

  # Overwrite existing configuration
  hal config init --force`,
		Annotations: map[string]string{skipConfigAnnotation: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			path := GetConfigPath()
			if path == "" {
				resolved, err := config.ResolveConfigPath(configFlag)
				if err != nil {
					return err
				}
				path = resolved.Value
			}
			written, err := config.WriteDefault(path, force)
			if errors.Is(err, fs.ErrExist) {
				return &oerrors.DetailError{
					Type:     "validation failed",
					Message:  "configuration already exists",
					Location: written,
					Hint:     "Use --force to overwrite existing configuration.",
					Cause:    oerrors.ErrValidation,
				}
			}
			if err != nil {
				return oerrors.Wrap(oerrors.ErrPermission, err.Error())
			}
			output.Println(output.FormatCheckmark("Configuration written to " + written))
			output.Println("Validate with: hal config validate")
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite existing configuration")
	return cmd
}

// NewConfigGetCmd creates the config get command.
func NewConfigGetCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "get",
		Short: "Print a deployment configuration",
		Long: `Print the stored configuration of a deployment.

Output formats:
  yaml    the deployment as stored (default)
  json    the same document as JSON
  table   a one-line summary`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newServices(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer s.Close()

			d, err := s.configs.Deployment(GetDeployment())
			if err != nil {
				return err
			}

			f := output.ParseOutputFormat(format)
			if !f.Valid() || !strings.EqualFold(f.String(), format) {
				return &oerrors.DetailError{
					Type:    "invalid flag",
					Message: fmt.Sprintf("unknown output format %q", format),
					Field:   "--output",
					Hint:    "Valid formats: " + strings.Join(output.ValidFormats(), ", "),
					Cause:   oerrors.ErrValidation,
				}
			}
			switch f {
			case output.FormatTable:
				output.Print(deploymentTable(d).String() + "\n")
				return nil
			case output.FormatJSON:
				data, err := yaml.Marshal(d)
				if err != nil {
					return err
				}
				js, err := sigsyaml.YAMLToJSON(data)
				if err != nil {
					return err
				}
				output.Println(string(js))
				return nil
			default:
				data, err := yaml.Marshal(d)
				if err != nil {
					return err
				}
				output.Print(string(data))
				return nil
			}
		},
	}

	cmd.Flags().StringVarP(&format, "output", "o", "yaml", "Output format: yaml, json, table")
	return cmd
}

func deploymentTable(d *halconfig.DeploymentConfiguration) *output.Table {
	t := output.NewTable("DEPLOYMENT", "VERSION", "TYPE", "SIZE", "LOCATION", "PROVIDERS")
	var typ, size string
	if env := d.DeploymentEnvironment; env != nil {
		typ, size = string(env.Type), string(env.Size)
	}
	var enabled []string
	if d.Providers != nil {
		for _, p := range d.Providers.All() {
			if p.IsEnabled() {
				enabled = append(enabled, p.NodeName())
			}
		}
	}
	providers := strings.Join(enabled, ",")
	if providers == "" {
		providers = "-"
	}
	return t.Row(d.Name, d.Version, typ, size, d.DeploymentEnvironment.ResolvedLocation(), providers)
}

// NewConfigValidateCmd creates the config validate command.
func NewConfigValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate a deployment configuration",
		Long: `Run every validator over a deployment and print the problems found.

The command fails when a problem reaches --severity (default ERROR).
--severity NONE prints problems without failing.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			threshold, err := severityFlag(cmd)
			if err != nil {
				return err
			}
			s, err := newServices(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer s.Close()

			problems, err := s.configs.Validate(GetDeployment())
			if err != nil {
				return err
			}
			if problems.Empty() {
				output.Println(output.FormatCheckmark("No problems found"))
				return nil
			}
			output.Println(formatProblems(problems.Sorted()))
			if err := problems.Err(threshold); err != nil {
				return &oerrors.ExitError{Err: err, Code: ExitValidationError, Printed: true}
			}
			return nil
		},
	}
}

// NewConfigDiffCmd creates the config diff command.
func NewConfigDiffCmd() *cobra.Command {
	var (
		fromFlag string
		yamlFlag bool
	)

	cmd := &cobra.Command{
		Use:   "diff",
		Short: "Compare a deployment against another halconfig",
		Long: `Compare the stored deployment against the same-named deployment of
another halconfig, such as a backup or a copy under review.

By default the comparison is structural: added, removed and edited
configuration nodes. --yaml shows a YAML-aware line diff instead.

Examples:
  hal config diff --from ~/.hal/config.bak
  hal config diff --from ~/.hal/config.bak --yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fromPath, err := config.ExpandPath(fromFlag)
			if err != nil {
				return err
			}
			exists, err := config.ConfigFileExists(fromPath)
			if err != nil {
				return err
			}
			if !exists {
				return oerrors.NewNotFoundError("halconfig to compare against does not exist", fromPath, "Pass an existing halconfig with --from")
			}
			baseline, err := halconfig.NewFileStore(fromPath).Load()
			if err != nil {
				return err
			}

			s, err := newServices(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer s.Close()

			if yamlFlag {
				return yamlDiff(s, baseline, fromPath)
			}
			d, err := s.configs.Diff(GetDeployment(), baseline)
			if err != nil {
				return err
			}
			output.Print(renderNodeDiff(d))
			return nil
		},
	}

	cmd.Flags().StringVar(&fromFlag, "from", "", "Halconfig to compare against")
	cmd.Flags().BoolVar(&yamlFlag, "yaml", false, "Show a YAML line diff")
	_ = cmd.MarkFlagRequired("from")
	return cmd
}

func yamlDiff(s *services, baseline *halconfig.Halconfig, fromPath string) error {
	current, err := s.configs.Deployment(GetDeployment())
	if err != nil {
		return err
	}
	old, err := halconfig.GetDeployment(baseline, current.Name)
	if err != nil {
		return err
	}
	from, err := yaml.Marshal(old)
	if err != nil {
		return err
	}
	to, err := yaml.Marshal(current)
	if err != nil {
		return err
	}
	diff, err := output.YAMLDiff(fromPath, from, GetHalconfigPath(), to, output.IsTTY())
	if err != nil {
		return err
	}
	if diff == "" {
		output.Println("No changes detected.")
		return nil
	}
	output.Print(diff)
	return nil
}

// renderNodeDiff renders a config diff with one line per edited field.
func renderNodeDiff(d *halconfig.NodeDiff) string {
	var (
		added, removed []string
		modified       []output.ModifiedItem
	)
	for _, nd := range d.Flatten() {
		switch nd.ChangeType {
		case halconfig.ChangeAdded:
			added = append(added, nd.Location())
		case halconfig.ChangeRemoved:
			removed = append(removed, nd.Location())
		default:
			if len(nd.FieldDiffs) == 0 {
				continue
			}
			lines := make([]string, 0, len(nd.FieldDiffs))
			for _, fd := range nd.FieldDiffs {
				lines = append(lines, fmt.Sprintf("%s: %v -> %v", fd.Field, fd.Old, fd.New))
			}
			modified = append(modified, output.ModifiedItem{Name: nd.Location(), Diff: strings.Join(lines, "\n")})
		}
	}
	styles := output.NoColorStyles()
	if output.IsTTY() {
		styles = output.GetStyles()
	}
	return output.RenderDiff(added, removed, modified, styles) + "\n"
}

// NewConfigGenerateCmd creates the config generate command.
func NewConfigGenerateCmd() *cobra.Command {
	var (
		outFlag      string
		servicesFlag []string
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Write the profiles of a deployment to a directory",
		Long: `Generate every service profile of a deployment and write them under
--out, one directory per service, to review them without deploying.

Secret references are resolved, so the output may contain credentials.
Files are written with the mode of the profile.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := config.ExpandPath(outFlag)
			if err != nil {
				return err
			}
			s, err := newServices(cmd.Context(), true)
			if err != nil {
				return err
			}
			defer s.Close()

			var paths []string
			err = output.RunWithSpinner(cmd.Context(), func() error {
				var genErr error
				paths, genErr = s.deploy.Generate(cmd.Context(), GetDeployment(), servicesFlag, out)
				return genErr
			}, output.WithTitle("Generating profiles"))
			if err != nil {
				return err
			}

			files := make(map[string]string, len(paths))
			for _, p := range paths {
				rel, err := filepath.Rel(out, p)
				if err != nil {
					rel = p
				}
				files[rel] = ""
				if info, err := os.Stat(p); err == nil {
					files[rel] = fmt.Sprintf("%d bytes", info.Size())
				}
			}
			output.Print(output.RenderFileTree(out, files))
			output.Println(output.FormatCheckmark(fmt.Sprintf("Generated %d profiles", len(paths))))
			return nil
		},
	}

	cmd.Flags().StringVar(&outFlag, "out", "", "Directory to write profiles to")
	cmd.Flags().StringSliceVar(&servicesFlag, "services", nil, "Services to generate (default: all enabled)")
	_ = cmd.MarkFlagRequired("out")
	return cmd
}

// reportUpdate prints the outcome of a successful edit.
func reportUpdate(verb string, res *service.UpdateResult) {
	output.Println(output.FormatCheckmark(fmt.Sprintf("%s in deployment %s", verb, res.Deployment.Name)))
	output.Print(renderNodeDiff(res.Diff))
	if !res.Problems.Empty() {
		output.Println(formatProblems(res.Problems.Sorted()))
	}
	for _, f := range res.Staged {
		output.Debug("staged local file", "source", f.Source, "path", f.Path)
	}
}
