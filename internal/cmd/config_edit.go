package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	oerrors "github.com/opmodel/hal/internal/errors"
	"github.com/opmodel/hal/internal/halconfig"
	"github.com/opmodel/hal/internal/output"
	"github.com/opmodel/hal/internal/service"
)

// update runs edit against the config service with the --severity
// threshold and reports the result.
func update(cmd *cobra.Command, verb string, edit func(*service.ConfigService, service.UpdateOptions) (*service.UpdateResult, error)) error {
	threshold, err := severityFlag(cmd)
	if err != nil {
		return err
	}
	s, err := newServices(cmd.Context(), false)
	if err != nil {
		return err
	}
	defer s.Close()

	res, err := edit(s.configs, service.UpdateOptions{Severity: threshold})
	if err != nil {
		return err
	}
	reportUpdate(verb, res)
	return nil
}

func invalidFlags(message, hint string) error {
	return &oerrors.DetailError{
		Type:    "invalid flags",
		Message: message,
		Hint:    hint,
		Cause:   oerrors.ErrValidation,
	}
}

// --- features ---

// featureFlags maps CLI flags to feature names.
var featureFlags = []struct {
	flag, feature, usage string
}{
	{"auth", "auth", "Require authentication"},
	{"fiat", "fiat", "Enable fine-grained authorization"},
	{"chaos", "chaos", "Enable chaos engineering"},
	{"entity-tags", "entityTags", "Enable entity tags"},
	{"jobs", "jobs", "Enable run job stages"},
	{"pipeline-templates", "pipelineTemplates", "Enable pipeline templates"},
	{"artifacts", "artifacts", "Enable artifact support"},
	{"mine-canary", "mineCanary", "Enable canary analysis"},
}

// NewConfigFeaturesCmd creates the config features command group.
func NewConfigFeaturesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "features",
		Short: "Edit feature flags",
	}

	edit := &cobra.Command{
		Use:   "edit",
		Short: "Set feature flags",
		Long: `Set one or more feature flags. Only the flags given are changed.

Examples:
  hal config features edit --chaos
  hal config features edit --jobs --entity-tags=false`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := map[string]bool{}
			for _, f := range featureFlags {
				if !cmd.Flags().Changed(f.flag) {
					continue
				}
				v, err := cmd.Flags().GetBool(f.flag)
				if err != nil {
					return err
				}
				flags[f.feature] = v
			}
			if len(flags) == 0 {
				names := make([]string, 0, len(featureFlags))
				for _, f := range featureFlags {
					names = append(names, "--"+f.flag)
				}
				return invalidFlags("no feature flags given", "Set at least one of: "+strings.Join(names, ", "))
			}
			return update(cmd, "Edited features", func(c *service.ConfigService, opts service.UpdateOptions) (*service.UpdateResult, error) {
				return c.EditFeatures(cmd.Context(), GetDeployment(), flags, opts)
			})
		},
	}
	for _, f := range featureFlags {
		edit.Flags().Bool(f.flag, false, f.usage)
	}

	cmd.AddCommand(edit)
	return cmd
}

// --- providers ---

// accountBuilder registers the account flags of one provider on cmd and
// returns a constructor reading them.
type accountBuilder func(cmd *cobra.Command) func(name string) (halconfig.Account, error)

var providerKinds = []struct {
	name    string
	short   string
	account accountBuilder
}{
	{"kubernetes", "Kubernetes clusters", kubernetesAccountFlags},
	{"dockerRegistry", "Docker registries", dockerRegistryAccountFlags},
	{"aws", "Amazon Web Services", awsAccountFlags},
	{"google", "Google Cloud Platform", googleAccountFlags},
}

// NewConfigProviderCmd creates the config provider command group.
func NewConfigProviderCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "provider",
		Short: "Edit cloud providers and their accounts",
	}
	for _, kind := range providerKinds {
		p := &cobra.Command{Use: kind.name, Short: "Edit the " + kind.short + " provider"}
		p.AddCommand(newProviderEnableCmd(kind.name, true))
		p.AddCommand(newProviderEnableCmd(kind.name, false))

		account := &cobra.Command{Use: "account", Short: "Edit " + kind.name + " accounts"}
		account.AddCommand(newAccountAddCmd(kind.name, kind.account))
		account.AddCommand(newAccountDeleteCmd(kind.name))
		p.AddCommand(account)

		cmd.AddCommand(p)
	}
	return cmd
}

func newProviderEnableCmd(provider string, enabled bool) *cobra.Command {
	use, verb := "enable", "Enabled"
	if !enabled {
		use, verb = "disable", "Disabled"
	}
	return &cobra.Command{
		Use:   use,
		Short: fmt.Sprintf("%s the %s provider", strings.ToUpper(use[:1])+use[1:], provider),
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return update(cmd, verb+" provider "+provider, func(c *service.ConfigService, opts service.UpdateOptions) (*service.UpdateResult, error) {
				return c.SetProviderEnabled(cmd.Context(), GetDeployment(), provider, enabled, opts)
			})
		},
	}
}

func newAccountAddCmd(provider string, build accountBuilder) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add NAME",
		Short: "Add a " + provider + " account",
		Args:  cobra.ExactArgs(1),
	}
	newAccount := build(cmd)
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		account, err := newAccount(args[0])
		if err != nil {
			return err
		}
		return update(cmd, "Added account "+args[0], func(c *service.ConfigService, opts service.UpdateOptions) (*service.UpdateResult, error) {
			return c.AddAccount(cmd.Context(), GetDeployment(), account, opts)
		})
	}
	return cmd
}

func newAccountDeleteCmd(provider string) *cobra.Command {
	return &cobra.Command{
		Use:   "delete NAME",
		Short: "Delete a " + provider + " account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return update(cmd, "Deleted account "+args[0], func(c *service.ConfigService, opts service.UpdateOptions) (*service.UpdateResult, error) {
				return c.DeleteAccount(cmd.Context(), GetDeployment(), provider, args[0], opts)
			})
		},
	}
}

func kubernetesAccountFlags(cmd *cobra.Command) func(string) (halconfig.Account, error) {
	var (
		kubeContext    string
		kubeconfigFile string
		namespaces     []string
		omitNamespaces []string
		registries     []string
		serviceAccount bool
	)
	cmd.Flags().StringVar(&kubeContext, "kube-context", "", "Kubeconfig context of the account")
	cmd.Flags().StringVar(&kubeconfigFile, "kubeconfig-file", "", "Kubeconfig of the account; may be a secret:// reference")
	cmd.Flags().StringSliceVar(&namespaces, "namespaces", nil, "Namespaces the account may manage")
	cmd.Flags().StringSliceVar(&omitNamespaces, "omit-namespaces", nil, "Namespaces the account ignores")
	cmd.Flags().StringSliceVar(&registries, "docker-registries", nil, "Docker registry accounts the account pulls from")
	cmd.Flags().BoolVar(&serviceAccount, "service-account", false, "Authenticate with the pod's service account")

	return func(name string) (halconfig.Account, error) {
		a := halconfig.NewKubernetesAccount(name)
		a.Context = kubeContext
		a.KubeconfigFile = kubeconfigFile
		a.Namespaces = namespaces
		a.OmitNamespaces = omitNamespaces
		a.ServiceAccount = serviceAccount
		for _, r := range registries {
			a.DockerRegistries = append(a.DockerRegistries, halconfig.DockerRegistryReference{AccountName: r})
		}
		return a, nil
	}
}

func dockerRegistryAccountFlags(cmd *cobra.Command) func(string) (halconfig.Account, error) {
	var (
		address        string
		username       string
		password       string
		passwordFile   string
		passwordPrompt bool
		email          string
		repositories   []string
	)
	cmd.Flags().StringVar(&address, "address", "", "Registry address, e.g. index.docker.io")
	cmd.Flags().StringVar(&username, "username", "", "Registry username")
	cmd.Flags().StringVar(&password, "password", "", "Registry password; may be a secret:// reference")
	cmd.Flags().BoolVar(&passwordPrompt, "password-prompt", false, "Read the password from the terminal")
	cmd.Flags().StringVar(&passwordFile, "password-file", "", "File holding the registry password")
	cmd.Flags().StringVar(&email, "email", "", "Registry email")
	cmd.Flags().StringSliceVar(&repositories, "repositories", nil, "Repositories to index")
	_ = cmd.MarkFlagRequired("address")
	cmd.MarkFlagsMutuallyExclusive("password", "password-prompt", "password-file")

	return func(name string) (halconfig.Account, error) {
		if passwordPrompt {
			p, err := readPassword()
			if err != nil {
				return nil, err
			}
			password = p
		}
		a := halconfig.NewDockerRegistryAccount(name)
		a.Address = address
		a.Username = username
		a.Password = password
		a.PasswordFile = passwordFile
		a.Email = email
		a.Repositories = repositories
		return a, nil
	}
}

func readPassword() (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", invalidFlags("--password-prompt needs a terminal", "Use --password with a secret:// reference or --password-file")
	}
	output.Print("Password: ")
	b, err := term.ReadPassword(fd)
	output.Println("")
	if err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}
	return string(b), nil
}

func awsAccountFlags(cmd *cobra.Command) func(string) (halconfig.Account, error) {
	var (
		accountID  string
		regions    []string
		assumeRole string
	)
	cmd.Flags().StringVar(&accountID, "account-id", "", "AWS account ID")
	cmd.Flags().StringSliceVar(&regions, "regions", nil, "Regions to manage")
	cmd.Flags().StringVar(&assumeRole, "assume-role", "", "Role to assume, e.g. role/spinnakerManaged")
	_ = cmd.MarkFlagRequired("account-id")

	return func(name string) (halconfig.Account, error) {
		a := halconfig.NewAWSAccount(name)
		a.AccountID = accountID
		a.Regions = regions
		a.AssumeRole = assumeRole
		return a, nil
	}
}

func googleAccountFlags(cmd *cobra.Command) func(string) (halconfig.Account, error) {
	var project, jsonPath string
	cmd.Flags().StringVar(&project, "project", "", "GCP project")
	cmd.Flags().StringVar(&jsonPath, "json-path", "", "Service account key file; may be a secret:// reference")
	_ = cmd.MarkFlagRequired("project")

	return func(name string) (halconfig.Account, error) {
		a := halconfig.NewGoogleAccount(name)
		a.Project = project
		a.JSONPath = jsonPath
		return a, nil
	}
}

// --- deployment environment ---

// NewConfigEditEnvironmentCmd creates the config edit-environment command.
func NewConfigEditEnvironmentCmd() *cobra.Command {
	var (
		sizeFlag           string
		typeFlag           string
		locationFlag       string
		accountFlag        string
		updateVersionsFlag bool
	)

	cmd := &cobra.Command{
		Use:   "edit-environment",
		Short: "Edit where and how services are deployed",
		Long: `Edit the deployment environment. Only the flags given are changed.

Examples:
  hal config edit-environment --size MEDIUM
  hal config edit-environment --type Distributed --account-name k8s-1 --location spinnaker`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var edit service.EnvironmentEdit
			flags := cmd.Flags()
			if flags.Changed("size") {
				size, err := parseSize(sizeFlag)
				if err != nil {
					return err
				}
				edit.Size = &size
			}
			if flags.Changed("type") {
				typ, err := parseDeploymentType(typeFlag)
				if err != nil {
					return err
				}
				edit.Type = &typ
			}
			if flags.Changed("location") {
				edit.Location = &locationFlag
			}
			if flags.Changed("account-name") {
				edit.AccountName = &accountFlag
			}
			if flags.Changed("update-versions") {
				edit.UpdateVersions = &updateVersionsFlag
			}
			return update(cmd, "Edited deployment environment", func(c *service.ConfigService, opts service.UpdateOptions) (*service.UpdateResult, error) {
				return c.EditDeploymentEnvironment(cmd.Context(), GetDeployment(), edit, opts)
			})
		},
	}

	cmd.Flags().StringVar(&sizeFlag, "size", "", "Size class: SMALL, MEDIUM or LARGE")
	cmd.Flags().StringVar(&typeFlag, "type", "", "Deployment type: Distributed, LocalDebian or BakeDebian")
	cmd.Flags().StringVar(&locationFlag, "location", "", "Namespace services are deployed to")
	cmd.Flags().StringVar(&accountFlag, "account-name", "", "Kubernetes account services are deployed with")
	cmd.Flags().BoolVar(&updateVersionsFlag, "update-versions", false, "Pick up new service versions on every deploy")
	return cmd
}

func parseSize(s string) (halconfig.Size, error) {
	for _, size := range []halconfig.Size{halconfig.SizeSmall, halconfig.SizeMedium, halconfig.SizeLarge} {
		if strings.EqualFold(s, string(size)) {
			return size, nil
		}
	}
	return "", invalidFlags(fmt.Sprintf("unknown size %q", s), "Valid sizes: SMALL, MEDIUM, LARGE")
}

func parseDeploymentType(s string) (halconfig.DeploymentType, error) {
	for _, t := range []halconfig.DeploymentType{
		halconfig.DeploymentTypeDistributed,
		halconfig.DeploymentTypeLocalDebian,
		halconfig.DeploymentTypeBakeDebian,
	} {
		if strings.EqualFold(s, string(t)) {
			return t, nil
		}
	}
	return "", invalidFlags(fmt.Sprintf("unknown deployment type %q", s), "Valid types: Distributed, LocalDebian, BakeDebian")
}

// --- version ---

// NewConfigVersionCmd creates the config version command group.
func NewConfigVersionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Edit the release version a deployment installs",
	}

	var versionFlag string
	edit := &cobra.Command{
		Use:   "edit",
		Short: "Set the release version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return update(cmd, "Set version "+versionFlag, func(c *service.ConfigService, opts service.UpdateOptions) (*service.UpdateResult, error) {
				return c.SetVersion(cmd.Context(), GetDeployment(), versionFlag, opts)
			})
		},
	}
	edit.Flags().StringVar(&versionFlag, "version", "", "Release version, e.g. 1.30.0")
	_ = edit.MarkFlagRequired("version")

	cmd.AddCommand(edit)
	return cmd
}
