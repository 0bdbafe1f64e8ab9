package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/opmodel/hal/internal/config"
	"github.com/opmodel/hal/internal/output"
)

var (
	// Global flags
	configFlag     string
	halconfigFlag  string
	deploymentFlag string
	kubeconfigFlag string
	contextFlag    string
	verboseFlag    bool
	timestampsFlag bool

	// Loaded during PersistentPreRunE
	halConfig      *config.Config
	configPath     string
	resolvedConfig *config.ResolvedConfig
)

// skipConfigAnnotation marks commands that run with a broken or missing
// tool config, such as config init.
const skipConfigAnnotation = "hal/skip-config"

// NewRootCmd creates the root command for hal.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "hal",
		Short: "Configure and deploy Spinnaker",
		Long: `hal edits a halconfig, the declarative description of one or more
Spinnaker deployments, and deploys it to Kubernetes.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initializeGlobals(cmd)
		},
	}

	rootCmd.PersistentFlags().StringVar(&configFlag, "config", "", "Path to hal config file (env: HAL_CONFIG)")
	rootCmd.PersistentFlags().StringVar(&halconfigFlag, "halconfig", "", "Path to the halconfig (env: HAL_HALCONFIG)")
	rootCmd.PersistentFlags().StringVarP(&deploymentFlag, "deployment", "d", "", "Deployment to operate on; defaults to the halconfig's current deployment (env: HAL_DEPLOYMENT)")
	rootCmd.PersistentFlags().StringVar(&kubeconfigFlag, "kubeconfig", "", "Path to kubeconfig file (env: HAL_KUBECONFIG)")
	rootCmd.PersistentFlags().StringVar(&contextFlag, "context", "", "Kubernetes context to use (env: HAL_CONTEXT)")
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().BoolVar(&timestampsFlag, "timestamps", true, "Show timestamps in log output")

	rootCmd.AddCommand(NewConfigCmd())
	rootCmd.AddCommand(NewDeployCmd())
	rootCmd.AddCommand(NewVersionCmd())

	return rootCmd
}

// initializeGlobals loads the tool config, resolves the global values and
// sets up logging.
func initializeGlobals(cmd *cobra.Command) error {
	// Verbose logging first, so config loading can log.
	output.SetupLogging(output.LogConfig{Verbose: verboseFlag})

	path, err := config.ResolveConfigPath(configFlag)
	if err != nil {
		return fmt.Errorf("resolving config path: %w", err)
	}
	configPath = path.Value

	loaded, err := config.NewLoader().Load(configPath)
	if err != nil {
		if !skipsConfig(cmd) {
			return err
		}
		output.Debug("config load error", "error", err)
		loaded = config.DefaultConfig()
	}
	halConfig = loaded

	resolved, err := config.ResolveAll(config.ResolveOptions{
		Config:         halConfig,
		HalconfigFlag:  halconfigFlag,
		DeploymentFlag: deploymentFlag,
		KubeconfigFlag: kubeconfigFlag,
		ContextFlag:    contextFlag,
	})
	if err != nil {
		return err
	}
	resolvedConfig = resolved

	// Timestamps: flag (if explicitly set) > config > default (nil = true)
	logCfg := output.LogConfig{Verbose: verboseFlag}
	if cmd.Flags().Changed("timestamps") {
		logCfg.Timestamps = output.BoolPtr(timestampsFlag)
	} else if halConfig.Log.Timestamps != nil {
		logCfg.Timestamps = halConfig.Log.Timestamps
	}
	output.SetupLogging(logCfg)

	if verboseFlag {
		config.LogResolvedValues(append([]config.ResolvedValue{path}, resolvedConfig.Values()...))
	}
	return nil
}

func skipsConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations[skipConfigAnnotation] == "true" {
			return true
		}
	}
	return false
}

// GetConfig returns the loaded tool configuration.
func GetConfig() *config.Config {
	if halConfig == nil {
		return config.DefaultConfig()
	}
	return halConfig
}

// GetResolvedConfig returns the resolved global values.
func GetResolvedConfig() *config.ResolvedConfig {
	return resolvedConfig
}

// GetDeployment returns the deployment named on the command line or in the
// config, or "" for the halconfig's current deployment.
func GetDeployment() string {
	if resolvedConfig != nil {
		return resolvedConfig.Deployment.Value
	}
	return deploymentFlag
}

// GetHalconfigPath returns the resolved halconfig path.
func GetHalconfigPath() string {
	if resolvedConfig != nil {
		return resolvedConfig.Halconfig.Value
	}
	return halconfigFlag
}

// GetConfigPath returns the resolved tool config path.
func GetConfigPath() string {
	return configPath
}

func configDir() string {
	if configPath == "" {
		return "."
	}
	return filepath.Dir(configPath)
}
