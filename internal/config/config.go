// Package config loads the hal tool configuration (~/.hal/config.yaml).
// It is separate from the halconfig, which describes deployments.
package config

import (
	"time"

	"github.com/opmodel/hal/internal/secrets"
)

// KubernetesConfig contains Kubernetes-specific settings.
type KubernetesConfig struct {
	// Kubeconfig is the path to the kubeconfig file.
	// Env: HAL_KUBECONFIG, Default: ~/.kube/config
	Kubeconfig string `mapstructure:"kubeconfig" yaml:"kubeconfig,omitempty"`

	// Context is the Kubernetes context to use.
	// Env: HAL_CONTEXT, Default: current-context from kubeconfig
	Context string `mapstructure:"context" yaml:"context,omitempty"`

	// APIWarnings controls how Kubernetes API warnings are shown:
	// "warn" (default), "debug" or "suppress".
	APIWarnings string `mapstructure:"apiWarnings" yaml:"apiWarnings,omitempty"`
}

// Registry types.
const (
	RegistryDir = "dir"
	RegistryS3  = "s3"
)

// RegistryConfig locates bills of materials and profile templates.
type RegistryConfig struct {
	// Type is "dir" or "s3".
	Type string `mapstructure:"type" yaml:"type,omitempty"`

	// Path is the root of a dir registry.
	Path string `mapstructure:"path" yaml:"path,omitempty"`

	Bucket   string `mapstructure:"bucket" yaml:"bucket,omitempty"`
	Prefix   string `mapstructure:"prefix" yaml:"prefix,omitempty"`
	Region   string `mapstructure:"region" yaml:"region,omitempty"`
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint,omitempty"`
}

// DeployConfig tunes the orchestrator.
type DeployConfig struct {
	PollInterval time.Duration `mapstructure:"pollInterval" yaml:"pollInterval,omitempty"`
	Timeout      time.Duration `mapstructure:"timeout" yaml:"timeout,omitempty"`
}

// LogConfig contains logging-related settings.
type LogConfig struct {
	// Timestamps controls whether timestamps are shown in log output.
	// Default: true. Override with --timestamps flag.
	Timestamps *bool `mapstructure:"timestamps" yaml:"timestamps,omitempty"`
}

// Config is the hal tool configuration.
type Config struct {
	// Halconfig is the path of the deployment configuration file.
	// Env: HAL_HALCONFIG, Default: ~/.hal/config
	Halconfig string `mapstructure:"halconfig" yaml:"halconfig,omitempty"`

	// StagingDir receives staged local files and decrypted secret files.
	StagingDir string `mapstructure:"stagingDir" yaml:"stagingDir,omitempty"`

	// CurrentDeployment overrides the halconfig's current deployment.
	// Env: HAL_DEPLOYMENT
	CurrentDeployment string `mapstructure:"currentDeployment" yaml:"currentDeployment,omitempty"`

	Kubernetes KubernetesConfig `mapstructure:"kubernetes" yaml:"kubernetes,omitempty"`
	Registry   RegistryConfig   `mapstructure:"registry" yaml:"registry,omitempty"`
	Secrets    secrets.Config   `mapstructure:"secrets" yaml:"secrets,omitempty"`
	Deploy     DeployConfig     `mapstructure:"deploy" yaml:"deploy,omitempty"`
	Log        LogConfig        `mapstructure:"log" yaml:"log,omitempty"`
}

// Defaults.
const (
	DefaultKubeconfig   = "~/.kube/config"
	DefaultHalconfig    = "~/.hal/config"
	DefaultStagingDir   = "~/.hal/staging"
	DefaultRegistryPath = "~/.hal/registry"
	DefaultAPIWarnings  = "warn"
	DefaultPollInterval = 5 * time.Second
	DefaultTimeout      = 10 * time.Minute
)

// DefaultConfig returns a Config with all default values populated.
func DefaultConfig() *Config {
	return &Config{
		Halconfig:  DefaultHalconfig,
		StagingDir: DefaultStagingDir,
		Kubernetes: KubernetesConfig{
			Kubeconfig:  DefaultKubeconfig,
			APIWarnings: DefaultAPIWarnings,
		},
		Registry: RegistryConfig{Type: RegistryDir, Path: DefaultRegistryPath},
		Deploy:   DeployConfig{PollInterval: DefaultPollInterval, Timeout: DefaultTimeout},
	}
}

// WithDefaults fills unset fields from DefaultConfig.
func (c *Config) WithDefaults() *Config {
	d := DefaultConfig()
	if c.Halconfig == "" {
		c.Halconfig = d.Halconfig
	}
	if c.StagingDir == "" {
		c.StagingDir = d.StagingDir
	}
	if c.Kubernetes.Kubeconfig == "" {
		c.Kubernetes.Kubeconfig = d.Kubernetes.Kubeconfig
	}
	if c.Kubernetes.APIWarnings == "" {
		c.Kubernetes.APIWarnings = d.Kubernetes.APIWarnings
	}
	if c.Registry.Type == "" {
		c.Registry.Type = d.Registry.Type
	}
	if c.Registry.Type == RegistryDir && c.Registry.Path == "" {
		c.Registry.Path = d.Registry.Path
	}
	if c.Deploy.PollInterval <= 0 {
		c.Deploy.PollInterval = d.Deploy.PollInterval
	}
	if c.Deploy.Timeout <= 0 {
		c.Deploy.Timeout = d.Deploy.Timeout
	}
	return c
}

// DefaultConfigTemplate is written by `hal config init`.
const DefaultConfigTemplate = `# hal configuration

# Deployment configuration file.
halconfig: ~/.hal/config

# Staged local files and decrypted secret files.
stagingDir: ~/.hal/staging

kubernetes:
  kubeconfig: ~/.kube/config
  # context: my-cluster
  apiWarnings: warn

# Bills of materials and profile templates.
registry:
  type: dir
  path: ~/.hal/registry
  # type: s3
  # bucket: halconfig
  # region: us-west-2

# Secret providers for secret:// references.
# secrets:
#   defaultProvider: local
#   providers:
#     local:
#       type: file
#       path: ~/.hal/secrets.yaml
#     vault:
#       type: vault
#       address: https://vault.example.com
#       mount: secret
#       kvVersion: 2

deploy:
  pollInterval: 5s
  timeout: 10m

log:
  timestamps: true
`
