package config

import (
	"os"

	"github.com/opmodel/hal/internal/output"
)

// ConfigSource indicates where a configuration value came from.
type ConfigSource string

const (
	// SourceFlag indicates value came from command-line flag.
	SourceFlag ConfigSource = "flag"
	// SourceEnv indicates value came from environment variable.
	SourceEnv ConfigSource = "env"
	// SourceConfig indicates value came from config file.
	SourceConfig ConfigSource = "config"
	// SourceDefault indicates value is the built-in default.
	SourceDefault ConfigSource = "default"
)

// ResolvedValue is a configuration value and where it came from.
type ResolvedValue struct {
	Key    string
	Value  string
	Source ConfigSource
	// Shadowed holds the lower-precedence values that were overridden.
	Shadowed map[ConfigSource]string
}

// resolve applies flag > env > config > default. Empty values are unset.
func resolve(key, flag, envVar, config, def string) ResolvedValue {
	candidates := []struct {
		source ConfigSource
		value  string
	}{
		{SourceFlag, flag},
		{SourceEnv, os.Getenv(envVar)},
		{SourceConfig, config},
		{SourceDefault, def},
	}
	rv := ResolvedValue{Key: key, Shadowed: make(map[ConfigSource]string)}
	for _, c := range candidates {
		if c.value == "" {
			continue
		}
		if rv.Source == "" {
			rv.Value, rv.Source = c.value, c.source
			continue
		}
		rv.Shadowed[c.source] = c.value
	}
	return rv
}

// ResolveConfigPath resolves the config file path:
// (1) --config flag, (2) HAL_CONFIG env, (3) ~/.hal/config.yaml.
func ResolveConfigPath(flag string) (ResolvedValue, error) {
	paths, err := DefaultPaths()
	if err != nil {
		return ResolvedValue{}, err
	}
	return resolve("config", flag, EnvConfig, "", paths.ConfigFile), nil
}

// ResolveOptions are the global flag values to resolve against a Config.
type ResolveOptions struct {
	Config *Config

	HalconfigFlag  string
	DeploymentFlag string
	KubeconfigFlag string
	ContextFlag    string
}

// ResolvedConfig holds every resolved global value.
type ResolvedConfig struct {
	Halconfig  ResolvedValue
	StagingDir ResolvedValue
	// Deployment is empty when nothing names one; the halconfig's current
	// deployment applies then.
	Deployment ResolvedValue
	Kubeconfig ResolvedValue
	Context    ResolvedValue
}

// Values lists the resolved values in a stable order.
func (r *ResolvedConfig) Values() []ResolvedValue {
	return []ResolvedValue{r.Halconfig, r.StagingDir, r.Deployment, r.Kubeconfig, r.Context}
}

// ResolveAll resolves every global value. Paths are expanded.
func ResolveAll(opts ResolveOptions) (*ResolvedConfig, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = DefaultConfig()
	}
	r := &ResolvedConfig{
		Halconfig:  resolve("halconfig", opts.HalconfigFlag, EnvHalconfig, cfg.Halconfig, DefaultHalconfig),
		StagingDir: resolve("stagingDir", "", EnvStagingDir, cfg.StagingDir, DefaultStagingDir),
		Deployment: resolve("deployment", opts.DeploymentFlag, EnvDeployment, cfg.CurrentDeployment, ""),
		Kubeconfig: resolve("kubeconfig", opts.KubeconfigFlag, EnvKubeconfig, cfg.Kubernetes.Kubeconfig, DefaultKubeconfig),
		Context:    resolve("context", opts.ContextFlag, EnvContext, cfg.Kubernetes.Context, ""),
	}
	for _, v := range []*ResolvedValue{&r.Halconfig, &r.StagingDir, &r.Kubeconfig} {
		expanded, err := ExpandPath(v.Value)
		if err != nil {
			return nil, err
		}
		v.Value = expanded
	}
	return r, nil
}

// LogResolvedValues logs each value's resolution at DEBUG level.
func LogResolvedValues(values []ResolvedValue) {
	for _, v := range values {
		output.Debug("config value resolved",
			"key", v.Key,
			"value", v.Value,
			"source", v.Source,
		)
		for source, shadowed := range v.Shadowed {
			output.Debug("  shadowed by higher precedence",
				"key", v.Key,
				"shadowed_source", source,
				"shadowed_value", shadowed,
			)
		}
	}
}
