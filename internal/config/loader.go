package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/opmodel/hal/internal/output"
)

// Environment variable prefix for hal configuration.
const envPrefix = "HAL"

// Environment variables consulted by the Resolve functions.
const (
	EnvConfig     = "HAL_CONFIG"
	EnvHalconfig  = "HAL_HALCONFIG"
	EnvStagingDir = "HAL_STAGING_DIR"
	EnvDeployment = "HAL_DEPLOYMENT"
	EnvKubeconfig = "HAL_KUBECONFIG"
	EnvContext    = "HAL_CONTEXT"
)

// Loader reads the config file and overlays HAL_-prefixed environment
// variables named after the nested keys, e.g. HAL_DEPLOY_TIMEOUT.
type Loader struct {
	v *viper.Viper
}

// NewLoader creates a new configuration loader.
func NewLoader() *Loader {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	v.SetConfigType("yaml")

	d := DefaultConfig()
	v.SetDefault("halconfig", d.Halconfig)
	v.SetDefault("stagingDir", d.StagingDir)
	v.SetDefault("kubernetes.kubeconfig", d.Kubernetes.Kubeconfig)
	v.SetDefault("kubernetes.apiWarnings", d.Kubernetes.APIWarnings)
	v.SetDefault("registry.type", d.Registry.Type)
	v.SetDefault("registry.path", d.Registry.Path)
	v.SetDefault("registry.bucket", "")
	v.SetDefault("registry.prefix", "")
	v.SetDefault("registry.region", "")
	v.SetDefault("registry.endpoint", "")
	v.SetDefault("deploy.pollInterval", d.Deploy.PollInterval)
	v.SetDefault("deploy.timeout", d.Deploy.Timeout)

	return &Loader{v: v}
}

// Load reads configFile, or the default config file when empty. A missing
// file is not an error. The file is checked against the embedded schema
// before it is decoded.
func (l *Loader) Load(configFile string) (*Config, error) {
	if configFile == "" {
		var err error
		configFile, err = GetConfigFile()
		if err != nil {
			return nil, fmt.Errorf("getting config file path: %w", err)
		}
	}
	path, err := ExpandPath(configFile)
	if err != nil {
		return nil, fmt.Errorf("expanding config path: %w", err)
	}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		output.Debug("no config file, using defaults", "path", path)
	case err != nil:
		return nil, fmt.Errorf("reading config file: %w", err)
	default:
		if err := ValidateDocument(path, data); err != nil {
			return nil, err
		}
		if err := l.v.ReadConfig(bytes.NewReader(data)); err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := l.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	cfg.WithDefaults()
	if err := cfg.expandPaths(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) expandPaths() error {
	for _, p := range []*string{&c.Halconfig, &c.StagingDir, &c.Registry.Path} {
		expanded, err := ExpandPath(*p)
		if err != nil {
			return fmt.Errorf("expanding %s: %w", *p, err)
		}
		*p = expanded
	}
	for name, pc := range c.Secrets.Providers {
		if pc.Path == "" {
			continue
		}
		expanded, err := ExpandPath(pc.Path)
		if err != nil {
			return fmt.Errorf("expanding secrets provider %s path: %w", name, err)
		}
		pc.Path = expanded
		c.Secrets.Providers[name] = pc
	}
	return nil
}

// WriteDefault writes DefaultConfigTemplate to path. An existing file is
// only replaced when force is set.
func WriteDefault(path string, force bool) (string, error) {
	expanded, err := ExpandPath(path)
	if err != nil {
		return "", fmt.Errorf("expanding config path: %w", err)
	}
	exists, err := ConfigFileExists(expanded)
	if err != nil {
		return "", fmt.Errorf("checking config file: %w", err)
	}
	if exists && !force {
		return expanded, fs.ErrExist
	}
	if err := os.MkdirAll(filepath.Dir(expanded), 0o700); err != nil {
		return "", fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(expanded, []byte(DefaultConfigTemplate), 0o600); err != nil {
		return "", fmt.Errorf("writing config file: %w", err)
	}
	return expanded, nil
}
