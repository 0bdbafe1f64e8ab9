package config

import (
	"os"
	"path/filepath"

	"github.com/mitchellh/go-homedir"
)

// Paths contains standard filesystem paths for hal.
type Paths struct {
	// ConfigFile is the path to the config file (~/.hal/config.yaml).
	ConfigFile string

	// HomeDir is the hal home directory (~/.hal).
	HomeDir string
}

// DefaultPaths returns the default paths for hal.
func DefaultPaths() (*Paths, error) {
	home, err := homedir.Dir()
	if err != nil {
		return nil, err
	}
	halHome := filepath.Join(home, ".hal")
	return &Paths{
		ConfigFile: filepath.Join(halHome, "config.yaml"),
		HomeDir:    halHome,
	}, nil
}

// GetConfigFile returns the config file path.
// If HAL_CONFIG is set, it takes precedence.
func GetConfigFile() (string, error) {
	if envPath := os.Getenv(EnvConfig); envPath != "" {
		return envPath, nil
	}
	paths, err := DefaultPaths()
	if err != nil {
		return "", err
	}
	return paths.ConfigFile, nil
}

// ExpandPath expands a leading ~ to the user's home directory.
func ExpandPath(path string) (string, error) {
	return homedir.Expand(path)
}

// ConfigFileExists checks if the config file exists.
func ConfigFileExists(path string) (bool, error) {
	expanded, err := ExpandPath(path)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(expanded)
	if os.IsNotExist(err) {
		return false, nil
	}
	return err == nil, err
}
