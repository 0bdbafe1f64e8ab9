package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"gopkg.in/yaml.v3"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, DefaultHalconfig, cfg.Halconfig)
	assert.Equal(t, DefaultStagingDir, cfg.StagingDir)
	assert.Equal(t, DefaultKubeconfig, cfg.Kubernetes.Kubeconfig)
	assert.Equal(t, "warn", cfg.Kubernetes.APIWarnings)
	assert.Equal(t, RegistryDir, cfg.Registry.Type)
	assert.Equal(t, DefaultRegistryPath, cfg.Registry.Path)
	assert.Equal(t, 5*time.Second, cfg.Deploy.PollInterval)
	assert.Equal(t, 10*time.Minute, cfg.Deploy.Timeout)
	assert.Nil(t, cfg.Log.Timestamps)
}

func TestWithDefaults(t *testing.T) {
	t.Run("fills unset fields", func(t *testing.T) {
		cfg := (&Config{Halconfig: "/tmp/hal"}).WithDefaults()

		assert.Equal(t, "/tmp/hal", cfg.Halconfig)
		assert.Equal(t, DefaultStagingDir, cfg.StagingDir)
		assert.Equal(t, DefaultTimeout, cfg.Deploy.Timeout)
	})

	t.Run("s3 registry gets no default path", func(t *testing.T) {
		cfg := (&Config{Registry: RegistryConfig{Type: RegistryS3, Bucket: "boms"}}).WithDefaults()

		assert.Equal(t, RegistryS3, cfg.Registry.Type)
		assert.Empty(t, cfg.Registry.Path)
	})

	t.Run("non-positive durations are replaced", func(t *testing.T) {
		cfg := (&Config{Deploy: DeployConfig{PollInterval: -time.Second}}).WithDefaults()

		assert.Equal(t, DefaultPollInterval, cfg.Deploy.PollInterval)
	})
}

func TestDefaultConfigTemplate(t *testing.T) {
	var doc map[string]any
	assert.NoError(t, yaml.Unmarshal([]byte(DefaultConfigTemplate), &doc))
	assert.NoError(t, ValidateDocument("template", []byte(DefaultConfigTemplate)))
}
