package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	oerrors "github.com/opmodel/hal/internal/errors"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

// --- Load ---

func TestLoaderLoad(t *testing.T) {
	t.Run("loads config from file", func(t *testing.T) {
		path := writeConfig(t, `
halconfig: /srv/hal/config
stagingDir: /srv/hal/staging
currentDeployment: prod
kubernetes:
  kubeconfig: /path/to/kubeconfig
  context: production
registry:
  type: s3
  bucket: boms
  region: us-west-2
deploy:
  pollInterval: 2s
  timeout: 3m
log:
  timestamps: false
`)
		cfg, err := NewLoader().Load(path)
		require.NoError(t, err)

		assert.Equal(t, "/srv/hal/config", cfg.Halconfig)
		assert.Equal(t, "/srv/hal/staging", cfg.StagingDir)
		assert.Equal(t, "prod", cfg.CurrentDeployment)
		assert.Equal(t, "/path/to/kubeconfig", cfg.Kubernetes.Kubeconfig)
		assert.Equal(t, "production", cfg.Kubernetes.Context)
		assert.Equal(t, RegistryS3, cfg.Registry.Type)
		assert.Equal(t, "boms", cfg.Registry.Bucket)
		assert.Equal(t, 2*time.Second, cfg.Deploy.PollInterval)
		assert.Equal(t, 3*time.Minute, cfg.Deploy.Timeout)
		require.NotNil(t, cfg.Log.Timestamps)
		assert.False(t, *cfg.Log.Timestamps)
	})

	t.Run("missing file uses defaults", func(t *testing.T) {
		cfg, err := NewLoader().Load(filepath.Join(t.TempDir(), "absent.yaml"))
		require.NoError(t, err)

		assert.Equal(t, RegistryDir, cfg.Registry.Type)
		assert.Equal(t, DefaultTimeout, cfg.Deploy.Timeout)
		assert.NotContains(t, cfg.Halconfig, "~", "paths are expanded")
	})

	t.Run("env overrides file", func(t *testing.T) {
		t.Setenv("HAL_DEPLOY_TIMEOUT", "90s")
		path := writeConfig(t, "deploy:\n  timeout: 3m\n")

		cfg, err := NewLoader().Load(path)
		require.NoError(t, err)
		assert.Equal(t, 90*time.Second, cfg.Deploy.Timeout)
	})

	t.Run("secret provider paths are expanded", func(t *testing.T) {
		path := writeConfig(t, `
secrets:
  defaultProvider: local
  providers:
    local:
      type: file
      path: ~/secrets.yaml
`)
		cfg, err := NewLoader().Load(path)
		require.NoError(t, err)

		pc, ok := cfg.Secrets.Providers["local"]
		require.True(t, ok)
		assert.Equal(t, "file", pc.Type)
		assert.NotContains(t, pc.Path, "~")
	})
}

// --- Schema ---

func TestLoaderLoad_SchemaErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		field   string
	}{
		{"unknown top-level key", "registryURL: ghcr.io\n", ""},
		{"bad duration", "deploy:\n  timeout: forever\n", "deploy.timeout"},
		{"bad registry type", "registry:\n  type: oci\n", "registry.type"},
		{"s3 without bucket", "registry:\n  type: s3\n", "registry"},
		{"bad api warnings", "kubernetes:\n  apiWarnings: loud\n", "kubernetes.apiWarnings"},
		{"bad provider type", "secrets:\n  providers:\n    x:\n      type: keychain\n", "secrets.providers.x.type"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, tt.content)

			_, err := NewLoader().Load(path)
			require.Error(t, err)
			assert.True(t, errors.Is(err, oerrors.ErrValidation))

			var detail *oerrors.DetailError
			require.True(t, errors.As(err, &detail))
			assert.Equal(t, path, detail.Location)
			if tt.field != "" {
				assert.Equal(t, tt.field, detail.Field)
			}
			assert.Contains(t, detail.Hint, "hal config init")
		})
	}
}

func TestValidateDocument(t *testing.T) {
	t.Run("empty document is valid", func(t *testing.T) {
		assert.NoError(t, ValidateDocument("x", nil))
	})

	t.Run("malformed yaml", func(t *testing.T) {
		err := ValidateDocument("x", []byte("kubernetes: [\n"))
		assert.ErrorIs(t, err, oerrors.ErrValidation)
	})
}

// --- WriteDefault ---

func TestWriteDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	written, err := WriteDefault(path, false)
	require.NoError(t, err)
	assert.Equal(t, path, written)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, fs.FileMode(0o600), info.Mode().Perm())

	_, err = WriteDefault(path, false)
	assert.ErrorIs(t, err, fs.ErrExist)

	require.NoError(t, os.WriteFile(path, []byte("# edited\n"), 0o600))
	_, err = WriteDefault(path, true)
	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfigTemplate, string(data))
}
