package kubernetes

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveKubeconfig(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	tests := []struct {
		name    string
		flag    string
		envHAL  string
		envKube string
		want    string
	}{
		{name: "flag takes precedence", flag: "/custom/kubeconfig", envHAL: "/hal/kubeconfig", envKube: "/env/kubeconfig", want: "/custom/kubeconfig"},
		{name: "HAL_KUBECONFIG over KUBECONFIG", envHAL: "/hal/kubeconfig", envKube: "/env/kubeconfig", want: "/hal/kubeconfig"},
		{name: "KUBECONFIG alone", envKube: "/env/kubeconfig", want: "/env/kubeconfig"},
		{name: "default", want: filepath.Join(home, ".kube", "config")},
		{name: "tilde expanded", flag: "~/clusters/prod", want: filepath.Join(home, "clusters", "prod")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("HAL_KUBECONFIG", tt.envHAL)
			t.Setenv("KUBECONFIG", tt.envKube)
			assert.Equal(t, tt.want, resolveKubeconfig(tt.flag))
		})
	}
}

func TestNewCluster_BadKubeconfig(t *testing.T) {
	ResetClusters()
	t.Cleanup(ResetClusters)

	path := filepath.Join(t.TempDir(), "config")
	require.NoError(t, os.WriteFile(path, []byte("not: [valid"), 0o600))

	_, err := NewCluster(ClientOptions{Kubeconfig: path})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "kubeconfig")
}
