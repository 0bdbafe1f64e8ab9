package halconfig_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	oerrors "github.com/opmodel/hal/internal/errors"
	"github.com/opmodel/hal/internal/halconfig"
)

const sampleHalconfig = `halyardVersion: 1.0.0
currentDeployment: prod
deploymentConfigurations:
  - name: prod
    version: 1.30.0
    providers:
      kubernetes:
        enabled: true
        primaryAccount: gone
        accounts:
          - name: k8s-1
            context: dev
            dockerRegistries:
              - accountName: dockerhub
          - name: k8s-2
      dockerRegistry:
        enabled: true
        accounts:
          - name: dockerhub
            address: index.docker.io
    deploymentEnvironment:
      size: MEDIUM
      type: Distributed
      customSizing:
        gate:
          replicas: 2
    features:
      chaos: true
`

// --- FileStore ---

func TestFileStore_LoadNormalizes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config")
	require.NoError(t, os.WriteFile(path, []byte(sampleHalconfig), 0o600))

	h, err := halconfig.NewFileStore(path).Load()
	require.NoError(t, err)

	d, err := halconfig.GetDeployment(h, "prod")
	require.NoError(t, err)
	assert.Equal(t, "k8s-1", d.Providers.Kubernetes.PrimaryAccount, "stale primary healed on load")
	assert.True(t, d.Features.Chaos)
	assert.Equal(t, halconfig.SizeMedium, d.DeploymentEnvironment.Size)
	require.NotNil(t, d.DeploymentEnvironment.CustomSizing["gate"].Replicas)
	assert.Equal(t, 2, *d.DeploymentEnvironment.CustomSizing["gate"].Replicas)
	require.NotNil(t, d.Security.APISecurity.SSL, "missing sections are filled")
	assert.Same(t, d, d.Providers.Parent())
}

func TestFileStore_MissingFileYieldsDefaults(t *testing.T) {
	h, err := halconfig.NewFileStore(filepath.Join(t.TempDir(), "absent")).Load()
	require.NoError(t, err)
	require.Len(t, h.DeploymentConfigurations, 1)
	assert.Equal(t, halconfig.DefaultDeploymentName, h.DeploymentConfigurations[0].Name)
}

func TestFileStore_SchemaViolation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config")
	bad := "deploymentConfigurations:\n  - name: prod\n    deploymentEnvironment:\n      size: HUGE\n"
	require.NoError(t, os.WriteFile(path, []byte(bad), 0o600))

	_, err := halconfig.NewFileStore(path).Load()
	require.Error(t, err)
	var schemaErr *halconfig.SchemaError
	require.ErrorAs(t, err, &schemaErr)
	assert.NotEmpty(t, schemaErr.Violations)
}

func TestFileStore_SaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config")
	store := halconfig.NewFileStore(path)

	h := testHalconfig(t)
	require.NoError(t, store.Save(h))

	loaded, err := store.Load()
	require.NoError(t, err)
	d, err := halconfig.Diff(loaded.DeploymentConfigurations[0], h.DeploymentConfigurations[0])
	require.NoError(t, err)
	assert.Nil(t, d, "saved tree reloads unchanged")

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temporary files left behind")
}

func TestClone_IsIndependent(t *testing.T) {
	h := testHalconfig(t)
	c, err := halconfig.Clone(h)
	require.NoError(t, err)

	c.DeploymentConfigurations[0].Features.Chaos = true
	assert.False(t, h.DeploymentConfigurations[0].Features.Chaos)
	assert.Same(t, c.DeploymentConfigurations[0], c.DeploymentConfigurations[0].Features.Parent())
}

// --- Lookup ---

func TestUniqueNode_NotFound(t *testing.T) {
	h := testHalconfig(t)
	_, err := halconfig.GetAccount(h, "prod", "kubernetes", "nope")
	require.Error(t, err)
	assert.ErrorIs(t, err, oerrors.ErrConfigNotFound)

	var detail *oerrors.DetailError
	require.ErrorAs(t, err, &detail)
	assert.NotEmpty(t, detail.Hint)
}

func TestUniqueNode_Ambiguous(t *testing.T) {
	h := testHalconfig(t)
	_, err := halconfig.UniqueNode[halconfig.Account](h, halconfig.FilterDeployment("prod"))
	assert.ErrorIs(t, err, oerrors.ErrAmbiguousConfig)
}

func TestGetters(t *testing.T) {
	h := testHalconfig(t)
	d := h.DeploymentConfigurations[0]

	p, err := halconfig.GetProvider(h, "prod", "kubernetes")
	require.NoError(t, err)
	assert.Same(t, d.Providers.Kubernetes, p)

	f, err := halconfig.GetFeatures(h, "prod")
	require.NoError(t, err)
	assert.Same(t, d.Features, f)

	e, err := halconfig.GetDeploymentEnvironment(h, "prod")
	require.NoError(t, err)
	assert.Same(t, d.DeploymentEnvironment, e)

	n, err := halconfig.GetNotifications(h, "prod")
	require.NoError(t, err)
	assert.Same(t, d.Notifications, n)

	s, err := halconfig.GetSecurity(h, "prod")
	require.NoError(t, err)
	assert.Same(t, d.Security, s)

	_, err = halconfig.GetDeployment(h, "staging")
	assert.ErrorIs(t, err, oerrors.ErrConfigNotFound)
}

func TestMatchingNodes(t *testing.T) {
	h := testHalconfig(t)
	accounts := halconfig.MatchingNodes[halconfig.Account](h, halconfig.FilterAll())
	assert.Len(t, accounts, 2)
}

func TestResolveDeploymentName(t *testing.T) {
	h := testHalconfig(t)
	assert.Equal(t, "prod", halconfig.ResolveDeploymentName(h, ""))
	assert.Equal(t, "other", halconfig.ResolveDeploymentName(h, "other"))
}

// --- Staging ---

func TestStageLocalFiles(t *testing.T) {
	src := filepath.Join(t.TempDir(), "key.json")
	require.NoError(t, os.WriteFile(src, []byte(`{"k":1}`), 0o600))

	h := testHalconfig(t)
	d := h.DeploymentConfigurations[0]
	for _, name := range []string{"a", "b"} {
		g := halconfig.NewGoogleAccount(name)
		g.JSONPath = src
		require.NoError(t, d.Providers.Google.AddAccount(g))
	}

	dir := filepath.Join(t.TempDir(), "staging")
	staged, err := halconfig.StageLocalFiles(d, dir)
	require.NoError(t, err)
	require.Len(t, staged, 1, "same source staged once")
	assert.Equal(t, filepath.Join(dir, halconfig.StagedName(src)), staged[0].Path)

	data, err := os.ReadFile(staged[0].Path)
	require.NoError(t, err)
	assert.Equal(t, `{"k":1}`, string(data))

	for _, name := range []string{"a", "b"} {
		g, ok := d.Providers.Google.Account(name)
		require.True(t, ok)
		assert.Equal(t, staged[0].Path, g.JSONPath, "account %s reads the staged copy", name)
	}

	again, err := halconfig.StageLocalFiles(d, dir)
	require.NoError(t, err)
	assert.Empty(t, again, "already staged paths are kept")
}

func TestStageLocalFiles_KeepsSecretReferences(t *testing.T) {
	h := testHalconfig(t)
	d := h.DeploymentConfigurations[0]
	g := halconfig.NewGoogleAccount("a")
	g.JSONPath = "secret://vault/gcp#key"
	require.NoError(t, d.Providers.Google.AddAccount(g))

	staged, err := halconfig.StageLocalFiles(d, t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, staged)
	assert.Equal(t, "secret://vault/gcp#key", g.JSONPath)
}

func TestStageLocalFiles_MissingSource(t *testing.T) {
	h := testHalconfig(t)
	g := halconfig.NewGoogleAccount("a")
	g.JSONPath = filepath.Join(t.TempDir(), "nope.json")
	require.NoError(t, h.DeploymentConfigurations[0].Providers.Google.AddAccount(g))

	_, err := halconfig.StageLocalFiles(h, t.TempDir())
	assert.Error(t, err)
}

func TestStagedName_Stable(t *testing.T) {
	assert.Equal(t, halconfig.StagedName("/a/b.json"), halconfig.StagedName("/a/b.json"))
	assert.NotEqual(t, halconfig.StagedName("/a/b.json"), halconfig.StagedName("/c/b.json"))
	assert.Regexp(t, `^[0-9a-f]{8}-b\.json$`, halconfig.StagedName("/a/b.json"))
}
