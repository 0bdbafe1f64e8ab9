package service_test

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"k8s.io/apimachinery/pkg/util/wait"

	"github.com/opmodel/hal/internal/artifacts"
	"github.com/opmodel/hal/internal/cluster"
	"github.com/opmodel/hal/internal/cluster/fake"
	oerrors "github.com/opmodel/hal/internal/errors"
	"github.com/opmodel/hal/internal/halconfig"
	"github.com/opmodel/hal/internal/orchestrator"
	"github.com/opmodel/hal/internal/secrets"
	"github.com/opmodel/hal/internal/service"
	"github.com/opmodel/hal/internal/settings"
)

const bom = `version: 1.30.0
services:
  gate: {version: 6.1.0}
  deck: {version: 3.4.0}
  orca: {version: 8.0.0}
  clouddriver: {version: 9.2.0}
  front50: {version: 2.3.0}
  echo: {version: 2.5.0}
  igor: {version: 1.9.0}
  rosco: {version: 0.8.0}
  fiat: {version: 1.7.0}
  kayenta: {version: 0.4.0}
  monitoring-daemon: {version: 0.5.0}
dependencies:
  redis: {version: 6.2.0}
artifactSources:
  dockerRegistry: registry.example/spinnaker
`

var templates = map[string]string{
	"gate.yml":    "kubernetes.default.account: {%kubernetes.default.account%}\n",
	"settings.js": "var gateHost = '{%gate.baseUrl%}';\n",
	"default":     "redis:\n  baseUrl: {%services.redis.baseUrl%}\n",
}

func writeRegistry(t *testing.T) *artifacts.Resolver {
	t.Helper()
	root := t.TempDir()
	write := func(key, body string) {
		p := filepath.Join(root, filepath.FromSlash(key))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	}
	write(artifacts.BOMKey("1.30.0"), bom)

	parsed, err := artifacts.ParseBOM([]byte(bom))
	require.NoError(t, err)
	for _, svc := range settings.Catalog() {
		version, ok := parsed.ArtifactVersion(svc.Artifact)
		require.True(t, ok, svc.Artifact)
		for _, file := range svc.Profiles {
			body, ok := templates[file]
			if !ok {
				body = templates["default"]
			}
			write(artifacts.TemplateKey(svc.Artifact, version, file), body)
		}
	}
	return artifacts.NewResolver(artifacts.NewDirRegistry(root))
}

type deployFixture struct {
	*fixture
	cluster *fake.Cluster
	opened  *atomic.Int32
	deploy  *service.DeployService
}

func newDeployFixture(t *testing.T) *deployFixture {
	t.Helper()
	f := &deployFixture{fixture: newFixture(t), cluster: fake.New(), opened: &atomic.Int32{}}
	sessions := orchestrator.NewSessionManager(func(context.Context, string) (cluster.Client, error) {
		f.opened.Add(1)
		return f.cluster, nil
	})
	f.deploy = service.NewDeployService(f.svc, sessions, writeRegistry(t), service.DeployOptions{
		Orchestrator: orchestrator.Options{
			PollInterval: time.Millisecond,
			Timeout:      2 * time.Second,
			Backoff:      wait.Backoff{Duration: time.Millisecond, Factor: 1, Steps: 3},
		},
	})
	t.Cleanup(func() { _ = f.deploy.Close() })
	return f
}

// --- Prepare / Generate ---

func TestDeploy_Generate(t *testing.T) {
	f := newDeployFixture(t)
	out := t.TempDir()

	written, err := f.deploy.Generate(context.Background(), "prod", []string{settings.Gate, settings.Deck}, out)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(out, "deck", "settings.js"),
		filepath.Join(out, "gate", "gate.yml"),
		filepath.Join(out, "gate", "spinnaker.yml"),
	}, written)

	gate, err := os.ReadFile(filepath.Join(out, "gate", "gate.yml"))
	require.NoError(t, err)
	assert.Contains(t, string(gate), "kubernetes.default.account: k8s-1")
	assert.NotContains(t, string(gate), "{%")
	assert.Zero(t, f.opened.Load(), "generate never connects")
}

func TestDeploy_GenerateWritesReferencedFiles(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	secretsDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(secretsDir, "secrets.yaml"),
		[]byte("kube:\n  config: |\n    apiVersion: v1\n    kind: Config\n"), 0o600))
	resolver, err := secrets.NewResolver(secrets.Config{
		DefaultProvider: "local",
		Providers:       map[string]secrets.ProviderConfig{"local": {Type: "file", Path: "secrets.yaml"}},
	}, secretsDir)
	require.NoError(t, err)
	session := secrets.NewSession(resolver, filepath.Join(secretsDir, "staged"))
	t.Cleanup(func() { _ = session.Close() })

	keyFile := filepath.Join(t.TempDir(), "gce.json")
	require.NoError(t, os.WriteFile(keyFile, []byte(`{"type":"service_account"}`), 0o600))
	google := halconfig.NewGoogleAccount("gce")
	google.Project = "proj"
	google.JSONPath = keyFile
	_, err = f.svc.AddAccount(ctx, "prod", google, service.UpdateOptions{})
	require.NoError(t, err)
	_, err = f.svc.Update(ctx, "prod", func(d *halconfig.DeploymentConfiguration) error {
		k8s, _ := d.Providers.Kubernetes.Account("k8s-1")
		k8s.KubeconfigFile = "secret://local/kube/config"
		return nil
	}, service.UpdateOptions{})
	require.NoError(t, err)

	deploy := service.NewDeployService(f.svc, orchestrator.NewSessionManager(nil), writeRegistry(t),
		service.DeployOptions{Secrets: session})
	out := t.TempDir()
	written, err := deploy.Generate(ctx, "prod", []string{settings.Clouddriver}, out)
	require.NoError(t, err)

	var names []string
	for _, w := range written {
		names = append(names, filepath.Base(w))
	}
	assert.Contains(t, names, "clouddriver.yml")
	assert.Contains(t, names, halconfig.StagedName(keyFile), "required file written")

	key, err := os.ReadFile(filepath.Join(out, settings.Clouddriver, halconfig.StagedName(keyFile)))
	require.NoError(t, err)
	assert.Equal(t, `{"type":"service_account"}`, string(key))

	var decrypted int
	for _, w := range written {
		data, err := os.ReadFile(w)
		require.NoError(t, err)
		if filepath.Base(w) != "clouddriver.yml" && string(data) == "apiVersion: v1\nkind: Config\n" {
			decrypted++
		}
	}
	assert.Equal(t, 1, decrypted, "decrypted kubeconfig written next to the profile")
}

// --- Apply / Rollback / Delete ---

func TestDeploy_ApplyRollbackDelete(t *testing.T) {
	f := newDeployFixture(t)
	ctx := context.Background()

	res, err := f.deploy.Apply(ctx, "prod", nil)
	require.NoError(t, err)
	assert.Equal(t, "prod", res.Deployment)
	assert.NotContains(t, res.Services, settings.Fiat, "fiat is off")
	assert.Equal(t, 1, res.Services[settings.Gate].Version)

	rs, ok := f.cluster.ReplicaSet("spinnaker", settings.Gate, 1)
	require.True(t, ok)
	assert.Equal(t, "registry.example/spinnaker/gate:6.1.0", rs.Image)

	res, err = f.deploy.Apply(ctx, "", nil)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Services[settings.Gate].Version)
	assert.True(t, res.Services[settings.Redis].Skipped, "redis is not restarted")

	history, err := f.deploy.History(ctx, "prod")
	require.NoError(t, err)
	require.NotEmpty(t, history)
	assert.Equal(t, 2, history[0].Version)

	serving, err := f.deploy.Rollback(ctx, "prod", settings.Gate, 2)
	require.NoError(t, err)
	assert.Equal(t, 1, serving)
	_, ok = f.cluster.ReplicaSet("spinnaker", settings.Gate, 2)
	assert.False(t, ok)
	svc, ok := f.cluster.Service("spinnaker", settings.Gate)
	require.True(t, ok)
	assert.Equal(t, cluster.VersionLabel(1), svc.Selector[cluster.LabelVersion])

	require.NoError(t, f.deploy.Delete(ctx, "prod", nil))
	_, ok = f.cluster.ReplicaSet("spinnaker", settings.Gate, 1)
	assert.False(t, ok)
	history, err = f.deploy.History(ctx, "prod")
	require.NoError(t, err)
	assert.Empty(t, history)

	assert.EqualValues(t, 1, f.opened.Load(), "one session per deployment")
}

func TestDeploy_ApplyRejectsInvalidConfig(t *testing.T) {
	f := newDeployFixture(t)
	ctx := context.Background()
	require.NoError(t, os.WriteFile(f.path, []byte(prodHalconfig+"      fiat: true\n"), 0o600))

	p, err := f.deploy.Prepare(ctx, "prod", nil)
	require.ErrorIs(t, err, oerrors.ErrValidation)
	assert.False(t, p.Problems.Empty())

	_, err = f.deploy.Apply(ctx, "prod", nil)
	require.ErrorIs(t, err, oerrors.ErrValidation)
	assert.Empty(t, f.cluster.Calls())
	assert.Zero(t, f.opened.Load())
}

func TestDeploy_UnknownService(t *testing.T) {
	f := newDeployFixture(t)
	_, err := f.deploy.Apply(context.Background(), "prod", []string{"nope"})
	require.Error(t, err)
	assert.Empty(t, f.cluster.Calls())
}

// --- Connect ---

func TestDeploy_Connect(t *testing.T) {
	f := newDeployFixture(t)

	p, err := f.deploy.Connect(context.Background(), "prod")
	require.NoError(t, err)
	assert.Equal(t, "http://127.0.0.1:8001", p.URL())

	again, err := f.deploy.Connect(context.Background(), "prod")
	require.NoError(t, err)
	assert.Same(t, p, again)
	assert.Equal(t, 1, f.cluster.ProxiesOpened())

	require.NoError(t, f.deploy.Close())
	assert.True(t, p.(*fake.Proxy).Closed())
}
