package cmd

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opmodel/hal/internal/artifacts"
	"github.com/opmodel/hal/internal/config"
	oerrors "github.com/opmodel/hal/internal/errors"
	"github.com/opmodel/hal/internal/halconfig"
	"github.com/opmodel/hal/internal/settings"
)

const prodHalconfig = `currentDeployment: prod
deploymentConfigurations:
  - name: prod
    version: 1.30.0
    providers:
      kubernetes:
        enabled: true
        accounts:
          - name: k8s-1
            context: prod-cluster
            dockerRegistries:
              - accountName: dockerhub
      dockerRegistry:
        enabled: true
        accounts:
          - name: dockerhub
            address: index.docker.io
    deploymentEnvironment:
      size: SMALL
      type: Distributed
    features:
      chaos: false
`

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

// halEnv is an isolated hal home: a tool config, a halconfig and a dir
// registry under one temp directory.
type halEnv struct {
	dir       string
	config    string
	halconfig string
	registry  string
}

func newHalEnv(t *testing.T) *halEnv {
	t.Helper()
	for _, env := range []string{
		config.EnvConfig, config.EnvHalconfig, config.EnvStagingDir,
		config.EnvDeployment, config.EnvKubeconfig, config.EnvContext,
	} {
		t.Setenv(env, "")
	}

	dir := t.TempDir()
	e := &halEnv{
		dir:       dir,
		config:    filepath.Join(dir, "config.yaml"),
		halconfig: filepath.Join(dir, "halconfig"),
		registry:  filepath.Join(dir, "registry"),
	}
	t.Setenv(config.EnvConfig, e.config)

	tool := strings.Join([]string{
		"halconfig: " + e.halconfig,
		"stagingDir: " + filepath.Join(dir, "staging"),
		"registry:",
		"  type: dir",
		"  path: " + e.registry,
		"log:",
		"  timestamps: false",
		"",
	}, "\n")
	require.NoError(t, os.WriteFile(e.config, []byte(tool), 0o600))
	e.writeHalconfig(t, prodHalconfig)
	return e
}

func (e *halEnv) writeHalconfig(t *testing.T, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(e.halconfig, []byte(body), 0o600))
}

func (e *halEnv) deployment(t *testing.T) *halconfig.DeploymentConfiguration {
	t.Helper()
	h, err := halconfig.NewFileStore(e.halconfig).Load()
	require.NoError(t, err)
	d, err := halconfig.GetDeployment(h, "prod")
	require.NoError(t, err)
	return d
}

// writeRegistry publishes the BOM and one template per profile.
func (e *halEnv) writeRegistry(t *testing.T) {
	t.Helper()
	write := func(key, body string) {
		p := filepath.Join(e.registry, filepath.FromSlash(key))
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
			body := "redis:\n  baseUrl: {%services.redis.baseUrl%}\n"
			if file == "gate.yml" {
				body = "kubernetes.default.account: {%kubernetes.default.account%}\n"
			}
			write(artifacts.TemplateKey(svc.Artifact, version, file), body)
		}
	}
}

func runHal(t *testing.T, args ...string) error {
	t.Helper()
	root := NewRootCmd()
	root.SetArgs(args)
	return root.Execute()
}

// --- config init ---

func TestConfigInit(t *testing.T) {
	e := newHalEnv(t)
	path := filepath.Join(e.dir, "fresh", "config.yaml")
	t.Setenv(config.EnvConfig, path)

	require.NoError(t, runHal(t, "config", "init"))
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	err = runHal(t, "config", "init")
	require.Error(t, err)
	assert.ErrorIs(t, err, oerrors.ErrValidation)

	require.NoError(t, runHal(t, "config", "init", "--force"))
}

func TestBrokenToolConfig(t *testing.T) {
	e := newHalEnv(t)
	require.NoError(t, os.WriteFile(e.config, []byte("deploy:\n  timeout: soon\n"), 0o600))

	err := runHal(t, "config", "get")
	require.Error(t, err)
	assert.Equal(t, ExitValidationError, ExitCodeFromError(err))

	require.NoError(t, runHal(t, "version"))
	require.NoError(t, runHal(t, "config", "init", "--force"))
	require.NoError(t, runHal(t, "config", "get", "--halconfig", e.halconfig, "-o", "json"))
}

// --- config get / validate / diff ---

func TestConfigGet_UnknownDeployment(t *testing.T) {
	newHalEnv(t)

	err := runHal(t, "config", "get", "-d", "staging")
	require.Error(t, err)
	assert.Equal(t, ExitNotFound, ExitCodeFromError(err))
}

func TestConfigGet_InvalidFormat(t *testing.T) {
	newHalEnv(t)

	err := runHal(t, "config", "get", "-o", "xml")
	require.Error(t, err)
	assert.Equal(t, ExitValidationError, ExitCodeFromError(err))
}

func TestConfigValidate(t *testing.T) {
	e := newHalEnv(t)
	require.NoError(t, runHal(t, "config", "validate"))

	e.writeHalconfig(t, strings.Replace(prodHalconfig, "chaos: false", "fiat: true", 1))

	err := runHal(t, "config", "validate")
	require.Error(t, err)
	var exitErr *oerrors.ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, ExitValidationError, exitErr.Code)
	assert.True(t, exitErr.Printed)

	require.NoError(t, runHal(t, "config", "validate", "--severity", "NONE"))
	require.NoError(t, runHal(t, "config", "validate", "--severity", "FATAL"))
}

func TestConfigValidate_BadSeverity(t *testing.T) {
	newHalEnv(t)

	err := runHal(t, "config", "validate", "--severity", "LOUD")
	require.Error(t, err)
	assert.ErrorIs(t, err, oerrors.ErrValidation)
}

func TestConfigDiff(t *testing.T) {
	e := newHalEnv(t)
	baseline := filepath.Join(e.dir, "baseline")
	require.NoError(t, os.WriteFile(baseline, []byte(prodHalconfig), 0o600))
	require.NoError(t, runHal(t, "config", "features", "edit", "--chaos"))

	require.NoError(t, runHal(t, "config", "diff", "--from", baseline))
	require.NoError(t, runHal(t, "config", "diff", "--from", baseline, "--yaml"))

	err := runHal(t, "config", "diff", "--from", filepath.Join(e.dir, "missing"))
	require.Error(t, err)
	assert.ErrorIs(t, err, oerrors.ErrNotFound)
}

func TestRenderNodeDiff(t *testing.T) {
	older, err := halconfig.Decode([]byte(prodHalconfig))
	require.NoError(t, err)
	newer, err := halconfig.Decode([]byte(strings.Replace(prodHalconfig, "chaos: false", "chaos: true", 1)))
	require.NoError(t, err)

	diff, err := halconfig.Diff(newer, older)
	require.NoError(t, err)

	out := renderNodeDiff(diff)
	assert.Contains(t, out, "chaos: false -> true")
	assert.NotContains(t, out, "size")
}

// --- edits ---

func TestFeaturesEdit(t *testing.T) {
	e := newHalEnv(t)

	require.NoError(t, runHal(t, "config", "features", "edit", "--chaos", "--entity-tags"))
	d := e.deployment(t)
	assert.True(t, d.Features.Chaos)
	assert.True(t, d.Features.EntityTags)

	err := runHal(t, "config", "features", "edit", "--chaos")
	require.Error(t, err)
	assert.ErrorIs(t, err, oerrors.ErrNoOp)
	assert.Equal(t, ExitNoOp, ExitCodeFromError(err))

	require.NoError(t, runHal(t, "config", "features", "edit", "--chaos=false"))
	assert.False(t, e.deployment(t).Features.Chaos)
}

func TestFeaturesEdit_NoFlags(t *testing.T) {
	newHalEnv(t)

	err := runHal(t, "config", "features", "edit")
	require.Error(t, err)
	assert.ErrorIs(t, err, oerrors.ErrValidation)
}

func TestFeaturesEdit_BlockedByValidation(t *testing.T) {
	e := newHalEnv(t)
	before, err := os.ReadFile(e.halconfig)
	require.NoError(t, err)

	err = runHal(t, "config", "features", "edit", "--fiat")
	require.Error(t, err)
	assert.ErrorIs(t, err, oerrors.ErrValidation)

	after, err := os.ReadFile(e.halconfig)
	require.NoError(t, err)
	assert.Equal(t, string(before), string(after))
}

func TestProviderAccounts(t *testing.T) {
	e := newHalEnv(t)

	require.NoError(t, runHal(t, "config", "provider", "aws", "account", "add", "prod-aws",
		"--account-id", "123456789012", "--regions", "us-east-1,eu-west-1"))
	d := e.deployment(t)
	account, ok := d.Providers.AWS.Account("prod-aws")
	require.True(t, ok)
	assert.Equal(t, "123456789012", account.AccountID)
	assert.Len(t, account.Regions, 2)
	assert.Equal(t, "prod-aws", d.Providers.AWS.GetPrimaryAccount())

	err := runHal(t, "config", "provider", "aws", "account", "add", "prod-aws", "--account-id", "1")
	require.Error(t, err)

	require.NoError(t, runHal(t, "config", "provider", "aws", "account", "delete", "prod-aws"))
	_, ok = e.deployment(t).Providers.AWS.Account("prod-aws")
	assert.False(t, ok)

	err = runHal(t, "config", "provider", "aws", "account", "delete", "prod-aws")
	require.Error(t, err)
	assert.Equal(t, ExitNotFound, ExitCodeFromError(err))
}

func TestProviderAccounts_DockerPasswordFlagsExclusive(t *testing.T) {
	e := newHalEnv(t)
	file := filepath.Join(e.dir, "pw")
	require.NoError(t, os.WriteFile(file, []byte("hunter2"), 0o600))

	err := runHal(t, "config", "provider", "dockerRegistry", "account", "add", "quay",
		"--address", "quay.io", "--password", "x", "--password-file", file)
	require.Error(t, err)

	_, ok := e.deployment(t).Providers.DockerRegistry.Account("quay")
	assert.False(t, ok)
}

func TestProviderEnableDisable(t *testing.T) {
	e := newHalEnv(t)

	require.NoError(t, runHal(t, "config", "provider", "dockerRegistry", "disable"))
	assert.False(t, e.deployment(t).Providers.DockerRegistry.Enabled)

	err := runHal(t, "config", "provider", "dockerRegistry", "disable")
	assert.ErrorIs(t, err, oerrors.ErrNoOp)

	require.NoError(t, runHal(t, "config", "provider", "dockerRegistry", "enable"))
	assert.True(t, e.deployment(t).Providers.DockerRegistry.Enabled)
}

func TestEditEnvironment(t *testing.T) {
	e := newHalEnv(t)

	require.NoError(t, runHal(t, "config", "edit-environment", "--size", "medium", "--location", "spinnaker-prod"))
	env := e.deployment(t).DeploymentEnvironment
	assert.Equal(t, halconfig.SizeMedium, env.Size)
	assert.Equal(t, "spinnaker-prod", env.ResolvedLocation())

	err := runHal(t, "config", "edit-environment", "--size", "huge")
	require.Error(t, err)
	assert.ErrorIs(t, err, oerrors.ErrValidation)
}

func TestVersionEdit(t *testing.T) {
	e := newHalEnv(t)

	require.NoError(t, runHal(t, "config", "version", "edit", "--version", "1.31.0"))
	assert.Equal(t, "1.31.0", e.deployment(t).Version)
}

// --- generate ---

func TestConfigGenerate(t *testing.T) {
	e := newHalEnv(t)
	e.writeRegistry(t)
	out := filepath.Join(e.dir, "out")

	require.NoError(t, runHal(t, "config", "generate", "--out", out, "--services", settings.Gate))

	data, err := os.ReadFile(filepath.Join(out, settings.Gate, "gate.yml"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "kubernetes.default.account: k8s-1")
}

// --- deploy ---

func TestDeployRollback_InvalidVersion(t *testing.T) {
	newHalEnv(t)

	for _, v := range []string{"x", "0", "-2"} {
		err := runHal(t, "deploy", "rollback", settings.Gate, "--", v)
		require.Error(t, err, v)
		assert.ErrorIs(t, err, oerrors.ErrValidation, v)
	}
}

func TestDeploymentAccount(t *testing.T) {
	h, err := halconfig.Decode([]byte(prodHalconfig))
	require.NoError(t, err)
	d, err := halconfig.GetDeployment(h, "prod")
	require.NoError(t, err)

	account := deploymentAccount(d)
	require.NotNil(t, account)
	assert.Equal(t, "k8s-1", account.Name)
	assert.Equal(t, "prod-cluster", account.Context)

	d.DeploymentEnvironment.AccountName = "other"
	assert.Nil(t, deploymentAccount(d))

	d.Providers.Kubernetes = nil
	assert.Nil(t, deploymentAccount(d))
}
