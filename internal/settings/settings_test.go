package settings_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opmodel/hal/internal/halconfig"
	"github.com/opmodel/hal/internal/settings"
)

func ptr[T any](v T) *T { return &v }

func deployment() *halconfig.DeploymentConfiguration {
	d := halconfig.NewDeploymentConfiguration("prod")
	d.Version = "1.30.0"
	return d
}

// --- Catalog ---

func TestCatalogOrder(t *testing.T) {
	names := settings.Names()
	require.NotEmpty(t, names)
	assert.Equal(t, settings.Redis, names[0])
	assert.Equal(t, settings.MonitoringDaemon, names[len(names)-1])

	all := settings.Catalog()
	for i := 1; i < len(all); i++ {
		assert.LessOrEqual(t, all[i-1].DeployPriority, all[i].DeployPriority)
	}
}

func TestLookup(t *testing.T) {
	gate, ok := settings.Lookup(settings.Gate)
	require.True(t, ok)
	assert.Equal(t, 8084, gate.Port)
	assert.Equal(t, "/health", gate.HealthEndpoint)

	deck, ok := settings.Lookup(settings.Deck)
	require.True(t, ok)
	assert.Equal(t, "/", deck.HealthEndpoint)
	assert.Equal(t, []string{"settings.js"}, deck.Profiles)

	redis, ok := settings.Lookup(settings.Redis)
	require.True(t, ok)
	assert.True(t, redis.RequiredToBootstrap)
	assert.False(t, redis.Safe)
	assert.Empty(t, redis.Profiles)

	_, ok = settings.Lookup("nope")
	assert.False(t, ok)
}

// --- Build ---

func TestBuildEndpoints(t *testing.T) {
	d := deployment()
	gate, _ := settings.Lookup(settings.Gate)

	s := settings.Build(d, gate)
	assert.Equal(t, "gate.spinnaker", s.Host)
	assert.Equal(t, "http://gate.spinnaker:8084", s.BaseURL)
	assert.Equal(t, "spinnaker", s.Location)
	assert.True(t, s.Enabled)
	assert.Equal(t, "-XX:MaxRAMPercentage=75.0", s.Env["JAVA_OPTS"])
	assert.NotContains(t, s.Env, "SPRING_PROFILES_ACTIVE", "set by the service's profile")

	d.DeploymentEnvironment.Location = "ops"
	s = settings.Build(d, gate)
	assert.Equal(t, "gate.ops", s.Host)
}

func TestBuildEnablement(t *testing.T) {
	d := deployment()
	fiat, _ := settings.Lookup(settings.Fiat)
	kayenta, _ := settings.Lookup(settings.Kayenta)
	igor, _ := settings.Lookup(settings.Igor)

	assert.False(t, settings.Build(d, fiat).Enabled)
	assert.False(t, settings.Build(d, kayenta).Enabled)
	assert.True(t, settings.Build(d, igor).Enabled)

	d.Features.Fiat = true
	d.Features.MineCanary = ptr(true)
	assert.True(t, settings.Build(d, fiat).Enabled)
	assert.True(t, settings.Build(d, kayenta).Enabled)
}

// --- Sizing ---

func TestResolveSizing(t *testing.T) {
	tests := []struct {
		name   string
		size   halconfig.Size
		custom map[string]halconfig.CustomSizing
		want   settings.Sizing
	}{
		{
			name: "tier defaults",
			size: halconfig.SizeMedium,
			want: settings.Tier(halconfig.SizeMedium),
		},
		{
			name: "custom replicas inherits tier limits",
			size: halconfig.SizeSmall,
			custom: map[string]halconfig.CustomSizing{
				"clouddriver": {Replicas: ptr(3)},
			},
			want: settings.Sizing{
				Replicas: ptr(3),
				Requests: settings.Tier(halconfig.SizeSmall).Requests,
				Limits:   settings.Tier(halconfig.SizeSmall).Limits,
			},
		},
		{
			name: "field by field override",
			size: halconfig.SizeLarge,
			custom: map[string]halconfig.CustomSizing{
				"clouddriver": {Limits: halconfig.ResourceSpec{Memory: "16Gi"}},
			},
			want: settings.Sizing{
				Requests: settings.Tier(halconfig.SizeLarge).Requests,
				Limits:   settings.Resources{CPU: settings.Tier(halconfig.SizeLarge).Limits.CPU, Memory: "16Gi"},
			},
		},
		{
			name: "other services untouched",
			size: halconfig.SizeSmall,
			custom: map[string]halconfig.CustomSizing{
				"gate": {Replicas: ptr(2)},
			},
			want: settings.Tier(halconfig.SizeSmall),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := &halconfig.DeploymentEnvironment{Size: tt.size, CustomSizing: tt.custom}
			assert.Equal(t, tt.want, settings.ResolveSizing(env, "clouddriver"))
		})
	}
}

func TestTierUnknownFallsBackToSmall(t *testing.T) {
	assert.Equal(t, settings.Tier(halconfig.SizeSmall), settings.Tier("HUGE"))
	assert.Nil(t, settings.Tier(halconfig.SizeLarge).Replicas)
}

// --- Runtime ---

type fakeImages struct {
	fail string
}

func (f fakeImages) ArtifactVersion(_ context.Context, _, artifact string) (string, error) {
	if artifact == f.fail {
		return "", errors.New("missing from bom")
	}
	return "2.0.0-" + artifact, nil
}

func (f fakeImages) Image(_ context.Context, _, artifact string) (string, error) {
	return "registry.example/" + artifact + ":2.0.0-" + artifact, nil
}

func TestBuildRuntime(t *testing.T) {
	d := deployment()
	rt, err := settings.BuildRuntime(context.Background(), d, fakeImages{})
	require.NoError(t, err)

	assert.Equal(t, "prod", rt.Deployment)
	assert.Len(t, rt.Services, len(settings.Names()))

	gate, ok := rt.Service(settings.Gate)
	require.True(t, ok)
	assert.Equal(t, "registry.example/gate:2.0.0-gate", gate.Artifact)
	assert.Equal(t, "2.0.0-gate", gate.Version)

	fiat, _ := rt.Service(settings.Fiat)
	assert.Empty(t, fiat.Artifact, "disabled services are not resolved")

	enabled := rt.EnabledServices()
	require.NotEmpty(t, enabled)
	assert.Equal(t, settings.Redis, enabled[0].Name)
	for _, s := range enabled {
		assert.NotEqual(t, settings.Fiat, s.Name)
	}
}

func TestBuildRuntimeImageError(t *testing.T) {
	_, err := settings.BuildRuntime(context.Background(), deployment(), fakeImages{fail: "orca"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "orca")
}
