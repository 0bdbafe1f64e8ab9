package settings

import (
	"context"
	"fmt"
	"sort"

	"github.com/opmodel/hal/internal/halconfig"
)

// ServiceSettings is the fully resolved runtime contract of one service.
type ServiceSettings struct {
	Name           string
	Host           string
	Address        string
	Port           int
	Scheme         string
	BaseURL        string
	HealthEndpoint string

	Enabled           bool
	Safe              bool
	MonitoringEnabled bool

	Sizing Sizing

	// Artifact is the container image; Version is the artifact version.
	Artifact string
	Version  string
	Env      map[string]string

	DeployPriority      int
	RequiredToBootstrap bool

	// Location is the namespace the service runs in.
	Location string
}

// Build computes the settings of svc for a deployment. It does not resolve
// the image; see BuildRuntime.
func Build(d *halconfig.DeploymentConfiguration, svc ServiceType) ServiceSettings {
	location := d.DeploymentEnvironment.ResolvedLocation()
	host := svc.Name + "." + location

	s := ServiceSettings{
		Name:                svc.Name,
		Host:                host,
		Address:             host,
		Port:                svc.Port,
		Scheme:              svc.Scheme,
		BaseURL:             fmt.Sprintf("%s://%s:%d", svc.Scheme, host, svc.Port),
		HealthEndpoint:      svc.HealthEndpoint,
		Enabled:             enabled(d, svc.Name),
		Safe:                svc.Safe,
		MonitoringEnabled:   svc.HealthEndpoint != "" && svc.Name != MonitoringDaemon,
		Sizing:              ResolveSizing(d.DeploymentEnvironment, svc.Name),
		Env:                 map[string]string{},
		DeployPriority:      svc.DeployPriority,
		RequiredToBootstrap: svc.RequiredToBootstrap,
		Location:            location,
	}
	if len(svc.Profiles) > 0 && svc.Name != Deck {
		s.Env["JAVA_OPTS"] = "-XX:MaxRAMPercentage=75.0"
	}
	return s
}

func enabled(d *halconfig.DeploymentConfiguration, service string) bool {
	f := d.Features
	switch service {
	case Fiat:
		return f != nil && f.Fiat
	case Kayenta:
		return f != nil && f.MineCanary != nil && *f.MineCanary
	default:
		return true
	}
}

// ImageResolver resolves service images for a deployment version.
type ImageResolver interface {
	ArtifactVersion(ctx context.Context, deploymentVersion, artifact string) (string, error)
	Image(ctx context.Context, deploymentVersion, artifact string) (string, error)
}

// RuntimeSettings holds the settings of every service of a deployment.
type RuntimeSettings struct {
	Deployment string
	Version    string
	Services   map[string]ServiceSettings
}

// Service returns the settings of the named service.
func (r RuntimeSettings) Service(name string) (ServiceSettings, bool) {
	s, ok := r.Services[name]
	return s, ok
}

// EnabledServices returns the enabled services by ascending priority, then
// name.
func (r RuntimeSettings) EnabledServices() []ServiceSettings {
	var out []ServiceSettings
	for _, s := range r.Services {
		if s.Enabled {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DeployPriority != out[j].DeployPriority {
			return out[i].DeployPriority < out[j].DeployPriority
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// BuildRuntime builds every service's settings and resolves the images of
// the enabled ones. A nil images resolver leaves Artifact and Version empty.
func BuildRuntime(ctx context.Context, d *halconfig.DeploymentConfiguration, images ImageResolver) (RuntimeSettings, error) {
	rt := RuntimeSettings{
		Deployment: d.Name,
		Version:    d.Version,
		Services:   make(map[string]ServiceSettings, len(catalog)),
	}
	for _, svc := range Catalog() {
		s := Build(d, svc)
		if s.Enabled && images != nil {
			version, err := images.ArtifactVersion(ctx, d.Version, svc.Artifact)
			if err != nil {
				return RuntimeSettings{}, fmt.Errorf("resolving %s version: %w", svc.Name, err)
			}
			image, err := images.Image(ctx, d.Version, svc.Artifact)
			if err != nil {
				return RuntimeSettings{}, fmt.Errorf("resolving %s image: %w", svc.Name, err)
			}
			s.Version, s.Artifact = version, image
		}
		rt.Services[svc.Name] = s
	}
	return rt, nil
}
