package settings

import "github.com/opmodel/hal/internal/halconfig"

// Resources holds CPU and memory quantities.
type Resources struct {
	CPU    string
	Memory string
}

// Sizing is the resolved size of a service. A nil Replicas means the
// orchestrator default.
type Sizing struct {
	Replicas *int
	Requests Resources
	Limits   Resources
}

var tiers = map[halconfig.Size]Sizing{
	halconfig.SizeSmall: {
		Requests: Resources{CPU: "100m", Memory: "512Mi"},
		Limits:   Resources{CPU: "1", Memory: "2Gi"},
	},
	halconfig.SizeMedium: {
		Requests: Resources{CPU: "500m", Memory: "1Gi"},
		Limits:   Resources{CPU: "2", Memory: "4Gi"},
	},
	halconfig.SizeLarge: {
		Requests: Resources{CPU: "1", Memory: "2Gi"},
		Limits:   Resources{CPU: "4", Memory: "8Gi"},
	},
}

// Tier returns the default sizing of a size class; unknown sizes fall back
// to SMALL.
func Tier(size halconfig.Size) Sizing {
	if t, ok := tiers[size]; ok {
		return t
	}
	return tiers[halconfig.SizeSmall]
}

// ResolveSizing applies the deployment's custom sizing for service over the
// tier defaults, field by field.
func ResolveSizing(env *halconfig.DeploymentEnvironment, service string) Sizing {
	if env == nil {
		return Tier(halconfig.SizeSmall)
	}
	s := Tier(env.Size)
	custom, ok := env.CustomSizing[service]
	if !ok {
		return s
	}
	if custom.Replicas != nil {
		r := *custom.Replicas
		s.Replicas = &r
	}
	s.Requests = overlay(s.Requests, custom.Requests)
	s.Limits = overlay(s.Limits, custom.Limits)
	return s
}

func overlay(base Resources, custom halconfig.ResourceSpec) Resources {
	if custom.CPU != "" {
		base.CPU = custom.CPU
	}
	if custom.Memory != "" {
		base.Memory = custom.Memory
	}
	return base
}
