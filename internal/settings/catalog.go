// Package settings computes the runtime settings of every managed service
// from a deployment configuration: endpoints, enablement, sizing and image.
package settings

import (
	"sort"

	"github.com/opmodel/hal/pkg/weights"
)

// ServiceType is the contract of one service kind.
type ServiceType struct {
	// Name is the canonical service name and the Kubernetes resource prefix.
	Name     string
	Artifact string
	Port     int
	Scheme   string

	// HealthEndpoint is probed over HTTP; empty means a TCP check.
	HealthEndpoint string

	DeployPriority      int
	RequiredToBootstrap bool

	// Safe services may be redeployed while running.
	Safe bool

	// Profiles lists the profile names generated for the service.
	Profiles []string
}

const (
	Gate             = "gate"
	Deck             = "deck"
	Orca             = "orca"
	Clouddriver      = "clouddriver"
	Front50          = "front50"
	Echo             = "echo"
	Igor             = "igor"
	Rosco            = "rosco"
	Fiat             = "fiat"
	Kayenta          = "kayenta"
	Redis            = "redis"
	MonitoringDaemon = "monitoring-daemon"
)

func javaService(name string, port int) ServiceType {
	return ServiceType{
		Name:           name,
		Artifact:       name,
		Port:           port,
		Scheme:         "http",
		HealthEndpoint: "/health",
		DeployPriority: weights.GetWeight(name),
		Safe:           true,
		Profiles:       []string{"spinnaker.yml", name + ".yml"},
	}
}

var catalog = func() map[string]ServiceType {
	services := []ServiceType{
		javaService(Gate, 8084),
		javaService(Orca, 8083),
		javaService(Clouddriver, 7002),
		javaService(Front50, 8080),
		javaService(Echo, 8089),
		javaService(Igor, 8088),
		javaService(Rosco, 8087),
		javaService(Fiat, 7003),
		javaService(Kayenta, 8090),
		{
			Name: Deck, Artifact: Deck, Port: 9000, Scheme: "http", HealthEndpoint: "/",
			DeployPriority: weights.GetWeight(Deck), Safe: true, Profiles: []string{"settings.js"},
		},
		{
			Name: Redis, Artifact: Redis, Port: 6379, Scheme: "redis",
			DeployPriority: weights.GetWeight(Redis), RequiredToBootstrap: true,
		},
		{
			Name: MonitoringDaemon, Artifact: MonitoringDaemon, Port: 8008, Scheme: "http", HealthEndpoint: "/",
			DeployPriority: weights.GetWeight(MonitoringDaemon), Safe: true,
		},
	}
	out := make(map[string]ServiceType, len(services))
	for _, s := range services {
		out[s.Name] = s
	}
	return out
}()

// Lookup returns the service type with the given name.
func Lookup(name string) (ServiceType, bool) {
	s, ok := catalog[name]
	return s, ok
}

// Catalog returns every service type ordered by deploy priority, then name.
func Catalog() []ServiceType {
	out := make([]ServiceType, 0, len(catalog))
	for _, s := range catalog {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DeployPriority != out[j].DeployPriority {
			return out[i].DeployPriority < out[j].DeployPriority
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// Names returns the service names in catalog order.
func Names() []string {
	all := Catalog()
	names := make([]string, len(all))
	for i, s := range all {
		names[i] = s.Name
	}
	return names
}
