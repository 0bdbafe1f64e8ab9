// Package cluster defines the operations the orchestrator needs from the
// substrate a deployment runs on, independent of the client library.
package cluster

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Client is the substrate contract. Implementations report missing objects
// with errors wrapping errors.ErrNotFound and failed calls with errors
// wrapping errors.ErrSubstrateUnavailable.
type Client interface {
	EnsureNamespace(ctx context.Context, namespace string) error

	UpsertSecret(ctx context.Context, secret Secret) error
	GetSecret(ctx context.Context, namespace, name string) (*Secret, error)

	// DeleteSecrets deletes every secret in namespace carrying all of labels.
	DeleteSecrets(ctx context.Context, namespace string, labels map[string]string) error

	// ListVersions returns the version numbers of a service's replica sets
	// in ascending order.
	ListVersions(ctx context.Context, namespace, service string) ([]int, error)
	CreateReplicaSet(ctx context.Context, spec ReplicaSetSpec) error
	DeleteReplicaSet(ctx context.Context, namespace, service string, version int) error

	UpsertService(ctx context.Context, spec ServiceSpec) error
	DeleteService(ctx context.Context, namespace, name string) error

	// ListInstances returns the instances of one version of a service.
	ListInstances(ctx context.Context, namespace, service string, version int) ([]Instance, error)

	// OpenProxy opens a local proxy to the control plane.
	OpenProxy(ctx context.Context) (Proxy, error)
}

// Proxy is an open local control-plane proxy.
type Proxy interface {
	URL() string
	Close() error
}

// Secret is an opaque key/value secret.
type Secret struct {
	Name      string
	Namespace string
	Labels    map[string]string
	Data      map[string][]byte
}

// Resources holds CPU and memory quantities; empty values are unset.
type Resources struct {
	CPU    string
	Memory string
}

// ConfigSource mounts one staged secret into a service's containers.
type ConfigSource struct {
	// ID is the name of the secret holding the files.
	ID        string
	MountPath string
	Env       map[string]string
}

// ReplicaSetSpec describes one immutable version of a service.
type ReplicaSetSpec struct {
	Service   string
	Version   int
	Namespace string
	Image     string
	Port      int
	Replicas  int32

	Requests Resources
	Limits   Resources

	Env            map[string]string
	ConfigSources  []ConfigSource
	HealthEndpoint string
	Labels         map[string]string
}

// Name returns the replica set name.
func (s ReplicaSetSpec) Name() string {
	return VersionName(s.Service, s.Version)
}

// ServiceSpec describes the stable endpoint of a service.
type ServiceSpec struct {
	Name      string
	Namespace string
	Port      int
	Selector  map[string]string
	Labels    map[string]string
}

// ContainerStatus is the observed state of one container.
type ContainerStatus struct {
	Name    string
	Ready   bool
	Running bool
}

// Instance is one running copy of a service version.
type Instance struct {
	Name       string
	Version    int
	Containers []ContainerStatus
}

// Healthy reports whether every container is ready and running.
func (i Instance) Healthy() bool {
	if len(i.Containers) == 0 {
		return false
	}
	for _, c := range i.Containers {
		if !c.Ready || !c.Running {
			return false
		}
	}
	return true
}

// VersionName returns "<service>-v%03d".
func VersionName(service string, version int) string {
	return fmt.Sprintf("%s-%s", service, VersionLabel(version))
}

// VersionLabel returns "v%03d".
func VersionLabel(version int) string {
	return fmt.Sprintf("v%03d", version)
}

// ParseVersion extracts the version from a replica set name of service.
func ParseVersion(service, name string) (int, bool) {
	rest, ok := strings.CutPrefix(name, service+"-v")
	if !ok || rest == "" {
		return 0, false
	}
	v, err := strconv.Atoi(rest)
	if err != nil || v < 0 {
		return 0, false
	}
	return v, true
}

// SortedEnv returns the keys of env in sorted order.
func SortedEnv(env map[string]string) []string {
	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
