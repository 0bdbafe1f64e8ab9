// Package fake is an in-memory cluster.Client with scriptable instance
// health.
package fake

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/opmodel/hal/internal/cluster"
	oerrors "github.com/opmodel/hal/internal/errors"
)

// HealthFunc returns how many of a version's instances are healthy on the
// given observation (counted from 1 per service version).
type HealthFunc func(service string, version, replicas, observation int) int

// Cluster is an in-memory substrate. The zero value is not usable; call New.
type Cluster struct {
	mu sync.Mutex

	namespaces  map[string]bool
	secrets     map[string]cluster.Secret
	replicaSets map[string]cluster.ReplicaSetSpec
	services    map[string]cluster.ServiceSpec

	health       HealthFunc
	observations map[string]int
	failures     map[string]*failure
	attempts     map[string]int
	calls        []string
	proxies      int
}

// New returns an empty cluster whose instances are all healthy.
func New() *Cluster {
	return &Cluster{
		namespaces:   map[string]bool{},
		secrets:      map[string]cluster.Secret{},
		replicaSets:  map[string]cluster.ReplicaSetSpec{},
		services:     map[string]cluster.ServiceSpec{},
		observations: map[string]int{},
		attempts:     map[string]int{},
		failures:     map[string]*failure{},
	}
}

func key(namespace, name string) string { return namespace + "/" + name }

// SetHealth scripts instance health for every service.
func (c *Cluster) SetHealth(fn HealthFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.health = fn
}

// SetHealthy makes service report exactly healthy healthy instances.
func (c *Cluster) SetHealthy(service string, healthy int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	prev := c.health
	c.health = func(svc string, version, replicas, observation int) int {
		if svc == service {
			return healthy
		}
		if prev != nil {
			return prev(svc, version, replicas, observation)
		}
		return replicas
	}
}

type failure struct {
	err error
	// remaining calls to fail; negative fails forever.
	remaining int
}

// Fail makes every call of op ("CreateReplicaSet", "UpsertSecret", ...)
// return err. A nil err clears the failure.
func (c *Cluster) Fail(op string, err error) {
	c.FailN(op, err, -1)
}

// FailN makes the next n calls of op return err.
func (c *Cluster) FailN(op string, err error, n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err == nil || n == 0 {
		delete(c.failures, op)
		return
	}
	c.failures[op] = &failure{err: err, remaining: n}
}

// Attempts returns how many times op was called, failed calls included.
func (c *Cluster) Attempts(op string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.attempts[op]
}

// failed consumes a scripted failure of op. c.mu must be held.
func (c *Cluster) failed(op string) error {
	c.attempts[op]++
	f, ok := c.failures[op]
	if !ok {
		return nil
	}
	if f.remaining > 0 {
		f.remaining--
		if f.remaining == 0 {
			delete(c.failures, op)
		}
	}
	return f.err
}

// Calls returns the mutating calls made so far, e.g. "CreateReplicaSet gate-v001".
func (c *Cluster) Calls() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.calls...)
}

// ProxiesOpened returns how many proxies were opened.
func (c *Cluster) ProxiesOpened() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.proxies
}

// Secret returns a stored secret.
func (c *Cluster) Secret(namespace, name string) (cluster.Secret, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.secrets[key(namespace, name)]
	return s, ok
}

// SecretNames returns the names of the secrets in namespace, sorted.
func (c *Cluster) SecretNames(namespace string) []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []string
	for _, s := range c.secrets {
		if s.Namespace == namespace {
			out = append(out, s.Name)
		}
	}
	sort.Strings(out)
	return out
}

// ReplicaSet returns a stored replica set.
func (c *Cluster) ReplicaSet(namespace, service string, version int) (cluster.ReplicaSetSpec, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	rs, ok := c.replicaSets[key(namespace, cluster.VersionName(service, version))]
	return rs, ok
}

// Service returns a stored service.
func (c *Cluster) Service(namespace, name string) (cluster.ServiceSpec, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.services[key(namespace, name)]
	return s, ok
}

// HasNamespace reports whether namespace was ensured.
func (c *Cluster) HasNamespace(namespace string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.namespaces[namespace]
}

// begin records a call and returns the scripted failure for op. c.mu must
// be held.
func (c *Cluster) begin(op, target string) error {
	if err := c.failed(op); err != nil {
		return err
	}
	c.calls = append(c.calls, op+" "+target)
	return nil
}

func (c *Cluster) EnsureNamespace(_ context.Context, namespace string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.begin("EnsureNamespace", namespace); err != nil {
		return err
	}
	c.namespaces[namespace] = true
	return nil
}

func (c *Cluster) UpsertSecret(_ context.Context, s cluster.Secret) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.begin("UpsertSecret", s.Name); err != nil {
		return err
	}
	data := make(map[string][]byte, len(s.Data))
	for k, v := range s.Data {
		data[k] = append([]byte(nil), v...)
	}
	s.Data = data
	c.secrets[key(s.Namespace, s.Name)] = s
	return nil
}

func (c *Cluster) GetSecret(_ context.Context, namespace, name string) (*cluster.Secret, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.failed("GetSecret"); err != nil {
		return nil, err
	}
	s, ok := c.secrets[key(namespace, name)]
	if !ok {
		return nil, oerrors.NewNotFoundError(fmt.Sprintf("secret %s not found", name), namespace, "")
	}
	return &s, nil
}

func (c *Cluster) DeleteSecrets(_ context.Context, namespace string, labels map[string]string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.begin("DeleteSecrets", namespace); err != nil {
		return err
	}
	for k, s := range c.secrets {
		if s.Namespace == namespace && cluster.Matches(s.Labels, labels) {
			delete(c.secrets, k)
		}
	}
	return nil
}

func (c *Cluster) ListVersions(_ context.Context, namespace, service string) ([]int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.failed("ListVersions"); err != nil {
		return nil, err
	}
	var out []int
	for _, rs := range c.replicaSets {
		if rs.Namespace == namespace && rs.Service == service {
			out = append(out, rs.Version)
		}
	}
	sort.Ints(out)
	return out, nil
}

func (c *Cluster) CreateReplicaSet(_ context.Context, spec cluster.ReplicaSetSpec) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.begin("CreateReplicaSet", spec.Name()); err != nil {
		return err
	}
	k := key(spec.Namespace, spec.Name())
	if _, exists := c.replicaSets[k]; exists {
		return oerrors.NewSubstrateError(fmt.Sprintf("replica set %s already exists", spec.Name()), nil,
			fmt.Errorf("already exists"))
	}
	c.replicaSets[k] = spec
	return nil
}

func (c *Cluster) DeleteReplicaSet(_ context.Context, namespace, service string, version int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	name := cluster.VersionName(service, version)
	if err := c.begin("DeleteReplicaSet", name); err != nil {
		return err
	}
	k := key(namespace, name)
	if _, ok := c.replicaSets[k]; !ok {
		return oerrors.NewNotFoundError(fmt.Sprintf("replica set %s not found", name), namespace, "")
	}
	delete(c.replicaSets, k)
	return nil
}

func (c *Cluster) UpsertService(_ context.Context, spec cluster.ServiceSpec) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.begin("UpsertService", spec.Name+" "+spec.Selector[cluster.LabelVersion]); err != nil {
		return err
	}
	c.services[key(spec.Namespace, spec.Name)] = spec
	return nil
}

func (c *Cluster) DeleteService(_ context.Context, namespace, name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.begin("DeleteService", name); err != nil {
		return err
	}
	delete(c.services, key(namespace, name))
	return nil
}

func (c *Cluster) ListInstances(_ context.Context, namespace, service string, version int) ([]cluster.Instance, error) {
	c.mu.Lock()
	if err := c.failed("ListInstances"); err != nil {
		c.mu.Unlock()
		return nil, err
	}
	rs, ok := c.replicaSets[key(namespace, cluster.VersionName(service, version))]
	if !ok {
		c.mu.Unlock()
		return nil, nil
	}
	obsKey := key(namespace, rs.Name())
	c.observations[obsKey]++
	observation := c.observations[obsKey]
	health := c.health
	c.mu.Unlock()

	// health runs unlocked so it may script the cluster.
	replicas := int(rs.Replicas)
	healthy := replicas
	if health != nil {
		healthy = health(service, version, replicas, observation)
	}

	out := make([]cluster.Instance, replicas)
	for i := range out {
		ok := i < healthy
		out[i] = cluster.Instance{
			Name:       fmt.Sprintf("%s-%d", rs.Name(), i),
			Version:    version,
			Containers: []cluster.ContainerStatus{{Name: service, Ready: ok, Running: ok}},
		}
	}
	return out, nil
}

// Proxy is a fake proxy.
type Proxy struct {
	mu     sync.Mutex
	closed bool
}

func (p *Proxy) URL() string { return "http://127.0.0.1:8001" }

func (p *Proxy) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

// Closed reports whether Close was called.
func (p *Proxy) Closed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

func (c *Cluster) OpenProxy(_ context.Context) (cluster.Proxy, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.begin("OpenProxy", ""); err != nil {
		return nil, err
	}
	c.proxies++
	return &Proxy{}, nil
}

var _ cluster.Client = (*Cluster)(nil)
