// Package orchestrator rolls a deployment's services out to a cluster as
// immutable, versioned replica sets. Services are staged, created and
// health-gated in priority order; bootstrap services come first.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"k8s.io/apimachinery/pkg/util/wait"
	"k8s.io/client-go/util/retry"

	"github.com/opmodel/hal/internal/cluster"
	oerrors "github.com/opmodel/hal/internal/errors"
	"github.com/opmodel/hal/internal/inventory"
	"github.com/opmodel/hal/internal/output"
	"github.com/opmodel/hal/internal/profile"
	"github.com/opmodel/hal/internal/settings"
)

// Defaults for Options.
const (
	DefaultPollInterval = 5 * time.Second
	DefaultTimeout      = 10 * time.Minute
)

// DefaultBackoff is used for idempotent calls.
var DefaultBackoff = wait.Backoff{
	Duration: 500 * time.Millisecond,
	Factor:   2,
	Jitter:   0.1,
	Steps:    5,
}

// Options configures an Orchestrator.
type Options struct {
	PollInterval time.Duration
	// Timeout bounds each health wait.
	Timeout time.Duration
	Backoff wait.Backoff

	Observer Observer
	Metrics  *Metrics
	ReadFile FileReader
	Now      func() time.Time

	// SkipHistory disables recording promotions in the history secret.
	SkipHistory bool
}

// Orchestrator drives deployments against one cluster.
type Orchestrator struct {
	client cluster.Client
	opts   Options
}

// New returns an orchestrator. Zero-valued options take their defaults.
func New(client cluster.Client, opts Options) *Orchestrator {
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Backoff.Steps == 0 {
		opts.Backoff = DefaultBackoff
	}
	if opts.Metrics == nil {
		opts.Metrics = NewMetrics(nil)
	}
	if opts.ReadFile == nil {
		opts.ReadFile = os.ReadFile
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Orchestrator{client: client, opts: opts}
}

// Plan is the input of one apply.
type Plan struct {
	Runtime  settings.RuntimeSettings
	Profiles map[string][]*profile.Profile
	// Services limits the apply; empty means every enabled service.
	Services []string
}

// ServiceResult is the outcome of deploying one service.
type ServiceResult struct {
	Service       string
	Version       int
	ConfigSources []cluster.ConfigSource
	// Skipped is set for unsafe services left alone.
	Skipped bool
}

// Result is the outcome of an apply.
type Result struct {
	Deployment string
	Services   map[string]ServiceResult
}

// Deploy applies plan. Bootstrap services are deployed first, one priority
// tier at a time; every tier is RUNNING before the next one is staged.
// Services within a tier are deployed concurrently.
func (o *Orchestrator) Deploy(ctx context.Context, plan Plan) (*Result, error) {
	rt := plan.Runtime
	services, err := selectServices(rt, plan.Services)
	if err != nil {
		return nil, err
	}
	logger := output.DeploymentLogger(rt.Deployment)
	logger.Info("deploying", "services", len(services), "version", rt.Version)

	namespaces := map[string]bool{}
	for _, s := range services {
		if namespaces[s.Location] {
			continue
		}
		namespaces[s.Location] = true
		if err := o.client.EnsureNamespace(ctx, s.Location); err != nil {
			return nil, err
		}
	}

	res := &Result{Deployment: rt.Deployment, Services: make(map[string]ServiceResult, len(services))}
	var mu sync.Mutex
	for _, tier := range Tiers(services) {
		eg, tierCtx := errgroup.WithContext(ctx)
		for _, svc := range tier {
			eg.Go(func() error {
				r, err := o.deployService(tierCtx, rt, svc, plan.Profiles[svc.Name])
				o.opts.Metrics.Deploys.WithLabelValues(svc.Name, result(err)).Inc()
				if err != nil {
					o.emit(rt.Deployment, svc.Name, r.Version, StateFailed, err)
					return fmt.Errorf("deploying %s: %w", svc.Name, err)
				}
				mu.Lock()
				res.Services[svc.Name] = r
				mu.Unlock()
				return nil
			})
		}
		if err := eg.Wait(); err != nil {
			return res, err
		}
	}
	logger.Info("deployment is running", "services", len(res.Services))
	return res, nil
}

func selectServices(rt settings.RuntimeSettings, names []string) ([]settings.ServiceSettings, error) {
	if len(names) == 0 {
		return rt.EnabledServices(), nil
	}
	out := make([]settings.ServiceSettings, 0, len(names))
	for _, name := range names {
		s, ok := rt.Service(name)
		if !ok {
			return nil, oerrors.NewConfigNotFoundError(fmt.Sprintf("unknown service %q", name), name,
				"Known services: hal deploy apply --help")
		}
		if !s.Enabled {
			return nil, oerrors.NewConfigNotFoundError(
				fmt.Sprintf("service %q is not enabled in deployment %s", name, rt.Deployment), name, "")
		}
		out = append(out, s)
	}
	return out, nil
}

// Tiers groups services into deploy order: bootstrap services by ascending
// priority, then the rest by ascending priority. Services in a tier share a
// priority and are sorted by name.
func Tiers(services []settings.ServiceSettings) [][]settings.ServiceSettings {
	sorted := append([]settings.ServiceSettings(nil), services...)
	sort.Slice(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.RequiredToBootstrap != b.RequiredToBootstrap {
			return a.RequiredToBootstrap
		}
		if a.DeployPriority != b.DeployPriority {
			return a.DeployPriority < b.DeployPriority
		}
		return a.Name < b.Name
	})

	var tiers [][]settings.ServiceSettings
	for i, s := range sorted {
		if i > 0 {
			prev := sorted[i-1]
			if prev.RequiredToBootstrap == s.RequiredToBootstrap && prev.DeployPriority == s.DeployPriority {
				tiers[len(tiers)-1] = append(tiers[len(tiers)-1], s)
				continue
			}
		}
		tiers = append(tiers, []settings.ServiceSettings{s})
	}
	return tiers
}

func (o *Orchestrator) deployService(ctx context.Context, rt settings.RuntimeSettings, svc settings.ServiceSettings, profiles []*profile.Profile) (ServiceResult, error) {
	res := ServiceResult{Service: svc.Name}
	svcLog := output.ServiceLogger(svc.Name)

	if svc.Artifact == "" {
		return res, fmt.Errorf("no image resolved for %s", svc.Name)
	}

	versions, err := o.client.ListVersions(ctx, svc.Location, svc.Name)
	if err != nil {
		return res, err
	}
	if !svc.Safe && len(versions) > 0 {
		res.Version = versions[len(versions)-1]
		res.Skipped = true
		svcLog.Info("already deployed, not redeploying", "version", cluster.VersionLabel(res.Version))
		if err := o.awaitHealthy(ctx, rt.Deployment, svc.Name, svc.Location, res.Version, replicaCount(svc), svcLog); err != nil {
			return res, err
		}
		o.emit(rt.Deployment, svc.Name, res.Version, StateRunning, nil)
		return res, nil
	}

	o.emit(rt.Deployment, svc.Name, 0, StateStaging, nil)
	units, err := Stage(rt.Deployment, svc, profiles, o.opts.ReadFile)
	if err != nil {
		return res, err
	}
	files := map[string][]byte{}
	for _, u := range units {
		if err := o.client.UpsertSecret(ctx, u.Secret); err != nil {
			return res, err
		}
		res.ConfigSources = append(res.ConfigSources, u.Source)
		for k, v := range u.Files() {
			files[k] = v
		}
	}
	svcLog.Debug("staged configuration", "units", len(units))

	res.Version = 1
	state := StateCreating
	if len(versions) > 0 {
		res.Version = versions[len(versions)-1] + 1
		state = StateUpdating
	}
	o.emit(rt.Deployment, svc.Name, res.Version, state, nil)
	spec := replicaSetSpec(rt.Deployment, svc, res.Version, res.ConfigSources)
	if err := o.client.CreateReplicaSet(ctx, spec); err != nil {
		return res, err
	}

	if err := o.awaitHealthy(ctx, rt.Deployment, svc.Name, svc.Location, res.Version, int(spec.Replicas), svcLog); err != nil {
		return res, err
	}
	if err := o.retarget(ctx, rt.Deployment, svc, res.Version); err != nil {
		return res, err
	}

	if !o.opts.SkipHistory {
		entry := inventory.Entry{
			Service: svc.Name,
			Version: res.Version,
			Digest:  inventory.ComputeConfigDigest(files),
		}
		for _, s := range res.ConfigSources {
			entry.ConfigSources = append(entry.ConfigSources, s.ID)
		}
		if err := inventory.Record(ctx, o.client, rt.Deployment, svc.Location, entry); err != nil {
			svcLog.Warn("could not record deployment history", "err", err)
		}
	}
	o.emit(rt.Deployment, svc.Name, res.Version, StateRunning, nil)
	return res, nil
}

func replicaCount(svc settings.ServiceSettings) int {
	if svc.Sizing.Replicas != nil {
		return *svc.Sizing.Replicas
	}
	return 1
}

// replicaSetSpec applies sizing: one replica unless configured, and
// resources only where set.
func replicaSetSpec(deployment string, svc settings.ServiceSettings, version int, sources []cluster.ConfigSource) cluster.ReplicaSetSpec {
	return cluster.ReplicaSetSpec{
		Service:        svc.Name,
		Version:        version,
		Namespace:      svc.Location,
		Image:          svc.Artifact,
		Port:           svc.Port,
		Replicas:       int32(replicaCount(svc)),
		Requests:       cluster.Resources(svc.Sizing.Requests),
		Limits:         cluster.Resources(svc.Sizing.Limits),
		Env:            svc.Env,
		ConfigSources:  sources,
		HealthEndpoint: svc.HealthEndpoint,
		Labels:         cluster.ServiceLabels(deployment, svc.Name),
	}
}

// retarget points the service's selector at version, retrying transient
// substrate failures.
func (o *Orchestrator) retarget(ctx context.Context, deployment string, svc settings.ServiceSettings, version int) error {
	spec := cluster.ServiceSpec{
		Name:      svc.Name,
		Namespace: svc.Location,
		Port:      svc.Port,
		Selector:  cluster.VersionSelector(svc.Name, version),
		Labels:    cluster.ServiceLabels(deployment, svc.Name),
	}
	return retry.OnError(o.opts.Backoff, retriable, func() error {
		if err := ctx.Err(); err != nil {
			return oerrors.NewInterruptedError("retargeting "+svc.Name, nil)
		}
		return o.client.UpsertService(ctx, spec)
	})
}

func retriable(err error) bool {
	return errors.Is(err, oerrors.ErrSubstrateUnavailable)
}

func (o *Orchestrator) emit(deployment, service string, version int, state State, err error) {
	versionLabel := ""
	if version > 0 {
		versionLabel = cluster.VersionLabel(version)
	}
	l := output.DeploymentLogger(deployment)
	if err != nil {
		l.Error(output.FormatServiceLine(service, versionLabel, state.status()), "err", err)
	} else {
		l.Info(output.FormatServiceLine(service, versionLabel, state.status()))
	}
	if o.opts.Observer != nil {
		o.opts.Observer.Observe(Event{
			Deployment: deployment,
			Service:    service,
			Version:    version,
			State:      state,
			Err:        err,
			Time:       o.opts.Now(),
		})
	}
}
