// Package service is the query and mutation surface over a stored
// halconfig, and the entry point for deploying a deployment configuration.
package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	oerrors "github.com/opmodel/hal/internal/errors"
	"github.com/opmodel/hal/internal/halconfig"
	"github.com/opmodel/hal/internal/output"
	"github.com/opmodel/hal/internal/settings"
)

// Store loads and persists a halconfig.
type Store interface {
	Load() (*halconfig.Halconfig, error)
	Save(h *halconfig.Halconfig) error
}

// ConfigOptions configures a ConfigService.
type ConfigOptions struct {
	// StagingDir receives copies of local files on every update. Empty
	// disables staging.
	StagingDir string

	// Registry defaults to halconfig.DefaultRegistry().
	Registry *halconfig.Registry

	// KnownServices defaults to the service catalog.
	KnownServices []string

	CheckLocalFiles bool
	ReadSecretFile  func(ref string) ([]byte, error)
}

// ConfigService reads and edits deployment configurations. Updates are
// serialized.
type ConfigService struct {
	store Store
	opts  ConfigOptions

	mu sync.Mutex
}

// NewConfigService returns a service over store.
func NewConfigService(store Store, opts ConfigOptions) *ConfigService {
	if opts.Registry == nil {
		opts.Registry = halconfig.DefaultRegistry()
	}
	if opts.KnownServices == nil {
		opts.KnownServices = settings.Names()
	}
	return &ConfigService{store: store, opts: opts}
}

func (s *ConfigService) validateOptions() halconfig.ValidateOptions {
	return halconfig.ValidateOptions{
		CheckLocalFiles: s.opts.CheckLocalFiles,
		KnownServices:   s.opts.KnownServices,
		ReadSecretFile:  s.opts.ReadSecretFile,
	}
}

// Halconfig loads the stored halconfig.
func (s *ConfigService) Halconfig() (*halconfig.Halconfig, error) {
	return s.store.Load()
}

func (s *ConfigService) load(deployment string) (*halconfig.Halconfig, string, error) {
	h, err := s.store.Load()
	if err != nil {
		return nil, "", err
	}
	return h, halconfig.ResolveDeploymentName(h, deployment), nil
}

// Deployment returns the named deployment, or the current one when
// deployment is empty.
func (s *ConfigService) Deployment(deployment string) (*halconfig.DeploymentConfiguration, error) {
	h, name, err := s.load(deployment)
	if err != nil {
		return nil, err
	}
	return halconfig.GetDeployment(h, name)
}

// Provider returns a provider of a deployment.
func (s *ConfigService) Provider(deployment, provider string) (halconfig.ProviderNode, error) {
	h, name, err := s.load(deployment)
	if err != nil {
		return nil, err
	}
	return halconfig.GetProvider(h, name, provider)
}

// Account returns an account of a provider.
func (s *ConfigService) Account(deployment, provider, account string) (halconfig.Account, error) {
	h, name, err := s.load(deployment)
	if err != nil {
		return nil, err
	}
	return halconfig.GetAccount(h, name, provider, account)
}

// Features returns the feature flags of a deployment.
func (s *ConfigService) Features(deployment string) (*halconfig.Features, error) {
	h, name, err := s.load(deployment)
	if err != nil {
		return nil, err
	}
	return halconfig.GetFeatures(h, name)
}

// Validate runs every validator over a deployment. Problems are returned,
// never raised; the error is for load and lookup failures.
func (s *ConfigService) Validate(deployment string) (*halconfig.ProblemSet, error) {
	h, name, err := s.load(deployment)
	if err != nil {
		return nil, err
	}
	if _, err := halconfig.GetDeployment(h, name); err != nil {
		return nil, err
	}
	return halconfig.Validate(h, halconfig.FilterDeployment(name), s.opts.Registry, s.validateOptions()), nil
}

// Diff compares the stored deployment against the same-named deployment
// of baseline. A nil diff means they are equal.
func (s *ConfigService) Diff(deployment string, baseline *halconfig.Halconfig) (*halconfig.NodeDiff, error) {
	h, name, err := s.load(deployment)
	if err != nil {
		return nil, err
	}
	current, err := halconfig.GetDeployment(h, name)
	if err != nil {
		return nil, err
	}
	older, err := halconfig.GetDeployment(baseline, name)
	if err != nil {
		return nil, err
	}
	return halconfig.Diff(current, older)
}

// --- Updates ---

// Mutation edits a working copy of a deployment.
type Mutation func(d *halconfig.DeploymentConfiguration) error

// UpdateOptions tunes one update.
type UpdateOptions struct {
	// Severity is the blocking threshold. Zero means SeverityError.
	Severity halconfig.Severity
}

func (o UpdateOptions) threshold() halconfig.Severity {
	if o.Severity == halconfig.SeverityNone {
		return halconfig.SeverityError
	}
	return o.Severity
}

// UpdateResult is the outcome of an update. It is returned alongside a
// validation error so the caller can show the problems.
type UpdateResult struct {
	Diff       *halconfig.NodeDiff
	Problems   *halconfig.ProblemSet
	Deployment *halconfig.DeploymentConfiguration
	Staged     []halconfig.StagedFile
}

// Update applies mutate to a copy of the deployment and persists the
// result. Nothing is written when the mutation fails, changes nothing
// (ErrNoOp) or leaves problems at or above the threshold (ErrValidation).
func (s *ConfigService) Update(ctx context.Context, deployment string, mutate Mutation, opts UpdateOptions) (*UpdateResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, oerrors.NewInterruptedError("update cancelled", map[string]string{"deployment": deployment})
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	h, name, err := s.load(deployment)
	if err != nil {
		return nil, err
	}
	original, err := halconfig.GetDeployment(h, name)
	if err != nil {
		return nil, err
	}
	working, err := halconfig.Clone(h)
	if err != nil {
		return nil, err
	}
	d, err := halconfig.GetDeployment(working, name)
	if err != nil {
		return nil, err
	}

	if err := mutate(d); err != nil {
		return nil, err
	}
	working.Parentify()
	for _, p := range d.Providers.All() {
		p.ResolvePrimary()
	}

	diff, err := halconfig.Diff(d, original)
	if err != nil {
		return nil, err
	}
	if diff == nil {
		return nil, oerrors.Wrap(oerrors.ErrNoOp, fmt.Sprintf("deployment %s is unchanged", name))
	}

	res := &UpdateResult{Diff: diff, Deployment: d}
	res.Problems = halconfig.Validate(working, halconfig.FilterDeployment(name), s.opts.Registry, s.validateOptions())
	if err := res.Problems.Err(opts.threshold()); err != nil {
		return res, err
	}

	if s.opts.StagingDir != "" {
		staged, err := halconfig.StageLocalFiles(d, s.opts.StagingDir)
		if err != nil {
			return res, err
		}
		res.Staged = staged
	}
	if err := s.store.Save(working); err != nil {
		return res, err
	}
	output.Debug("updated deployment", "deployment", name, "location", diff.Location(), "staged", len(res.Staged))
	return res, nil
}

// SetFeatures replaces every feature flag of a deployment.
func (s *ConfigService) SetFeatures(ctx context.Context, deployment string, features halconfig.Features, opts UpdateOptions) (*UpdateResult, error) {
	return s.Update(ctx, deployment, func(d *halconfig.DeploymentConfiguration) error {
		features := features
		d.Features = &features
		return nil
	}, opts)
}

// SetFeature sets one feature flag by its YAML name, e.g. "chaos".
func (s *ConfigService) SetFeature(ctx context.Context, deployment, name string, enabled bool, opts UpdateOptions) (*UpdateResult, error) {
	return s.EditFeatures(ctx, deployment, map[string]bool{name: enabled}, opts)
}

// EditFeatures sets several feature flags, keyed by YAML name, in one
// update.
func (s *ConfigService) EditFeatures(ctx context.Context, deployment string, flags map[string]bool, opts UpdateOptions) (*UpdateResult, error) {
	names := make([]string, 0, len(flags))
	for name := range flags {
		names = append(names, name)
	}
	sort.Strings(names)

	return s.Update(ctx, deployment, func(d *halconfig.DeploymentConfiguration) error {
		if d.Features == nil {
			d.Features = &halconfig.Features{}
		}
		fields := make(map[string]halconfig.Field)
		var valid []string
		for _, f := range halconfig.Fields(d.Features) {
			fields[f.Name] = f
			valid = append(valid, f.Name)
		}
		for _, name := range names {
			f, ok := fields[name]
			if !ok {
				return &oerrors.DetailError{
					Type:     "unknown feature",
					Message:  fmt.Sprintf("no feature named %q", name),
					Location: halconfig.QualifiedName(d) + ".features",
					Hint:     "Valid features: " + strings.Join(valid, ", "),
					Cause:    oerrors.ErrValidation,
				}
			}
			f.SetBool(flags[name])
		}
		return nil
	}, opts)
}

// AddAccount adds an account to the provider matching its kind.
func (s *ConfigService) AddAccount(ctx context.Context, deployment string, account halconfig.Account, opts UpdateOptions) (*UpdateResult, error) {
	return s.Update(ctx, deployment, func(d *halconfig.DeploymentConfiguration) error {
		switch a := account.(type) {
		case *halconfig.KubernetesAccount:
			return d.Providers.Kubernetes.AddAccount(a)
		case *halconfig.DockerRegistryAccount:
			return d.Providers.DockerRegistry.AddAccount(a)
		case *halconfig.AWSAccount:
			return d.Providers.AWS.AddAccount(a)
		case *halconfig.GoogleAccount:
			return d.Providers.Google.AddAccount(a)
		default:
			return oerrors.Wrap(oerrors.ErrTypeMismatch, fmt.Sprintf("unsupported account type %T", account))
		}
	}, opts)
}

// DeleteAccount removes an account from a provider.
func (s *ConfigService) DeleteAccount(ctx context.Context, deployment, provider, account string, opts UpdateOptions) (*UpdateResult, error) {
	return s.Update(ctx, deployment, func(d *halconfig.DeploymentConfiguration) error {
		p, err := providerOf(d, provider)
		if err != nil {
			return err
		}
		return p.RemoveAccount(account)
	}, opts)
}

// SetProviderEnabled enables or disables a provider.
func (s *ConfigService) SetProviderEnabled(ctx context.Context, deployment, provider string, enabled bool, opts UpdateOptions) (*UpdateResult, error) {
	return s.Update(ctx, deployment, func(d *halconfig.DeploymentConfiguration) error {
		p, err := providerOf(d, provider)
		if err != nil {
			return err
		}
		p.SetEnabled(enabled)
		return nil
	}, opts)
}

// EnvironmentEdit lists the deployment environment fields to change. Nil
// fields are left alone.
type EnvironmentEdit struct {
	Size           *halconfig.Size
	Type           *halconfig.DeploymentType
	Location       *string
	AccountName    *string
	UpdateVersions *bool
}

// EditDeploymentEnvironment applies edit to a deployment's environment.
func (s *ConfigService) EditDeploymentEnvironment(ctx context.Context, deployment string, edit EnvironmentEdit, opts UpdateOptions) (*UpdateResult, error) {
	return s.Update(ctx, deployment, func(d *halconfig.DeploymentConfiguration) error {
		if d.DeploymentEnvironment == nil {
			d.DeploymentEnvironment = &halconfig.DeploymentEnvironment{}
		}
		env := d.DeploymentEnvironment
		if edit.Size != nil {
			env.Size = *edit.Size
		}
		if edit.Type != nil {
			env.Type = *edit.Type
		}
		if edit.Location != nil {
			env.Location = *edit.Location
		}
		if edit.AccountName != nil {
			env.AccountName = *edit.AccountName
		}
		if edit.UpdateVersions != nil {
			env.UpdateVersions = *edit.UpdateVersions
		}
		return nil
	}, opts)
}

// SetVersion sets the release version a deployment installs.
func (s *ConfigService) SetVersion(ctx context.Context, deployment, version string, opts UpdateOptions) (*UpdateResult, error) {
	return s.Update(ctx, deployment, func(d *halconfig.DeploymentConfiguration) error {
		d.Version = version
		return nil
	}, opts)
}

func providerOf(d *halconfig.DeploymentConfiguration, name string) (halconfig.ProviderNode, error) {
	var names []string
	for _, p := range d.Providers.All() {
		if p.NodeName() == name {
			return p, nil
		}
		names = append(names, p.NodeName())
	}
	return nil, oerrors.NewConfigNotFoundError(
		fmt.Sprintf("no provider named %q", name),
		halconfig.QualifiedName(d)+".providers",
		"Valid providers: "+strings.Join(names, ", "))
}
