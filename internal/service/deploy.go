package service

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"

	"github.com/opmodel/hal/internal/cluster"
	"github.com/opmodel/hal/internal/halconfig"
	"github.com/opmodel/hal/internal/inventory"
	"github.com/opmodel/hal/internal/orchestrator"
	"github.com/opmodel/hal/internal/output"
	"github.com/opmodel/hal/internal/profile"
	"github.com/opmodel/hal/internal/secrets"
	"github.com/opmodel/hal/internal/settings"
)

// ArtifactSource resolves images and profile templates for a release.
type ArtifactSource interface {
	settings.ImageResolver
	profile.TemplateSource
}

// DeployOptions configures a DeployService.
type DeployOptions struct {
	// Secrets resolves secret references in generated profiles. The caller
	// owns and closes it.
	Secrets      *secrets.Session
	Orchestrator orchestrator.Options
}

// DeployService turns a stored deployment configuration into running
// services.
type DeployService struct {
	configs   *ConfigService
	sessions  *orchestrator.SessionManager
	artifacts ArtifactSource
	generator *profile.Generator
	opts      orchestrator.Options
}

// NewDeployService returns a deploy service.
func NewDeployService(configs *ConfigService, sessions *orchestrator.SessionManager, artifacts ArtifactSource, opts DeployOptions) *DeployService {
	return &DeployService{
		configs:   configs,
		sessions:  sessions,
		artifacts: artifacts,
		generator: profile.NewGenerator(artifacts, opts.Secrets),
		opts:      opts.Orchestrator,
	}
}

// Prepared is a validated deployment with its runtime settings and
// generated profiles.
type Prepared struct {
	Deployment *halconfig.DeploymentConfiguration
	Runtime    settings.RuntimeSettings
	Profiles   map[string][]*profile.Profile
	Problems   *halconfig.ProblemSet
}

// Prepare validates a deployment and generates the profiles of services,
// or of every enabled service when services is empty. Blocking problems
// are returned with a validation error.
func (s *DeployService) Prepare(ctx context.Context, deployment string, services []string) (*Prepared, error) {
	d, err := s.configs.Deployment(deployment)
	if err != nil {
		return nil, err
	}
	problems, err := s.configs.Validate(d.Name)
	if err != nil {
		return nil, err
	}
	p := &Prepared{Deployment: d, Problems: problems}
	if err := problems.Err(halconfig.SeverityError); err != nil {
		return p, err
	}

	rt, err := settings.BuildRuntime(ctx, d, s.artifacts)
	if err != nil {
		return p, err
	}
	p.Runtime = rt
	p.Profiles, err = s.generator.GenerateAll(ctx, d, rt, services)
	if err != nil {
		return p, err
	}
	return p, nil
}

// Generate writes the profiles of a deployment under dir, one directory per
// service, and returns the written paths in order. Decrypted secret files
// and the local files a profile refers to are written next to it, so the
// directory holds everything the service would be given.
func (s *DeployService) Generate(ctx context.Context, deployment string, services []string, dir string) ([]string, error) {
	p, err := s.Prepare(ctx, deployment, services)
	if err != nil {
		return nil, err
	}
	readFile := s.opts.ReadFile
	if readFile == nil {
		readFile = os.ReadFile
	}

	var written []string
	write := func(svc, name string, data []byte, mode os.FileMode) error {
		dst := filepath.Join(dir, svc, name)
		if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", filepath.Dir(dst), err)
		}
		if err := os.WriteFile(dst, data, mode); err != nil {
			return fmt.Errorf("writing %s: %w", dst, err)
		}
		written = append(written, dst)
		return nil
	}

	for svc, profiles := range p.Profiles {
		done := make(map[string]bool)
		for _, pr := range profiles {
			if err := write(svc, path.Base(pr.OutputFile), []byte(pr.Contents), pr.Mode()); err != nil {
				return written, err
			}
			for name, data := range pr.DecryptedFiles {
				if done[name] {
					continue
				}
				done[name] = true
				if err := write(svc, name, data, 0o600); err != nil {
					return written, err
				}
			}
			for _, f := range pr.RequiredFiles {
				name := filepath.Base(f)
				if done[name] {
					continue
				}
				done[name] = true
				data, err := readFile(f)
				if err != nil {
					return written, fmt.Errorf("reading required file %s of %s: %w", f, svc, err)
				}
				if err := write(svc, name, data, 0o600); err != nil {
					return written, err
				}
			}
		}
	}
	sort.Strings(written)
	output.Debug("generated profiles", "deployment", p.Deployment.Name, "files", len(written), "dir", dir)
	return written, nil
}

func (s *DeployService) orchestratorFor(ctx context.Context, deployment string) (*orchestrator.Orchestrator, error) {
	sess, err := s.sessions.Open(ctx, deployment)
	if err != nil {
		return nil, err
	}
	return orchestrator.New(sess.Client, s.opts), nil
}

// Apply deploys services, or every enabled service when services is empty.
func (s *DeployService) Apply(ctx context.Context, deployment string, services []string) (*orchestrator.Result, error) {
	p, err := s.Prepare(ctx, deployment, services)
	if err != nil {
		return nil, err
	}
	o, err := s.orchestratorFor(ctx, p.Deployment.Name)
	if err != nil {
		return nil, err
	}
	return o.Deploy(ctx, orchestrator.Plan{Runtime: p.Runtime, Profiles: p.Profiles, Services: services})
}

// runtime builds settings without resolving images. Rollback and delete
// only act on what is already in the cluster.
func (s *DeployService) runtime(ctx context.Context, deployment string) (*halconfig.DeploymentConfiguration, settings.RuntimeSettings, error) {
	d, err := s.configs.Deployment(deployment)
	if err != nil {
		return nil, settings.RuntimeSettings{}, err
	}
	rt, err := settings.BuildRuntime(ctx, d, nil)
	return d, rt, err
}

// Rollback removes version of a service and returns the version now
// serving.
func (s *DeployService) Rollback(ctx context.Context, deployment, service string, version int) (int, error) {
	d, rt, err := s.runtime(ctx, deployment)
	if err != nil {
		return 0, err
	}
	o, err := s.orchestratorFor(ctx, d.Name)
	if err != nil {
		return 0, err
	}
	return o.Rollback(ctx, rt, service, version)
}

// Delete removes services, or every enabled service when services is
// empty.
func (s *DeployService) Delete(ctx context.Context, deployment string, services []string) error {
	d, rt, err := s.runtime(ctx, deployment)
	if err != nil {
		return err
	}
	o, err := s.orchestratorFor(ctx, d.Name)
	if err != nil {
		return err
	}
	return o.Delete(ctx, rt, services)
}

// History returns the recorded promotions of a deployment, newest first.
func (s *DeployService) History(ctx context.Context, deployment string) ([]inventory.Entry, error) {
	d, err := s.configs.Deployment(deployment)
	if err != nil {
		return nil, err
	}
	sess, err := s.sessions.Open(ctx, d.Name)
	if err != nil {
		return nil, err
	}
	return inventory.Entries(ctx, sess.Client, d.Name, d.DeploymentEnvironment.ResolvedLocation())
}

// Connect opens the control-plane proxy of a deployment's cluster. The
// proxy lives until Close.
func (s *DeployService) Connect(ctx context.Context, deployment string) (cluster.Proxy, error) {
	d, err := s.configs.Deployment(deployment)
	if err != nil {
		return nil, err
	}
	sess, err := s.sessions.Open(ctx, d.Name)
	if err != nil {
		return nil, err
	}
	return sess.Proxy(ctx)
}

// Close closes every open cluster session.
func (s *DeployService) Close() error {
	return s.sessions.CloseAll()
}
