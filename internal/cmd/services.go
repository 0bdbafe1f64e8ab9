package cmd

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/opmodel/hal/internal/artifacts"
	"github.com/opmodel/hal/internal/cluster"
	"github.com/opmodel/hal/internal/config"
	"github.com/opmodel/hal/internal/halconfig"
	"github.com/opmodel/hal/internal/kubernetes"
	"github.com/opmodel/hal/internal/orchestrator"
	"github.com/opmodel/hal/internal/output"
	"github.com/opmodel/hal/internal/secrets"
	"github.com/opmodel/hal/internal/service"
)

// services bundles what a command runs against. Close releases the secret
// session and every cluster session.
type services struct {
	cfg      *config.Config
	resolved *config.ResolvedConfig

	secrets *secrets.Session
	configs *service.ConfigService
	deploy  *service.DeployService

	// metrics holds the orchestrator collectors of this run.
	metrics *prometheus.Registry
}

// newServices builds the config service and, when withDeploy is set, the
// deploy service with its artifact registry and cluster sessions.
func newServices(ctx context.Context, withDeploy bool) (*services, error) {
	s := &services{cfg: GetConfig(), resolved: GetResolvedConfig()}
	if s.resolved == nil {
		resolved, err := config.ResolveAll(config.ResolveOptions{Config: s.cfg})
		if err != nil {
			return nil, err
		}
		s.resolved = resolved
	}
	stagingDir := s.resolved.StagingDir.Value

	var resolver *secrets.Resolver
	if len(s.cfg.Secrets.Providers) > 0 {
		r, err := secrets.NewResolver(s.cfg.Secrets, configDir())
		if err != nil {
			return nil, fmt.Errorf("configuring secret providers: %w", err)
		}
		resolver = r
	}
	s.secrets = secrets.NewSession(resolver, filepath.Join(stagingDir, "secrets"))

	s.configs = service.NewConfigService(halconfig.NewFileStore(s.resolved.Halconfig.Value), service.ConfigOptions{
		StagingDir:      stagingDir,
		CheckLocalFiles: true,
		ReadSecretFile: func(ref string) ([]byte, error) {
			return s.secrets.ReadFile(ctx, ref)
		},
	})
	if !withDeploy {
		return s, nil
	}

	source, err := newArtifactSource(ctx, s.cfg.Registry)
	if err != nil {
		s.Close()
		return nil, err
	}
	s.metrics = prometheus.NewRegistry()
	s.deploy = service.NewDeployService(s.configs,
		orchestrator.NewSessionManager(s.clusterFor),
		source,
		service.DeployOptions{
			Secrets: s.secrets,
			Orchestrator: orchestrator.Options{
				PollInterval: s.cfg.Deploy.PollInterval,
				Timeout:      s.cfg.Deploy.Timeout,
				Metrics:      orchestrator.NewMetrics(s.metrics),
			},
		})
	return s, nil
}

// Close releases every session.
func (s *services) Close() {
	if s.deploy != nil {
		if err := s.deploy.Close(); err != nil {
			output.Debug("closing cluster sessions", "error", err)
		}
	}
	if err := s.secrets.Close(); err != nil {
		output.Warn("removing decrypted secret files", "error", err)
	}
}

// WriteMetrics writes the collected metrics in the Prometheus text format,
// for a node_exporter textfile collector.
func (s *services) WriteMetrics(path string) error {
	if path == "" || s.metrics == nil {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, s.metrics); err != nil {
		return fmt.Errorf("writing metrics: %w", err)
	}
	output.Debug("metrics written", "path", path)
	return nil
}

func newArtifactSource(ctx context.Context, cfg config.RegistryConfig) (*artifacts.Resolver, error) {
	switch cfg.Type {
	case config.RegistryS3:
		reg, err := artifacts.NewS3Registry(ctx, artifacts.S3Options{
			Bucket:   cfg.Bucket,
			Prefix:   cfg.Prefix,
			Region:   cfg.Region,
			Endpoint: cfg.Endpoint,
		})
		if err != nil {
			return nil, err
		}
		return artifacts.NewResolver(reg), nil
	case config.RegistryDir, "":
		return artifacts.NewResolver(artifacts.NewDirRegistry(cfg.Path)), nil
	default:
		return nil, fmt.Errorf("unknown registry type %q", cfg.Type)
	}
}

// clusterFor connects to the cluster of a deployment. The deployment
// environment's kubernetes account supplies the kubeconfig and context
// unless they were given as flags.
func (s *services) clusterFor(ctx context.Context, deployment string) (cluster.Client, error) {
	opts := kubernetes.ClientOptions{
		Kubeconfig:   s.resolved.Kubeconfig.Value,
		Context:      s.resolved.Context.Value,
		WarningLevel: s.cfg.Kubernetes.APIWarnings,
	}

	d, err := s.configs.Deployment(deployment)
	if err != nil {
		return nil, err
	}
	if account := deploymentAccount(d); account != nil {
		if account.KubeconfigFile != "" && s.resolved.Kubeconfig.Source != config.SourceFlag {
			path, err := s.localFile(ctx, account.KubeconfigFile)
			if err != nil {
				return nil, fmt.Errorf("kubeconfig of account %s: %w", account.Name, err)
			}
			opts.Kubeconfig = path
		}
		if account.Context != "" && s.resolved.Context.Source != config.SourceFlag {
			opts.Context = account.Context
		}
	}
	output.Debug("connecting to cluster", "deployment", d.Name, "kubeconfig", opts.Kubeconfig, "context", opts.Context)

	c, err := kubernetes.NewCluster(opts)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// deploymentAccount returns the kubernetes account services are deployed
// with: the environment's account, or the provider's primary account.
func deploymentAccount(d *halconfig.DeploymentConfiguration) *halconfig.KubernetesAccount {
	if d.Providers == nil || d.Providers.Kubernetes == nil {
		return nil
	}
	name := ""
	if d.DeploymentEnvironment != nil {
		name = d.DeploymentEnvironment.AccountName
	}
	if name == "" {
		name = d.Providers.Kubernetes.GetPrimaryAccount()
	}
	account, ok := d.Providers.Kubernetes.Account(name)
	if !ok {
		return nil
	}
	return account
}

// localFile returns a readable path for a local-file field, decrypting
// secret references into the staging directory.
func (s *services) localFile(ctx context.Context, value string) (string, error) {
	if !secrets.IsReference(value) {
		return config.ExpandPath(value)
	}
	f, err := s.secrets.DecryptFile(ctx, value)
	if err != nil {
		return "", err
	}
	return f.Path, nil
}
