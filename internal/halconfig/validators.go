package halconfig

import (
	"fmt"
	"os"
	"regexp"
	"slices"
	"strings"
	"time"
	_ "time/tzdata"

	"k8s.io/apimachinery/pkg/api/resource"
	"k8s.io/apimachinery/pkg/util/validation"
	"k8s.io/client-go/tools/clientcmd"

	"github.com/opmodel/hal/internal/secrets"
)

var accountNamePattern = regexp.MustCompile(`^[a-z0-9]+([-a-z0-9]*[a-z0-9])?$`)

// DefaultRegistry returns a registry with the built-in validators.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	Register(r, validateDeployment)
	Register(r, validateProvider)
	Register(r, validateAccountName)
	Register(r, validateKubernetesAccount)
	Register(r, validateDockerRegistryAccount)
	Register(r, validateDeploymentEnvironment)
	Register(r, validateFeatures)
	Register(r, validateSlack)
	Register(r, validatePlugins)
	Register(r, validateLocalFiles)
	return r
}

func validateDeployment(d *DeploymentConfiguration, ps *ProblemSetBuilder, _ ValidateOptions) {
	for _, msg := range validation.IsDNS1123Label(d.Name) {
		ps.AddProblem(SeverityError, fmt.Sprintf("deployment name %q is invalid: %s", d.Name, msg), "name")
	}
	if d.Version == "" && d.DeploymentEnvironment != nil && d.DeploymentEnvironment.Type == DeploymentTypeDistributed {
		ps.AddProblem(SeverityError, "no version is set for this deployment", "version").
			SetRemediation("Set a version with: hal config version edit --version <version>")
	}
	if d.Timezone != "" {
		if _, err := time.LoadLocation(d.Timezone); err != nil {
			ps.AddProblem(SeverityError, fmt.Sprintf("timezone %q is not a known location", d.Timezone), "timezone")
		}
	}
}

func validateProvider(p ProviderNode, ps *ProblemSetBuilder, _ ValidateOptions) {
	names := p.AccountNames()
	if p.IsEnabled() && len(names) == 0 {
		ps.AddProblem(SeverityWarning, fmt.Sprintf("provider %s is enabled but has no accounts", p.NodeName())).
			SetRemediation(fmt.Sprintf("Add an account with: hal config provider %s account add <name>", p.NodeName()))
	}

	seen := make(map[string]bool, len(names))
	for _, name := range names {
		if seen[name] {
			ps.AddProblem(SeverityFatal, fmt.Sprintf("account name %q is used more than once", name), "accounts")
		}
		seen[name] = true
	}

	if primary := primaryField(p); primary != "" && !seen[primary] {
		ps.AddProblem(SeverityError,
			fmt.Sprintf("primary account %q does not name an account of this provider", primary), "primaryAccount").
			SetOptions(names...)
	}
}

// primaryField returns the stored primary account without resolving it.
func primaryField(p ProviderNode) string {
	for _, f := range Fields(p) {
		if f.Name == "primaryAccount" {
			return f.String()
		}
	}
	return ""
}

func validateAccountName(a Account, ps *ProblemSetBuilder, _ ValidateOptions) {
	if !accountNamePattern.MatchString(a.AccountName()) {
		ps.AddProblem(SeverityError,
			fmt.Sprintf("account name %q must match %s", a.AccountName(), accountNamePattern), "name")
	}
}

func validateKubernetesAccount(a *KubernetesAccount, ps *ProblemSetBuilder, opts ValidateOptions) {
	if len(a.DockerRegistries) == 0 {
		ps.AddProblem(SeverityError, "you have not specified any docker registries to deploy to", "dockerRegistries").
			SetRemediation("Add a docker registry that can be found in this deployment's dockerRegistry provider")
	}

	var registries []string
	if d, ok := ParentOfType[*DeploymentConfiguration](a); ok && d.Providers != nil && d.Providers.DockerRegistry != nil {
		registries = d.Providers.DockerRegistry.AccountNames()
	}
	seen := make(map[string]bool)
	for _, ref := range a.DockerRegistries {
		if seen[ref.AccountName] {
			ps.AddProblem(SeverityFatal,
				fmt.Sprintf("docker registry %q is referenced more than once", ref.AccountName), "dockerRegistries")
			continue
		}
		seen[ref.AccountName] = true
		if !slices.Contains(registries, ref.AccountName) {
			ps.AddProblem(SeverityError,
				fmt.Sprintf("docker registry %q is not configured", ref.AccountName), "dockerRegistries").
				SetRemediation("Add it with: hal config provider dockerRegistry account add " + ref.AccountName).
				SetOptions(registries...)
		}
	}

	if a.KubeconfigFile == "" || a.Context == "" {
		return
	}
	data, ok, err := opts.readFile(a.KubeconfigFile)
	if !ok {
		return
	}
	if err != nil {
		ps.AddProblem(SeverityError, fmt.Sprintf("unable to read kubeconfig %s: %v", a.KubeconfigFile, err), "kubeconfigFile")
		return
	}
	cfg, err := clientcmd.Load(data)
	if err != nil {
		ps.AddProblem(SeverityError, fmt.Sprintf("unable to parse kubeconfig %s: %v", a.KubeconfigFile, err), "kubeconfigFile")
		return
	}
	if _, found := cfg.Contexts[a.Context]; !found {
		var contexts []string
		for name := range cfg.Contexts {
			contexts = append(contexts, name)
		}
		slices.Sort(contexts)
		ps.AddProblem(SeverityError,
			fmt.Sprintf("context %q is not defined in %s", a.Context, a.KubeconfigFile), "context").
			SetOptions(contexts...)
	}
}

func validateDockerRegistryAccount(a *DockerRegistryAccount, ps *ProblemSetBuilder, _ ValidateOptions) {
	if a.Password != "" && a.PasswordFile != "" {
		ps.AddProblem(SeverityError, "you have provided both a password and a password file", "password")
	}
	hasPassword := a.Password != "" || a.PasswordFile != ""
	if hasPassword && a.Username == "" {
		ps.AddProblem(SeverityWarning, "you have supplied a password but no username", "username")
	}
	if !hasPassword && a.Username != "" {
		ps.AddProblem(SeverityWarning, "you have supplied a username but no password", "password")
	}
	if a.Password != "" && strings.TrimSpace(a.Password) != a.Password {
		ps.AddProblem(SeverityWarning, "your password contains leading or trailing whitespace", "password").
			SetRemediation("Make sure the whitespace is intended; it is sent to the registry as is")
	}
}

func validateDeploymentEnvironment(e *DeploymentEnvironment, ps *ProblemSetBuilder, opts ValidateOptions) {
	keys := make([]string, 0, len(e.CustomSizing))
	for k := range e.CustomSizing {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	for _, svc := range keys {
		sizing := e.CustomSizing[svc]
		field := "customSizing." + svc
		if len(opts.KnownServices) > 0 && !slices.Contains(opts.KnownServices, svc) {
			ps.AddProblem(SeverityWarning, fmt.Sprintf("custom sizing names unknown service %q", svc), field).
				SetOptions(opts.KnownServices...)
		}
		if sizing.Replicas != nil && *sizing.Replicas < 0 {
			ps.AddProblem(SeverityError, fmt.Sprintf("replicas for %s must not be negative", svc), field+".replicas")
		}
		for _, q := range []struct{ name, value string }{
			{"requests.cpu", sizing.Requests.CPU},
			{"requests.memory", sizing.Requests.Memory},
			{"limits.cpu", sizing.Limits.CPU},
			{"limits.memory", sizing.Limits.Memory},
		} {
			if q.value == "" {
				continue
			}
			if _, err := resource.ParseQuantity(q.value); err != nil {
				ps.AddProblem(SeverityError, fmt.Sprintf("%q is not a valid quantity", q.value), field+"."+q.name)
			}
		}
	}
}

func validateFeatures(f *Features, ps *ProblemSetBuilder, _ ValidateOptions) {
	if f.Fiat && !f.Auth {
		ps.AddProblem(SeverityError, "fiat requires authentication to be enabled", "fiat").
			SetRemediation("Enable auth with: hal config features edit --auth true")
	}
}

func validateSlack(s *SlackNotification, ps *ProblemSetBuilder, _ ValidateOptions) {
	if s.Enabled && s.Token == "" {
		ps.AddProblem(SeverityError, "slack is enabled but no token is set", "token")
	}
}

func validatePlugins(p *Plugins, ps *ProblemSetBuilder, _ ValidateOptions) {
	seen := make(map[string]bool)
	for _, plugin := range p.Plugins {
		if plugin == nil {
			continue
		}
		if seen[plugin.Name] {
			ps.AddProblem(SeverityError, fmt.Sprintf("plugin %q is defined more than once", plugin.Name), "plugins")
		}
		seen[plugin.Name] = true
	}
}

func validateLocalFiles(n Node, ps *ProblemSetBuilder, opts ValidateOptions) {
	if !opts.CheckLocalFiles {
		return
	}
	for _, f := range Fields(n) {
		if !f.Tags.LocalFile {
			continue
		}
		path := f.String()
		if path == "" || secrets.IsReference(path) {
			continue
		}
		if _, err := os.Stat(path); err != nil {
			ps.AddProblem(SeverityError, fmt.Sprintf("file %s cannot be read: %v", path, err), f.Name).
				SetRemediation("Make sure the file exists on the machine running hal")
		}
	}
}
