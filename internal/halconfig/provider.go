package halconfig

import (
	"fmt"

	oerrors "github.com/opmodel/hal/internal/errors"
)

// Account is implemented by every provider-specific account type.
type Account interface {
	Node

	// AccountName returns the account's unique name within its provider.
	AccountName() string

	// ProviderKind returns the provider type name. It must not depend on
	// receiver state so that it can be called on a nil pointer.
	ProviderKind() string
}

// ProviderNode is the type-erased view of a Provider.
type ProviderNode interface {
	Node

	IsEnabled() bool
	SetEnabled(bool)
	PrimaryAccountName() string
	GetPrimaryAccount() string
	ResolvePrimary()
	SetPrimaryAccount(name string) error
	AccountNames() []string
	AccountNodes() []Account
	RemoveAccount(name string) error
}

// Provider owns an ordered list of accounts of one kind. List order is
// insertion order and decides the fallback primary account.
type Provider[A Account] struct {
	nodeBase `yaml:"-"`

	Enabled        bool   `yaml:"enabled"`
	PrimaryAccount string `yaml:"primaryAccount,omitempty"`
	Accounts       []A    `yaml:"accounts"`
}

// NodeName returns the provider kind, e.g. "kubernetes".
func (p *Provider[A]) NodeName() string {
	var zero A
	return zero.ProviderKind()
}

func (p *Provider[A]) Children() []Node {
	out := make([]Node, 0, len(p.Accounts))
	for _, a := range p.Accounts {
		out = append(out, a)
	}
	return out
}

func (p *Provider[A]) matches(f NodeFilter) bool { return f.provider.match(p.NodeName()) }

func (p *Provider[A]) IsEnabled() bool   { return p.Enabled }
func (p *Provider[A]) SetEnabled(v bool) { p.Enabled = v }

// PrimaryAccountName computes the effective primary account without side
// effects: the recorded primary when it still names an account, otherwise
// the first account, or "" when there are none.
func (p *Provider[A]) PrimaryAccountName() string {
	if len(p.Accounts) == 0 {
		return ""
	}
	if p.PrimaryAccount != "" {
		if _, ok := p.Account(p.PrimaryAccount); ok {
			return p.PrimaryAccount
		}
	}
	return p.Accounts[0].AccountName()
}

// GetPrimaryAccount returns the effective primary account.
func (p *Provider[A]) GetPrimaryAccount() string {
	return p.PrimaryAccountName()
}

// ResolvePrimary records the effective primary account. Every account-list
// mutation in this package calls it, so the stored value is only stale when
// Accounts is edited directly.
func (p *Provider[A]) ResolvePrimary() {
	p.PrimaryAccount = p.PrimaryAccountName()
}

// SetPrimaryAccount records name as primary. The account must exist.
func (p *Provider[A]) SetPrimaryAccount(name string) error {
	if _, ok := p.Account(name); !ok {
		return p.accountNotFound(name)
	}
	p.PrimaryAccount = name
	return nil
}

// Account returns the account with the given name.
func (p *Provider[A]) Account(name string) (A, bool) {
	for _, a := range p.Accounts {
		if a.AccountName() == name {
			return a, true
		}
	}
	var zero A
	return zero, false
}

func (p *Provider[A]) AccountNames() []string {
	names := make([]string, 0, len(p.Accounts))
	for _, a := range p.Accounts {
		names = append(names, a.AccountName())
	}
	return names
}

func (p *Provider[A]) AccountNodes() []Account {
	out := make([]Account, 0, len(p.Accounts))
	for _, a := range p.Accounts {
		out = append(out, a)
	}
	return out
}

// AddAccount appends a new account. Names must be unique within the provider.
func (p *Provider[A]) AddAccount(a A) error {
	if _, ok := p.Account(a.AccountName()); ok {
		return oerrors.NewAmbiguousConfigError(
			fmt.Sprintf("account %q already exists", a.AccountName()),
			qualifiedOrKind(p))
	}
	p.Accounts = append(p.Accounts, a)
	a.setParent(p)
	Parentify(a)
	p.ResolvePrimary()
	return nil
}

// SetAccount replaces the account with a's name.
func (p *Provider[A]) SetAccount(a A) error {
	for i, existing := range p.Accounts {
		if existing.AccountName() == a.AccountName() {
			p.Accounts[i] = a
			a.setParent(p)
			Parentify(a)
			p.ResolvePrimary()
			return nil
		}
	}
	return p.accountNotFound(a.AccountName())
}

// RemoveAccount deletes the named account.
func (p *Provider[A]) RemoveAccount(name string) error {
	for i, a := range p.Accounts {
		if a.AccountName() == name {
			p.Accounts = append(p.Accounts[:i:i], p.Accounts[i+1:]...)
			p.ResolvePrimary()
			return nil
		}
	}
	return p.accountNotFound(name)
}

func (p *Provider[A]) accountNotFound(name string) error {
	return oerrors.NewConfigNotFoundError(
		fmt.Sprintf("no account named %q was found", name),
		qualifiedOrKind(p),
		fmt.Sprintf("Add the account with: hal config provider %s account add %s", p.NodeName(), name))
}

func qualifiedOrKind(n Node) string {
	if n.Parent() == nil {
		return n.NodeName()
	}
	return QualifiedName(n)
}

// Providers groups the cloud providers of a deployment.
type Providers struct {
	nodeBase `yaml:"-"`

	Kubernetes     *Provider[*KubernetesAccount]     `yaml:"kubernetes"`
	DockerRegistry *Provider[*DockerRegistryAccount] `yaml:"dockerRegistry"`
	AWS            *Provider[*AWSAccount]            `yaml:"aws"`
	Google         *Provider[*GoogleAccount]         `yaml:"google"`
}

func (p *Providers) NodeName() string { return "providers" }

func (p *Providers) Children() []Node {
	out := make([]Node, 0, 4)
	for _, provider := range p.All() {
		out = append(out, provider)
	}
	return out
}

func (p *Providers) matches(NodeFilter) bool { return true }
func (p *Providers) isContainer()            {}

// All returns the configured providers in declaration order.
func (p *Providers) All() []ProviderNode {
	var out []ProviderNode
	if p.Kubernetes != nil {
		out = append(out, p.Kubernetes)
	}
	if p.DockerRegistry != nil {
		out = append(out, p.DockerRegistry)
	}
	if p.AWS != nil {
		out = append(out, p.AWS)
	}
	if p.Google != nil {
		out = append(out, p.Google)
	}
	return out
}

func (p *Providers) fillDefaults() {
	if p.Kubernetes == nil {
		p.Kubernetes = &Provider[*KubernetesAccount]{}
	}
	if p.DockerRegistry == nil {
		p.DockerRegistry = &Provider[*DockerRegistryAccount]{}
	}
	if p.AWS == nil {
		p.AWS = &Provider[*AWSAccount]{}
	}
	if p.Google == nil {
		p.Google = &Provider[*GoogleAccount]{}
	}
}

// accountBase carries the fields shared by every account type.
type accountBase struct {
	nodeBase `yaml:"-"`

	Name                    string   `yaml:"name"`
	RequiredGroupMembership []string `yaml:"requiredGroupMembership,omitempty"`
}

func (a *accountBase) NodeName() string          { return a.Name }
func (a *accountBase) AccountName() string       { return a.Name }
func (a *accountBase) Children() []Node          { return nil }
func (a *accountBase) matches(f NodeFilter) bool { return f.account.match(a.Name) }

// DockerRegistryReference points a kubernetes account at a docker registry
// account, optionally narrowed to some namespaces.
type DockerRegistryReference struct {
	AccountName string   `yaml:"accountName"`
	Namespaces  []string `yaml:"namespaces,omitempty"`
}

// KubernetesAccount is a kubernetes cluster credential.
type KubernetesAccount struct {
	accountBase `yaml:",inline"`

	Context          string                    `yaml:"context,omitempty"`
	Namespaces       []string                  `yaml:"namespaces,omitempty"`
	OmitNamespaces   []string                  `yaml:"omitNamespaces,omitempty"`
	KubeconfigFile   string                    `yaml:"kubeconfigFile,omitempty" hal:"localfile,secretfile"`
	DockerRegistries []DockerRegistryReference `yaml:"dockerRegistries,omitempty"`
	ServiceAccount   bool                      `yaml:"serviceAccount,omitempty"`
}

func (*KubernetesAccount) ProviderKind() string { return "kubernetes" }

// NewKubernetesAccount returns an account with the given name.
func NewKubernetesAccount(name string) *KubernetesAccount {
	return &KubernetesAccount{accountBase: accountBase{Name: name}}
}

// DockerRegistryAccount is a docker registry credential.
type DockerRegistryAccount struct {
	accountBase `yaml:",inline"`

	Address              string   `yaml:"address"`
	Username             string   `yaml:"username,omitempty"`
	Password             string   `yaml:"password,omitempty" hal:"secret"`
	PasswordFile         string   `yaml:"passwordFile,omitempty" hal:"localfile,secretfile"`
	Email                string   `yaml:"email,omitempty"`
	Repositories         []string `yaml:"repositories,omitempty"`
	CacheIntervalSeconds int64    `yaml:"cacheIntervalSeconds,omitempty"`
}

func (*DockerRegistryAccount) ProviderKind() string { return "dockerRegistry" }

// NewDockerRegistryAccount returns an account with the given name.
func NewDockerRegistryAccount(name string) *DockerRegistryAccount {
	return &DockerRegistryAccount{accountBase: accountBase{Name: name}, CacheIntervalSeconds: 30}
}

// AWSAccount is an AWS account credential.
type AWSAccount struct {
	accountBase `yaml:",inline"`

	AccountID  string   `yaml:"accountId"`
	Regions    []string `yaml:"regions,omitempty"`
	AssumeRole string   `yaml:"assumeRole,omitempty"`
}

func (*AWSAccount) ProviderKind() string { return "aws" }

// NewAWSAccount returns an account with the given name.
func NewAWSAccount(name string) *AWSAccount {
	return &AWSAccount{accountBase: accountBase{Name: name}}
}

// GoogleAccount is a GCP project credential.
type GoogleAccount struct {
	accountBase `yaml:",inline"`

	Project  string `yaml:"project"`
	JSONPath string `yaml:"jsonPath,omitempty" hal:"localfile,secretfile"`
}

func (*GoogleAccount) ProviderKind() string { return "google" }

// NewGoogleAccount returns an account with the given name.
func NewGoogleAccount(name string) *GoogleAccount {
	return &GoogleAccount{accountBase: accountBase{Name: name}}
}
