package halconfig

// Halconfig is the document root. It holds every named deployment.
type Halconfig struct {
	nodeBase `yaml:"-"`

	HalyardVersion           string                     `yaml:"halyardVersion,omitempty"`
	CurrentDeployment        string                     `yaml:"currentDeployment,omitempty"`
	DeploymentConfigurations []*DeploymentConfiguration `yaml:"deploymentConfigurations"`
}

func (h *Halconfig) NodeName() string { return "halconfig" }

func (h *Halconfig) Children() []Node {
	out := make([]Node, 0, len(h.DeploymentConfigurations))
	for _, d := range h.DeploymentConfigurations {
		if d != nil {
			out = append(out, d)
		}
	}
	return out
}

func (h *Halconfig) matches(NodeFilter) bool { return true }
func (h *Halconfig) isContainer()            {}

// DefaultDeploymentName is used when a new halconfig is created.
const DefaultDeploymentName = "default"

// NewHalconfig returns a halconfig with a single empty default deployment.
func NewHalconfig() *Halconfig {
	h := &Halconfig{
		CurrentDeployment:        DefaultDeploymentName,
		DeploymentConfigurations: []*DeploymentConfiguration{NewDeploymentConfiguration(DefaultDeploymentName)},
	}
	Normalize(h)
	return h
}

// DeploymentConfiguration describes one named deployment.
type DeploymentConfiguration struct {
	nodeBase `yaml:"-"`

	Name     string `yaml:"name"`
	Version  string `yaml:"version"`
	Timezone string `yaml:"timezone,omitempty"`

	Providers             *Providers             `yaml:"providers"`
	DeploymentEnvironment *DeploymentEnvironment `yaml:"deploymentEnvironment"`
	Features              *Features              `yaml:"features"`
	Notifications         *Notifications         `yaml:"notifications"`
	Security              *Security              `yaml:"security"`
	Plugins               *Plugins               `yaml:"plugins"`
	Artifacts             *Artifacts             `yaml:"artifacts"`
}

// NewDeploymentConfiguration returns a deployment with every section present.
func NewDeploymentConfiguration(name string) *DeploymentConfiguration {
	d := &DeploymentConfiguration{Name: name, Timezone: "America/Los_Angeles"}
	d.fillDefaults()
	return d
}

func (d *DeploymentConfiguration) NodeName() string { return d.Name }

func (d *DeploymentConfiguration) Children() []Node {
	var out []Node
	if d.Providers != nil {
		out = append(out, d.Providers)
	}
	if d.DeploymentEnvironment != nil {
		out = append(out, d.DeploymentEnvironment)
	}
	if d.Features != nil {
		out = append(out, d.Features)
	}
	if d.Notifications != nil {
		out = append(out, d.Notifications)
	}
	if d.Security != nil {
		out = append(out, d.Security)
	}
	if d.Plugins != nil {
		out = append(out, d.Plugins)
	}
	if d.Artifacts != nil {
		out = append(out, d.Artifacts)
	}
	return out
}

func (d *DeploymentConfiguration) matches(f NodeFilter) bool { return f.deployment.match(d.Name) }

func (d *DeploymentConfiguration) fillDefaults() {
	if d.Providers == nil {
		d.Providers = &Providers{}
	}
	d.Providers.fillDefaults()
	if d.DeploymentEnvironment == nil {
		d.DeploymentEnvironment = &DeploymentEnvironment{}
	}
	if d.DeploymentEnvironment.Size == "" {
		d.DeploymentEnvironment.Size = SizeSmall
	}
	if d.DeploymentEnvironment.Type == "" {
		d.DeploymentEnvironment.Type = DeploymentTypeDistributed
	}
	if d.Features == nil {
		d.Features = &Features{}
	}
	if d.Notifications == nil {
		d.Notifications = &Notifications{}
	}
	if d.Notifications.Slack == nil {
		d.Notifications.Slack = &SlackNotification{}
	}
	if d.Security == nil {
		d.Security = &Security{}
	}
	d.Security.fillDefaults()
	if d.Plugins == nil {
		d.Plugins = &Plugins{}
	}
	if d.Artifacts == nil {
		d.Artifacts = &Artifacts{}
	}
	if d.Artifacts.HTTP == nil {
		d.Artifacts.HTTP = &HTTPArtifactProvider{}
	}
	if d.Artifacts.GCS == nil {
		d.Artifacts.GCS = &GCSArtifactProvider{}
	}
}

// Normalize fills missing sections with defaults, wires parents and settles
// every provider's primary account. Stores call it after decoding.
func Normalize(h *Halconfig) {
	for _, d := range h.DeploymentConfigurations {
		if d != nil {
			d.fillDefaults()
		}
	}
	Parentify(h)
}

// Size is a deployment size class.
type Size string

const (
	SizeSmall  Size = "SMALL"
	SizeMedium Size = "MEDIUM"
	SizeLarge  Size = "LARGE"
)

// DeploymentType is the strategy used to install services.
type DeploymentType string

const (
	DeploymentTypeDistributed DeploymentType = "Distributed"
	DeploymentTypeLocalDebian DeploymentType = "LocalDebian"
	DeploymentTypeBakeDebian  DeploymentType = "BakeDebian"
)

// DefaultLocation is the namespace used when no location is configured.
const DefaultLocation = "spinnaker"

// DeploymentEnvironment describes where and how services run.
type DeploymentEnvironment struct {
	nodeBase `yaml:"-"`

	Size           Size                    `yaml:"size"`
	Type           DeploymentType          `yaml:"type"`
	AccountName    string                  `yaml:"accountName,omitempty"`
	Location       string                  `yaml:"location,omitempty"`
	UpdateVersions bool                    `yaml:"updateVersions"`
	CustomSizing   map[string]CustomSizing `yaml:"customSizing,omitempty"`
	Consul         *Consul                 `yaml:"consul,omitempty"`
	Vault          *Vault                  `yaml:"vault,omitempty"`
}

func (e *DeploymentEnvironment) NodeName() string { return "deploymentEnvironment" }
func (e *DeploymentEnvironment) Children() []Node { return nil }

func (e *DeploymentEnvironment) matches(f NodeFilter) bool {
	return f.deploymentEnvironment.match(e.NodeName())
}

// ResolvedLocation returns the configured location or DefaultLocation.
func (e *DeploymentEnvironment) ResolvedLocation() string {
	if e == nil || e.Location == "" {
		return DefaultLocation
	}
	return e.Location
}

// CustomSizing overrides the size-tier defaults for one service. Every field
// is optional; unset fields fall through to the tier.
type CustomSizing struct {
	Replicas *int         `yaml:"replicas,omitempty"`
	Requests ResourceSpec `yaml:"requests,omitempty"`
	Limits   ResourceSpec `yaml:"limits,omitempty"`
}

// ResourceSpec holds CPU and memory quantities in Kubernetes notation.
type ResourceSpec struct {
	CPU    string `yaml:"cpu,omitempty"`
	Memory string `yaml:"memory,omitempty"`
}

// Consul configures service discovery.
type Consul struct {
	Enabled bool   `yaml:"enabled"`
	Address string `yaml:"address,omitempty"`
}

// Vault configures the secret backend used by deployed services.
type Vault struct {
	Enabled bool   `yaml:"enabled"`
	Address string `yaml:"address,omitempty"`
}

// Features holds feature flags rendered into every service profile.
type Features struct {
	nodeBase `yaml:"-"`

	Auth       bool `yaml:"auth"`
	Fiat       bool `yaml:"fiat"`
	Chaos      bool `yaml:"chaos"`
	EntityTags bool `yaml:"entityTags"`
	Jobs       bool `yaml:"jobs"`

	PipelineTemplates *bool `yaml:"pipelineTemplates,omitempty"`
	Artifacts         *bool `yaml:"artifacts,omitempty"`
	MineCanary        *bool `yaml:"mineCanary,omitempty"`
}

func (f *Features) NodeName() string               { return "features" }
func (f *Features) Children() []Node               { return nil }
func (f *Features) matches(filter NodeFilter) bool { return filter.features.match(f.NodeName()) }

// Notifications groups the notification channels.
type Notifications struct {
	nodeBase `yaml:"-"`

	Slack *SlackNotification `yaml:"slack"`
}

func (n *Notifications) NodeName() string { return "notification" }

func (n *Notifications) Children() []Node {
	if n.Slack == nil {
		return nil
	}
	return []Node{n.Slack}
}

func (n *Notifications) matches(f NodeFilter) bool { return f.notification.isSet() }

// SlackNotification configures the slack channel.
type SlackNotification struct {
	nodeBase `yaml:"-"`

	Enabled bool   `yaml:"enabled"`
	BotName string `yaml:"botName,omitempty"`
	Token   string `yaml:"token,omitempty" hal:"secret"`
}

func (s *SlackNotification) NodeName() string          { return "slack" }
func (s *SlackNotification) Children() []Node          { return nil }
func (s *SlackNotification) matches(f NodeFilter) bool { return f.notification.match(s.NodeName()) }

// Plugins configures service plugins.
type Plugins struct {
	nodeBase `yaml:"-"`

	Enabled            bool      `yaml:"enabled"`
	DownloadingEnabled bool      `yaml:"downloadingEnabled"`
	Plugins            []*Plugin `yaml:"plugins,omitempty"`
}

func (p *Plugins) NodeName() string { return "plugins" }

func (p *Plugins) Children() []Node {
	out := make([]Node, 0, len(p.Plugins))
	for _, plugin := range p.Plugins {
		if plugin != nil {
			out = append(out, plugin)
		}
	}
	return out
}

func (p *Plugins) matches(f NodeFilter) bool { return f.plugin.isSet() }

// Plugin is a single plugin.
type Plugin struct {
	nodeBase `yaml:"-"`

	Name             string `yaml:"name"`
	Enabled          bool   `yaml:"enabled"`
	ManifestLocation string `yaml:"manifestLocation,omitempty"`
}

func (p *Plugin) NodeName() string          { return p.Name }
func (p *Plugin) Children() []Node          { return nil }
func (p *Plugin) matches(f NodeFilter) bool { return f.plugin.match(p.Name) }
