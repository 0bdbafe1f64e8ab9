package secrets

// Config declares the available secret providers.
type Config struct {
	DefaultProvider string                    `mapstructure:"defaultProvider" yaml:"defaultProvider,omitempty" json:"defaultProvider,omitempty"`
	Providers       map[string]ProviderConfig `mapstructure:"providers" yaml:"providers,omitempty" json:"providers,omitempty"`
}

// ProviderConfig holds the settings of one provider. Which fields apply
// depends on Type ("file" or "vault").
type ProviderConfig struct {
	Type string `mapstructure:"type" yaml:"type,omitempty" json:"type,omitempty"`

	// Path is the YAML document backing a file provider.
	Path string `mapstructure:"path" yaml:"path,omitempty" json:"path,omitempty"`

	Address    string `mapstructure:"address" yaml:"address,omitempty" json:"address,omitempty"`
	Token      string `mapstructure:"token" yaml:"token,omitempty" json:"token,omitempty"`
	Namespace  string `mapstructure:"namespace" yaml:"namespace,omitempty" json:"namespace,omitempty"`
	Mount      string `mapstructure:"mount" yaml:"mount,omitempty" json:"mount,omitempty"`
	KVVersion  int    `mapstructure:"kvVersion" yaml:"kvVersion,omitempty" json:"kvVersion,omitempty"`
	Key        string `mapstructure:"key" yaml:"key,omitempty" json:"key,omitempty"`
	AuthMethod string `mapstructure:"authMethod" yaml:"authMethod,omitempty" json:"authMethod,omitempty"`
	AuthMount  string `mapstructure:"authMount" yaml:"authMount,omitempty" json:"authMount,omitempty"`
	RoleID     string `mapstructure:"roleId" yaml:"roleId,omitempty" json:"roleId,omitempty"`
	SecretID   string `mapstructure:"secretId" yaml:"secretId,omitempty" json:"secretId,omitempty"`

	KubernetesRole      string `mapstructure:"kubernetesRole" yaml:"kubernetesRole,omitempty" json:"kubernetesRole,omitempty"`
	KubernetesTokenPath string `mapstructure:"kubernetesTokenPath" yaml:"kubernetesTokenPath,omitempty" json:"kubernetesTokenPath,omitempty"`
}

// Empty reports whether no provider is configured.
func (c Config) Empty() bool {
	return c.DefaultProvider == "" && len(c.Providers) == 0
}
