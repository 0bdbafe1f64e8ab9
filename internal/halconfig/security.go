package halconfig

// Security configures authentication, authorization and TLS.
type Security struct {
	nodeBase `yaml:"-"`

	APISecurity *APISecurity `yaml:"apiSecurity"`
	UISecurity  *UISecurity  `yaml:"uiSecurity"`
	Authn       *Authn       `yaml:"authn"`
	Authz       *Authz       `yaml:"authz"`
}

func (s *Security) NodeName() string { return "security" }

func (s *Security) Children() []Node {
	var out []Node
	if s.APISecurity != nil {
		out = append(out, s.APISecurity)
	}
	if s.UISecurity != nil {
		out = append(out, s.UISecurity)
	}
	if s.Authn != nil {
		out = append(out, s.Authn)
	}
	if s.Authz != nil {
		out = append(out, s.Authz)
	}
	return out
}

func (s *Security) matches(f NodeFilter) bool { return f.security.isSet() }

func (s *Security) fillDefaults() {
	if s.APISecurity == nil {
		s.APISecurity = &APISecurity{}
	}
	if s.APISecurity.SSL == nil {
		s.APISecurity.SSL = &SSL{}
	}
	if s.UISecurity == nil {
		s.UISecurity = &UISecurity{}
	}
	if s.UISecurity.SSL == nil {
		s.UISecurity.SSL = &SSL{}
	}
	if s.Authn == nil {
		s.Authn = &Authn{}
	}
	if s.Authn.OAuth2 == nil {
		s.Authn.OAuth2 = &OAuth2{}
	}
	if s.Authz == nil {
		s.Authz = &Authz{}
	}
}

// APISecurity configures the API gateway endpoint.
type APISecurity struct {
	nodeBase `yaml:"-"`

	OverrideBaseURL   string `yaml:"overrideBaseUrl,omitempty"`
	CorsAccessPattern string `yaml:"corsAccessPattern,omitempty"`
	SSL               *SSL   `yaml:"ssl"`
}

func (a *APISecurity) NodeName() string { return "apiSecurity" }

func (a *APISecurity) Children() []Node {
	if a.SSL == nil {
		return nil
	}
	return []Node{a.SSL}
}

func (a *APISecurity) matches(f NodeFilter) bool { return f.security.isSet() }

// UISecurity configures the UI endpoint.
type UISecurity struct {
	nodeBase `yaml:"-"`

	OverrideBaseURL string `yaml:"overrideBaseUrl,omitempty"`
	SSL             *SSL   `yaml:"ssl"`
}

func (u *UISecurity) NodeName() string { return "uiSecurity" }

func (u *UISecurity) Children() []Node {
	if u.SSL == nil {
		return nil
	}
	return []Node{u.SSL}
}

func (u *UISecurity) matches(f NodeFilter) bool { return f.security.isSet() }

// SSL holds TLS settings for one endpoint.
type SSL struct {
	nodeBase `yaml:"-"`

	Enabled          bool   `yaml:"enabled"`
	KeyStore         string `yaml:"keyStore,omitempty" hal:"localfile,secretfile"`
	KeyStoreType     string `yaml:"keyStoreType,omitempty"`
	KeyStorePassword string `yaml:"keyStorePassword,omitempty" hal:"secret"`
	KeyAlias         string `yaml:"keyAlias,omitempty"`
}

func (s *SSL) NodeName() string          { return "ssl" }
func (s *SSL) Children() []Node          { return nil }
func (s *SSL) matches(f NodeFilter) bool { return f.security.isSet() }

// Authn configures user authentication.
type Authn struct {
	nodeBase `yaml:"-"`

	Enabled bool    `yaml:"enabled"`
	OAuth2  *OAuth2 `yaml:"oauth2"`
}

func (a *Authn) NodeName() string { return "authn" }

func (a *Authn) Children() []Node {
	if a.OAuth2 == nil {
		return nil
	}
	return []Node{a.OAuth2}
}

func (a *Authn) matches(f NodeFilter) bool { return f.security.isSet() }

// OAuth2 configures an OAuth2 identity provider.
type OAuth2 struct {
	nodeBase `yaml:"-"`

	Enabled      bool   `yaml:"enabled"`
	ClientID     string `yaml:"clientId,omitempty"`
	ClientSecret string `yaml:"clientSecret,omitempty" hal:"secret"`
	Provider     string `yaml:"provider,omitempty"`
}

func (o *OAuth2) NodeName() string          { return "oauth2" }
func (o *OAuth2) Children() []Node          { return nil }
func (o *OAuth2) matches(f NodeFilter) bool { return f.security.isSet() }

// Authz configures authorization.
type Authz struct {
	nodeBase `yaml:"-"`

	Enabled bool `yaml:"enabled"`
}

func (a *Authz) NodeName() string          { return "authz" }
func (a *Authz) Children() []Node          { return nil }
func (a *Authz) matches(f NodeFilter) bool { return f.security.isSet() }
