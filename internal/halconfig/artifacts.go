package halconfig

// Artifacts groups the artifact providers.
type Artifacts struct {
	nodeBase `yaml:"-"`

	HTTP *HTTPArtifactProvider `yaml:"http"`
	GCS  *GCSArtifactProvider  `yaml:"gcs"`
}

func (a *Artifacts) NodeName() string { return "artifacts" }

func (a *Artifacts) Children() []Node {
	var out []Node
	if a.HTTP != nil {
		out = append(out, a.HTTP)
	}
	if a.GCS != nil {
		out = append(out, a.GCS)
	}
	return out
}

func (a *Artifacts) matches(f NodeFilter) bool { return f.artifactProvider.isSet() }

type artifactProviderBase struct {
	nodeBase `yaml:"-"`

	Enabled  bool               `yaml:"enabled"`
	Accounts []*ArtifactAccount `yaml:"accounts,omitempty"`
}

func (p *artifactProviderBase) Children() []Node {
	out := make([]Node, 0, len(p.Accounts))
	for _, a := range p.Accounts {
		if a != nil {
			out = append(out, a)
		}
	}
	return out
}

// HTTPArtifactProvider fetches artifacts over HTTP.
type HTTPArtifactProvider struct {
	artifactProviderBase `yaml:",inline"`
}

func (p *HTTPArtifactProvider) NodeName() string          { return "http" }
func (p *HTTPArtifactProvider) matches(f NodeFilter) bool { return f.artifactProvider.match("http") }

// GCSArtifactProvider fetches artifacts from Google Cloud Storage.
type GCSArtifactProvider struct {
	artifactProviderBase `yaml:",inline"`
}

func (p *GCSArtifactProvider) NodeName() string          { return "gcs" }
func (p *GCSArtifactProvider) matches(f NodeFilter) bool { return f.artifactProvider.match("gcs") }

// ArtifactAccount is a credential for an artifact provider.
type ArtifactAccount struct {
	nodeBase `yaml:"-"`

	Name     string `yaml:"name"`
	Username string `yaml:"username,omitempty"`
	Password string `yaml:"password,omitempty" hal:"secret"`
	JSONPath string `yaml:"jsonPath,omitempty" hal:"localfile,secretfile"`
}

func (a *ArtifactAccount) NodeName() string          { return a.Name }
func (a *ArtifactAccount) Children() []Node          { return nil }
func (a *ArtifactAccount) matches(f NodeFilter) bool { return f.artifactAccount.match(a.Name) }
