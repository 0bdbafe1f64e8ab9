package profile

import (
	"context"
	"fmt"
	"maps"
	"path"
	"strings"

	"github.com/opmodel/hal/internal/halconfig"
	"github.com/opmodel/hal/internal/output"
	"github.com/opmodel/hal/internal/secrets"
	"github.com/opmodel/hal/internal/settings"
)

// TemplateSource resolves artifact versions and fetches base templates.
type TemplateSource interface {
	ArtifactVersion(ctx context.Context, deploymentVersion, artifact string) (string, error)
	Template(ctx context.Context, deploymentVersion, artifact, file string) (string, error)
}

// BindFunc adds a factory's bindings for one deployment.
type BindFunc func(b *Bindings, d *halconfig.DeploymentConfiguration, rt settings.RuntimeSettings)

// Factory generates one named profile of one service.
type Factory struct {
	Service settings.ServiceType

	// File is the base template file name, e.g. "gate.yml".
	File    string
	Comment string

	bind BindFunc
	env  map[string]string
	gen  *Generator
}

// Profile runs the base, bindings and secrets steps in order.
func (f *Factory) Profile(ctx context.Context, name, outputFile string, d *halconfig.DeploymentConfiguration, rt settings.RuntimeSettings) (*Profile, error) {
	log := output.ServiceLogger(f.Service.Name)

	version, err := f.gen.templates.ArtifactVersion(ctx, d.Version, f.Service.Artifact)
	if err != nil {
		return nil, fmt.Errorf("profile %s for %s: %w", name, f.Service.Name, err)
	}
	base, err := f.gen.templates.Template(ctx, d.Version, f.Service.Artifact, f.File)
	if err != nil {
		return nil, fmt.Errorf("profile %s for %s: %w", name, f.Service.Name, err)
	}
	log.Debug("fetched base template", "profile", name, "version", version)

	b := newBindings()
	commonBindings(b, d, rt)
	if f.bind != nil {
		f.bind(b, d, rt)
	}

	sr := &secretResolver{
		session:   f.gen.session,
		outputDir: path.Dir(outputFile),
		decrypted: make(map[string][]byte),
	}

	values := make(map[string]string, len(b.placeholders))
	for _, k := range b.Keys() {
		v, err := sr.scalar(ctx, b.placeholders[k])
		if err != nil {
			return nil, fmt.Errorf("profile %s: resolving %s: %w", name, k, err)
		}
		values[k] = v
	}

	var contents strings.Builder
	contents.WriteString(Banner(f.Comment))
	contents.WriteString(substitute(base, values))

	if len(b.rendered) > 0 {
		rendered, err := sr.renderYAML(ctx, b.rendered, recordSecrets(b.nodes))
		if err != nil {
			return nil, fmt.Errorf("profile %s: %w", name, err)
		}
		if contents.Len() > 0 && !strings.HasSuffix(contents.String(), "\n") {
			contents.WriteString("\n")
		}
		contents.WriteString(rendered)
	}

	var required []string
	for _, n := range b.nodes {
		required = append(required, halconfig.CollectLocalFiles(n)...)
	}

	return &Profile{
		Name:           name,
		Service:        f.Service.Name,
		Version:        version,
		Contents:       contents.String(),
		OutputFile:     outputFile,
		RequiredFiles:  required,
		DecryptedFiles: sr.decrypted,
		Env:            maps.Clone(f.env),
	}, nil
}

// Generator builds the profile factories of every service.
type Generator struct {
	templates TemplateSource
	session   *secrets.Session
}

// NewGenerator returns a generator reading templates from templates and
// resolving secrets through session. A nil session rejects every secret
// reference.
func NewGenerator(templates TemplateSource, session *secrets.Session) *Generator {
	if session == nil {
		session = secrets.NewSession(nil, "")
	}
	return &Generator{templates: templates, session: session}
}

type factorySpec struct {
	comment string
	bind    BindFunc
	env     map[string]string
}

// springLocal makes a service load its own profile as the "local" Spring
// profile.
var springLocal = map[string]string{"SPRING_PROFILES_ACTIVE": "local"}

var factorySpecs = map[string]factorySpec{
	"spinnaker.yml":   {comment: YAMLComment},
	"gate.yml":        {comment: YAMLComment, bind: bindGate, env: springLocal},
	"clouddriver.yml": {comment: YAMLComment, bind: bindClouddriver, env: springLocal},
	"echo.yml":        {comment: YAMLComment, bind: bindEcho, env: springLocal},
	"fiat.yml":        {comment: YAMLComment, bind: bindFiat, env: springLocal},
	"orca.yml":        {comment: YAMLComment, env: springLocal},
	"front50.yml":     {comment: YAMLComment, env: springLocal},
	"igor.yml":        {comment: YAMLComment, env: springLocal},
	"rosco.yml":       {comment: YAMLComment, env: springLocal},
	"kayenta.yml":     {comment: YAMLComment, env: springLocal},
	"settings.js":     {comment: JSComment, bind: bindDeck},
}

// Factory returns the factory of a service's profile.
func (g *Generator) Factory(svc settings.ServiceType, name string) (*Factory, bool) {
	spec, ok := factorySpecs[name]
	if !ok {
		return nil, false
	}
	return &Factory{Service: svc, File: name, Comment: spec.comment, bind: spec.bind, env: spec.env, gen: g}, true
}

// Factories returns the factories of every profile of svc.
func (g *Generator) Factories(svc settings.ServiceType) ([]*Factory, error) {
	out := make([]*Factory, 0, len(svc.Profiles))
	for _, name := range svc.Profiles {
		f, ok := g.Factory(svc, name)
		if !ok {
			return nil, fmt.Errorf("no profile factory for %s of %s", name, svc.Name)
		}
		out = append(out, f)
	}
	return out, nil
}

const (
	SpinnakerConfigDir = "/opt/spinnaker/config"
	DeckConfigDir      = "/opt/deck/html"
)

// OutputFile returns the in-container path of a service's profile.
func OutputFile(svc settings.ServiceType, name string) string {
	if svc.Name == settings.Deck {
		return path.Join(DeckConfigDir, name)
	}
	return path.Join(SpinnakerConfigDir, name)
}
