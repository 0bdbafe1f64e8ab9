package profile

import (
	"sort"
	"strconv"

	"github.com/opmodel/hal/internal/halconfig"
	"github.com/opmodel/hal/internal/settings"
)

func boolValue(p *bool) bool {
	return p != nil && *p
}

// commonBindings are available to every profile.
func commonBindings(b *Bindings, d *halconfig.DeploymentConfiguration, rt settings.RuntimeSettings) {
	names := make([]string, 0, len(rt.Services))
	for name := range rt.Services {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		s := rt.Services[name]
		prefix := "services." + name + "."
		b.Set(prefix+"host", s.Host)
		b.Set(prefix+"port", strconv.Itoa(s.Port))
		b.Set(prefix+"baseUrl", s.BaseURL)
		b.SetBool(prefix+"enabled", s.Enabled)
	}

	if d.Providers != nil {
		for _, p := range d.Providers.All() {
			b.Set(p.NodeName()+".default.account", p.PrimaryAccountName())
			b.SetBool(p.NodeName()+".enabled", p.IsEnabled())
		}
	}

	f := d.Features
	if f == nil {
		f = &halconfig.Features{}
	}
	b.SetBool("features.auth", f.Auth)
	b.SetBool("features.fiat", f.Fiat)
	b.SetBool("features.chaos", f.Chaos)
	b.SetBool("features.entityTags", f.EntityTags)
	b.SetBool("features.jobs", f.Jobs)
	b.SetBool("features.pipelineTemplates", boolValue(f.PipelineTemplates))
	b.SetBool("features.artifacts", boolValue(f.Artifacts))
	b.SetBool("features.mineCanary", boolValue(f.MineCanary))

	b.Set("timezone", d.Timezone)
	b.Set("version", d.Version)
}

func bindGate(b *Bindings, d *halconfig.DeploymentConfiguration, _ settings.RuntimeSettings) {
	if d.Security == nil {
		return
	}
	b.Render("security.apiSecurity", d.Security.APISecurity)
	b.Render("security.authn", d.Security.Authn)
}

func bindClouddriver(b *Bindings, d *halconfig.DeploymentConfiguration, _ settings.RuntimeSettings) {
	b.Render("providers", d.Providers)
}

func bindEcho(b *Bindings, d *halconfig.DeploymentConfiguration, _ settings.RuntimeSettings) {
	if d.Notifications == nil {
		return
	}
	b.Render("slack", d.Notifications.Slack)
}

func bindFiat(b *Bindings, d *halconfig.DeploymentConfiguration, _ settings.RuntimeSettings) {
	if d.Security == nil {
		return
	}
	b.Render("auth", d.Security.Authz)
}

func bindDeck(b *Bindings, d *halconfig.DeploymentConfiguration, rt settings.RuntimeSettings) {
	if gate, ok := rt.Service(settings.Gate); ok {
		b.Set("gate.baseUrl", gate.BaseURL)
	}
	slack := false
	if d.Notifications != nil && d.Notifications.Slack != nil {
		slack = d.Notifications.Slack.Enabled
		b.Set("notifications.slack.botName", d.Notifications.Slack.BotName)
	}
	b.SetBool("notifications.slack.enabled", slack)
	b.SetBool("authn.enabled", d.Security != nil && d.Security.Authn != nil && d.Security.Authn.Enabled)
}
