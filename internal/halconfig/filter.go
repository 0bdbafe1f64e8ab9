package halconfig

import (
	"fmt"
	"strings"
)

type matchMode int

const (
	matchUnset matchMode = iota
	matchAny
	matchNamed
)

type matcher struct {
	mode matchMode
	name string
}

func (m matcher) match(name string) bool {
	switch m.mode {
	case matchAny:
		return true
	case matchNamed:
		return m.name == name
	default:
		return false
	}
}

func (m matcher) isSet() bool {
	return m.mode != matchUnset
}

func (m matcher) String() string {
	switch m.mode {
	case matchAny:
		return "*"
	case matchNamed:
		return m.name
	default:
		return "-"
	}
}

func named(name string) matcher { return matcher{mode: matchNamed, name: name} }

var anyName = matcher{mode: matchAny}

// NodeFilter selects a path through the halconfig tree. It is a value type:
// every With method returns a modified copy and leaves the receiver intact.
//
// A level that was never set matches nothing, so a filter naming only a
// deployment selects the deployment node but none of its providers.
type NodeFilter struct {
	deployment            matcher
	provider              matcher
	account               matcher
	deploymentEnvironment matcher
	features              matcher
	notification          matcher
	security              matcher
	plugin                matcher
	artifactProvider      matcher
	artifactAccount       matcher
}

// NewFilter returns an empty filter.
func NewFilter() NodeFilter {
	return NodeFilter{}
}

// FilterDeployment returns a filter selecting the whole subtree of the named
// deployment.
func FilterDeployment(name string) NodeFilter {
	return NodeFilter{
		deployment:            named(name),
		provider:              anyName,
		account:               anyName,
		deploymentEnvironment: anyName,
		features:              anyName,
		notification:          anyName,
		security:              anyName,
		plugin:                anyName,
		artifactProvider:      anyName,
		artifactAccount:       anyName,
	}
}

// FilterAll returns a filter selecting every node of every deployment.
func FilterAll() NodeFilter {
	f := FilterDeployment("")
	f.deployment = anyName
	return f
}

func (f NodeFilter) WithDeployment(name string) NodeFilter {
	f.deployment = named(name)
	return f
}

func (f NodeFilter) WithAnyDeployment() NodeFilter {
	f.deployment = anyName
	return f
}

func (f NodeFilter) WithProvider(name string) NodeFilter {
	f.provider = named(name)
	return f
}

func (f NodeFilter) WithAnyProvider() NodeFilter {
	f.provider = anyName
	return f
}

func (f NodeFilter) WithAccount(name string) NodeFilter {
	f.account = named(name)
	return f
}

func (f NodeFilter) WithAnyAccount() NodeFilter {
	f.account = anyName
	return f
}

func (f NodeFilter) WithDeploymentEnvironment() NodeFilter {
	f.deploymentEnvironment = anyName
	return f
}

func (f NodeFilter) WithFeatures() NodeFilter {
	f.features = anyName
	return f
}

func (f NodeFilter) WithNotification(name string) NodeFilter {
	f.notification = named(name)
	return f
}

func (f NodeFilter) WithAnyNotification() NodeFilter {
	f.notification = anyName
	return f
}

func (f NodeFilter) WithSecurity() NodeFilter {
	f.security = anyName
	return f
}

func (f NodeFilter) WithPlugin(name string) NodeFilter {
	f.plugin = named(name)
	return f
}

func (f NodeFilter) WithAnyPlugin() NodeFilter {
	f.plugin = anyName
	return f
}

func (f NodeFilter) WithArtifactProvider(name string) NodeFilter {
	f.artifactProvider = named(name)
	return f
}

func (f NodeFilter) WithAnyArtifactProvider() NodeFilter {
	f.artifactProvider = anyName
	return f
}

func (f NodeFilter) WithArtifactAccount(name string) NodeFilter {
	f.artifactAccount = named(name)
	return f
}

func (f NodeFilter) WithAnyArtifactAccount() NodeFilter {
	f.artifactAccount = anyName
	return f
}

// String renders the filter as a dotted path, for diagnostics.
func (f NodeFilter) String() string {
	parts := []string{f.deployment.String()}
	switch {
	case f.account.isSet() || f.provider.isSet():
		parts = append(parts, f.provider.String(), f.account.String())
	case f.artifactProvider.isSet():
		parts = append(parts, "artifacts", f.artifactProvider.String(), f.artifactAccount.String())
	}
	for _, extra := range []struct {
		label string
		m     matcher
	}{
		{"deploymentEnvironment", f.deploymentEnvironment},
		{"features", f.features},
		{"notification", f.notification},
		{"security", f.security},
		{"plugins", f.plugin},
	} {
		if extra.m.isSet() {
			parts = append(parts, fmt.Sprintf("%s[%s]", extra.label, extra.m))
		}
	}
	return strings.Join(parts, ".")
}
