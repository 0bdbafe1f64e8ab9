// Package secrets resolves secret references of the form
// secret://<provider>/<path>[#key] against file and vault backends, and
// stages decrypted secret files for the services that need them.
package secrets

import (
	"fmt"
	"path"
	"strings"
)

const refPrefix = "secret://"

// Ref is a parsed secret reference.
type Ref struct {
	Provider string
	Path     string
	Key      string
	Raw      string
}

// Reference returns the canonical reference string.
func (r Ref) Reference() string {
	s := refPrefix + r.Provider + "/" + r.Path
	if r.Key != "" {
		s += "#" + r.Key
	}
	return s
}

// cacheKey identifies the backend value a reference resolves to.
func (r Ref) cacheKey() string {
	return r.Provider + "|" + r.Path + "#" + r.Key
}

// BaseName returns the last path element, used to name staged files.
func (r Ref) BaseName() string {
	return path.Base(r.Path)
}

// IsReference reports whether value uses the secret reference syntax.
func IsReference(value string) bool {
	return strings.HasPrefix(value, refPrefix)
}

// ParseRef parses value. ok is false when value is not a reference at all;
// err is set when it is one but is malformed. "secret:///path" selects
// defaultProvider.
func ParseRef(value, defaultProvider string) (ref Ref, ok bool, err error) {
	if !IsReference(value) {
		return Ref{}, false, nil
	}
	rest := strings.TrimSpace(strings.TrimPrefix(value, refPrefix))
	if rest == "" {
		return Ref{}, true, fmt.Errorf("secret reference %q is missing provider and path", value)
	}

	var key string
	if i := strings.LastIndex(rest, "#"); i >= 0 {
		rest, key = rest[:i], strings.TrimSpace(rest[i+1:])
	}

	provider, p, found := strings.Cut(rest, "/")
	if !found {
		provider, p = "", provider
	}
	provider = strings.TrimSpace(provider)
	p = strings.Trim(strings.TrimSpace(p), "/")

	if provider == "" {
		provider = strings.TrimSpace(defaultProvider)
		if provider == "" {
			return Ref{}, true, fmt.Errorf("secret reference %q requires a default provider", value)
		}
	}
	if p == "" {
		return Ref{}, true, fmt.Errorf("secret reference %q is missing a path", value)
	}
	return Ref{Provider: provider, Path: p, Key: key, Raw: value}, true, nil
}
