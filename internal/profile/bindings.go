package profile

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/opmodel/hal/internal/halconfig"
	"github.com/opmodel/hal/internal/output"
)

var placeholderPattern = regexp.MustCompile(`\{%[^%]*%\}`)

// Bindings collects the values bound into a base template: placeholder
// values and ConfigTree subtrees rendered as YAML after the base.
type Bindings struct {
	placeholders map[string]string
	rendered     map[string]any
	nodes        []halconfig.Node
}

func newBindings() *Bindings {
	return &Bindings{placeholders: make(map[string]string)}
}

// Set binds a placeholder.
func (b *Bindings) Set(key, value string) {
	b.placeholders[key] = value
}

// SetBool binds a placeholder to "true" or "false".
func (b *Bindings) SetBool(key string, value bool) {
	b.placeholders[key] = strconv.FormatBool(value)
}

// Render places n at the dotted path of the YAML rendering. Every render of
// one profile shares a single document, so sibling paths merge.
func (b *Bindings) Render(path string, n halconfig.Node) {
	if n == nil {
		return
	}
	if b.rendered == nil {
		b.rendered = make(map[string]any)
	}
	keys := strings.Split(path, ".")
	m := b.rendered
	for _, k := range keys[:len(keys)-1] {
		next, ok := m[k].(map[string]any)
		if !ok {
			next = make(map[string]any)
			m[k] = next
		}
		m = next
	}
	m[keys[len(keys)-1]] = n
	b.nodes = append(b.nodes, n)
}

// Keys returns the bound placeholder keys in sorted order.
func (b *Bindings) Keys() []string {
	keys := make([]string, 0, len(b.placeholders))
	for k := range b.placeholders {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// substitute replaces every placeholder of contents in one pass. Bound keys
// take their value, unbound ones are blanked. Values are inserted verbatim,
// so placeholders inside them stay as written.
func substitute(contents string, values map[string]string) string {
	return placeholderPattern.ReplaceAllStringFunc(contents, func(m string) string {
		if v, ok := values[strings.TrimSuffix(strings.TrimPrefix(m, "{%"), "%}")]; ok {
			return v
		}
		output.Debug("unbound placeholder", "placeholder", m)
		return ""
	})
}
