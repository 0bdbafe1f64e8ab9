package halconfig

import (
	"os"
	"reflect"

	"github.com/opmodel/hal/internal/secrets"
)

// ValidateOptions tunes a validation run.
type ValidateOptions struct {
	// CheckLocalFiles verifies every local-file field names a readable file.
	CheckLocalFiles bool

	// KnownServices lists the valid customSizing keys. Empty disables the check.
	KnownServices []string

	// ReadSecretFile returns the decrypted contents of a secret-file
	// reference. When nil, referenced files are not inspected.
	ReadSecretFile func(ref string) ([]byte, error)
}

func (o ValidateOptions) readFile(path string) ([]byte, bool, error) {
	if secrets.IsReference(path) {
		if o.ReadSecretFile == nil {
			return nil, false, nil
		}
		data, err := o.ReadSecretFile(path)
		return data, true, err
	}
	data, err := os.ReadFile(path)
	return data, true, err
}

type validatorFunc func(Node, *ProblemSetBuilder, ValidateOptions)

type ifaceValidator struct {
	iface reflect.Type
	fn    validatorFunc
}

// Registry maps node types to validators. Validators only read the tree and
// report through the builder they are given.
type Registry struct {
	byType map[reflect.Type][]validatorFunc
	ifaces []ifaceValidator
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{byType: make(map[reflect.Type][]validatorFunc)}
}

// Register adds fn as a validator for nodes of type T. T may be a concrete
// node type or an interface such as Account or ProviderNode.
func Register[T Node](r *Registry, fn func(T, *ProblemSetBuilder, ValidateOptions)) {
	t := reflect.TypeFor[T]()
	wrapped := func(n Node, ps *ProblemSetBuilder, opts ValidateOptions) {
		fn(n.(T), ps, opts)
	}
	if t.Kind() == reflect.Interface {
		r.ifaces = append(r.ifaces, ifaceValidator{iface: t, fn: wrapped})
		return
	}
	r.byType[t] = append(r.byType[t], wrapped)
}

func (r *Registry) validatorsFor(n Node) []validatorFunc {
	t := reflect.TypeOf(n)
	out := append([]validatorFunc(nil), r.byType[t]...)
	for _, iv := range r.ifaces {
		if t.Implements(iv.iface) {
			out = append(out, iv.fn)
		}
	}
	return out
}

// Validate runs every registered validator on each node of root selected by
// filter and returns the combined problems. It never stops early.
func Validate(root Node, filter NodeFilter, r *Registry, opts ValidateOptions) *ProblemSet {
	result := &ProblemSet{}
	var visit func(Node)
	visit = func(n Node) {
		if !MatchesToRoot(n, filter) {
			return
		}
		for _, fn := range r.validatorsFor(n) {
			ps := NewProblemSetBuilder(n)
			fn(n, ps, opts)
			result.Add(ps.Build())
		}
		for _, child := range n.Children() {
			visit(child)
		}
	}
	visit(root)
	return result
}
