package profile

import (
	"bytes"
	"context"
	"fmt"
	"path"

	"gopkg.in/yaml.v3"

	"github.com/opmodel/hal/internal/halconfig"
	"github.com/opmodel/hal/internal/secrets"
)

// secretValues records the values of secret-tagged fields found while
// rendering.
type secretValues struct {
	scalars map[string]bool
	files   map[string]bool
}

func recordSecrets(nodes []halconfig.Node) secretValues {
	sv := secretValues{scalars: map[string]bool{}, files: map[string]bool{}}
	var visit func(halconfig.Node)
	visit = func(n halconfig.Node) {
		for _, f := range halconfig.Fields(n) {
			v := f.String()
			if v == "" {
				continue
			}
			if f.Tags.SecretFile {
				sv.files[v] = true
			} else if f.Tags.Secret {
				sv.scalars[v] = true
			}
		}
		for _, c := range n.Children() {
			visit(c)
		}
	}
	for _, n := range nodes {
		visit(n)
	}
	return sv
}

// secretResolver applies the secret step of one profile.
type secretResolver struct {
	session   *secrets.Session
	outputDir string
	decrypted map[string][]byte
}

// scalar inlines a secret reference; other values pass through.
func (r *secretResolver) scalar(ctx context.Context, value string) (string, error) {
	return r.session.Decrypt(ctx, value)
}

// file decrypts a secret-file reference and returns the path the staged
// file has next to the profile. Other values pass through.
func (r *secretResolver) file(ctx context.Context, value string) (string, error) {
	if !secrets.IsReference(value) {
		return value, nil
	}
	f, err := r.session.DecryptFile(ctx, value)
	if err != nil {
		return "", err
	}
	r.decrypted[f.Name] = f.Contents
	return path.Join(r.outputDir, f.Name), nil
}

// renderYAML encodes the rendered subtrees and resolves the recorded secret
// values in place. Resolved values are re-encoded as YAML scalars.
func (r *secretResolver) renderYAML(ctx context.Context, tree map[string]any, recorded secretValues) (string, error) {
	var doc yaml.Node
	if err := doc.Encode(tree); err != nil {
		return "", fmt.Errorf("rendering config: %w", err)
	}

	var walk func(n *yaml.Node) error
	walk = func(n *yaml.Node) error {
		if n.Kind == yaml.ScalarNode && n.Value != "" {
			var (
				resolved string
				err      error
				changed  bool
			)
			switch {
			case recorded.files[n.Value]:
				resolved, err = r.file(ctx, n.Value)
				changed = true
			case recorded.scalars[n.Value]:
				resolved, err = r.scalar(ctx, n.Value)
				changed = true
			}
			if err != nil {
				return err
			}
			if changed && resolved != n.Value {
				n.Value = resolved
				n.Tag = "!!str"
				n.Style = 0
			}
		}
		for _, c := range n.Content {
			if err := walk(c); err != nil {
				return err
			}
		}
		return nil
	}
	if err := walk(&doc); err != nil {
		return "", err
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&doc); err != nil {
		return "", fmt.Errorf("rendering config: %w", err)
	}
	if err := enc.Close(); err != nil {
		return "", fmt.Errorf("rendering config: %w", err)
	}
	return buf.String(), nil
}
