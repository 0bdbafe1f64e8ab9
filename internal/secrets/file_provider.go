package secrets

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"sigs.k8s.io/yaml"
)

// fileProvider serves secrets from a YAML document. Paths walk nested maps
// with "/" and the optional key selects one more level.
type fileProvider struct {
	path string
	data map[string]any
}

func newFileProvider(path, baseDir string) (*fileProvider, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("file provider path is required")
	}
	if baseDir != "" && !filepath.IsAbs(path) {
		path = filepath.Join(baseDir, path)
	}
	path = filepath.Clean(path)

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading secrets file %q: %w", path, err)
	}
	data := make(map[string]any)
	if err := yaml.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("parsing secrets file %q: %w", path, err)
	}
	return &fileProvider{path: path, data: data}, nil
}

func (p *fileProvider) Resolve(_ context.Context, ref Ref) (string, error) {
	parts := strings.Split(ref.Path, "/")
	if ref.Key != "" {
		parts = append(parts, ref.Key)
	}

	var current any = p.data
	for _, part := range parts {
		if part == "" {
			continue
		}
		m, ok := current.(map[string]any)
		if !ok {
			return "", fmt.Errorf("secret %q does not resolve to a value in %s", ref.Reference(), p.path)
		}
		if current, ok = m[part]; !ok {
			return "", fmt.Errorf("secret %q not found in %s", ref.Reference(), p.path)
		}
	}

	switch v := current.(type) {
	case nil:
		return "", fmt.Errorf("secret %q is empty in %s", ref.Reference(), p.path)
	case string:
		return v, nil
	case map[string]any, []any:
		return "", fmt.Errorf("secret %q resolves to a structure, not a value, in %s", ref.Reference(), p.path)
	default:
		return fmt.Sprint(v), nil
	}
}
