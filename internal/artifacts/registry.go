package artifacts

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	oerrors "github.com/opmodel/hal/internal/errors"
)

// Registry fetches raw objects by slash-separated key. Keys are
// "bom/<version>.yml" for bills of materials and
// "<artifact>/<version>/<file>" for profile templates.
type Registry interface {
	Get(ctx context.Context, key string) ([]byte, error)
}

// BOMKey returns the registry key of a bill of materials.
func BOMKey(version string) string {
	return path.Join("bom", version+".yml")
}

// TemplateKey returns the registry key of a profile template.
func TemplateKey(artifact, version, file string) string {
	return path.Join(artifact, version, file)
}

// DirRegistry serves objects from a local directory tree.
type DirRegistry struct {
	Root string
}

// NewDirRegistry returns a registry rooted at root.
func NewDirRegistry(root string) *DirRegistry {
	return &DirRegistry{Root: root}
}

func (r *DirRegistry) Get(_ context.Context, key string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(r.Root, filepath.FromSlash(key)))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, oerrors.NewNotFoundError(
			fmt.Sprintf("%s not found in registry", key), r.Root,
			"Check that the registry directory holds this release")
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", key, err)
	}
	return data, nil
}
