package artifacts

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"

	oerrors "github.com/opmodel/hal/internal/errors"
)

// Resolver maps a deployment version to per-artifact versions and fetches
// the matching profile templates. Bills of materials are cached.
type Resolver struct {
	registry Registry

	mu    sync.Mutex
	boms  map[string]*BillOfMaterials
	group singleflight.Group
}

// NewResolver returns a resolver over registry.
func NewResolver(registry Registry) *Resolver {
	return &Resolver{registry: registry, boms: make(map[string]*BillOfMaterials)}
}

// BOM returns the bill of materials of a deployment version.
func (r *Resolver) BOM(ctx context.Context, version string) (*BillOfMaterials, error) {
	if version == "" {
		return nil, oerrors.NewConfigNotFoundError("the deployment has no version", "version",
			"Set the deployment version before generating profiles")
	}
	r.mu.Lock()
	bom, ok := r.boms[version]
	r.mu.Unlock()
	if ok {
		return bom, nil
	}

	v, err, _ := r.group.Do(version, func() (any, error) {
		data, err := r.registry.Get(ctx, BOMKey(version))
		if err != nil {
			return nil, fmt.Errorf("fetching bill of materials %s: %w", version, err)
		}
		bom, err := ParseBOM(data)
		if err != nil {
			return nil, err
		}
		r.mu.Lock()
		r.boms[version] = bom
		r.mu.Unlock()
		return bom, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*BillOfMaterials), nil
}

// ArtifactVersion returns the version of artifact pinned by the deployment
// version's bill of materials.
func (r *Resolver) ArtifactVersion(ctx context.Context, deploymentVersion, artifact string) (string, error) {
	bom, err := r.BOM(ctx, deploymentVersion)
	if err != nil {
		return "", err
	}
	v, ok := bom.ArtifactVersion(artifact)
	if !ok {
		return "", oerrors.NewNotFoundError(
			fmt.Sprintf("artifact %s is not listed in bill of materials %s", artifact, deploymentVersion),
			BOMKey(deploymentVersion), "")
	}
	return v, nil
}

// Template resolves the artifact version and fetches the named template.
func (r *Resolver) Template(ctx context.Context, deploymentVersion, artifact, file string) (string, error) {
	version, err := r.ArtifactVersion(ctx, deploymentVersion, artifact)
	if err != nil {
		return "", err
	}
	data, err := r.registry.Get(ctx, TemplateKey(artifact, version, file))
	if err != nil {
		return "", fmt.Errorf("fetching %s template for %s %s: %w", file, artifact, version, err)
	}
	return string(data), nil
}

// Image returns "<registry>/<artifact>:<version>" for the deployment version.
func (r *Resolver) Image(ctx context.Context, deploymentVersion, artifact string) (string, error) {
	bom, err := r.BOM(ctx, deploymentVersion)
	if err != nil {
		return "", err
	}
	version, ok := bom.ArtifactVersion(artifact)
	if !ok {
		return "", oerrors.NewNotFoundError(
			fmt.Sprintf("artifact %s is not listed in bill of materials %s", artifact, deploymentVersion),
			BOMKey(deploymentVersion), "")
	}
	if bom.ArtifactSources.DockerRegistry == "" {
		return artifact + ":" + version, nil
	}
	return fmt.Sprintf("%s/%s:%s", bom.ArtifactSources.DockerRegistry, artifact, version), nil
}
