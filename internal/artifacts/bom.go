// Package artifacts resolves service artifact versions from a bill of
// materials and fetches versioned profile templates from a template
// registry backed by a local directory or an S3 bucket.
package artifacts

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// BillOfMaterials pins every service of one release to an artifact version.
type BillOfMaterials struct {
	Version         string                    `yaml:"version"`
	Timestamp       string                    `yaml:"timestamp,omitempty"`
	Services        map[string]ArtifactRecord `yaml:"services"`
	Dependencies    map[string]ArtifactRecord `yaml:"dependencies,omitempty"`
	ArtifactSources ArtifactSources           `yaml:"artifactSources"`
}

// ArtifactRecord is the pinned version of one artifact.
type ArtifactRecord struct {
	Version string `yaml:"version"`
	Commit  string `yaml:"commit,omitempty"`
}

// ArtifactSources locates the built artifacts.
type ArtifactSources struct {
	DockerRegistry string `yaml:"dockerRegistry"`
}

// ParseBOM decodes a bill of materials.
func ParseBOM(data []byte) (*BillOfMaterials, error) {
	var bom BillOfMaterials
	if err := yaml.Unmarshal(data, &bom); err != nil {
		return nil, fmt.Errorf("parsing bill of materials: %w", err)
	}
	if bom.Version == "" {
		return nil, fmt.Errorf("bill of materials has no version")
	}
	return &bom, nil
}

// ArtifactVersion returns the pinned version of artifact, looking at
// services first and then dependencies.
func (b *BillOfMaterials) ArtifactVersion(artifact string) (string, bool) {
	if r, ok := b.Services[artifact]; ok && r.Version != "" {
		return r.Version, true
	}
	if r, ok := b.Dependencies[artifact]; ok && r.Version != "" {
		return r.Version, true
	}
	return "", false
}
