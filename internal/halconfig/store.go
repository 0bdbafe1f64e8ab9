package halconfig

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/opmodel/hal/internal/output"
)

// FileStore persists a halconfig as a YAML file.
type FileStore struct {
	Path string
}

// NewFileStore returns a store backed by path.
func NewFileStore(path string) *FileStore {
	return &FileStore{Path: path}
}

// Load reads, schema-checks, decodes and normalizes the halconfig. A missing
// file yields a fresh halconfig with a default deployment.
func (s *FileStore) Load() (*Halconfig, error) {
	data, err := os.ReadFile(s.Path)
	if errors.Is(err, fs.ErrNotExist) {
		output.Debug("no halconfig found, starting from defaults", "path", s.Path)
		return NewHalconfig(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading halconfig %s: %w", s.Path, err)
	}
	h, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("loading halconfig %s: %w", s.Path, err)
	}
	return h, nil
}

// Save writes h atomically: the document is written to a temporary file in
// the same directory and renamed over the target.
func (s *FileStore) Save(h *Halconfig) error {
	data, err := Encode(h)
	if err != nil {
		return err
	}

	dir := filepath.Dir(s.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating halconfig directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".halconfig-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temporary halconfig: %w", err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck // already renamed on success

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing halconfig: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("writing halconfig: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.Path); err != nil {
		return fmt.Errorf("replacing halconfig %s: %w", s.Path, err)
	}
	output.Debug("halconfig saved", "path", s.Path, "bytes", len(data))
	return nil
}

// Decode parses a halconfig document.
func Decode(data []byte) (*Halconfig, error) {
	if err := CheckSchema(data); err != nil {
		return nil, err
	}
	h := &Halconfig{}
	if err := yaml.Unmarshal(data, h); err != nil {
		return nil, fmt.Errorf("decoding halconfig: %w", err)
	}
	if len(h.DeploymentConfigurations) == 0 {
		h.DeploymentConfigurations = []*DeploymentConfiguration{NewDeploymentConfiguration(DefaultDeploymentName)}
	}
	Normalize(h)
	return h, nil
}

// Encode renders h as YAML with two-space indentation.
func Encode(h *Halconfig) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(h); err != nil {
		return nil, fmt.Errorf("encoding halconfig: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encoding halconfig: %w", err)
	}
	return buf.Bytes(), nil
}

// Clone returns a deep copy of h with its own parent wiring.
func Clone(h *Halconfig) (*Halconfig, error) {
	data, err := Encode(h)
	if err != nil {
		return nil, err
	}
	out := &Halconfig{}
	if err := yaml.Unmarshal(data, out); err != nil {
		return nil, fmt.Errorf("copying halconfig: %w", err)
	}
	Normalize(out)
	return out, nil
}

// Parentify rewires every parent reference in the document.
func (h *Halconfig) Parentify() {
	Parentify(h)
}
