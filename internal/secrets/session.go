package secrets

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"

	"github.com/opmodel/hal/internal/output"
)

// DecryptedFile is a secret file staged on local disk.
type DecryptedFile struct {
	// Name is the staged file name, "<base>-<uuid>".
	Name string

	// Path is the absolute staged path.
	Path     string
	Contents []byte
}

// Session resolves secrets for one generation run. Each secret file is
// decrypted and staged at most once per session; repeated requests return
// the same path. Close removes every staged file.
type Session struct {
	resolver   *Resolver
	stagingDir string

	mu     sync.Mutex
	files  map[string]DecryptedFile
	closed bool
}

// NewSession returns a session staging decrypted files under stagingDir.
func NewSession(resolver *Resolver, stagingDir string) *Session {
	return &Session{
		resolver:   resolver,
		stagingDir: stagingDir,
		files:      make(map[string]DecryptedFile),
	}
}

// Decrypt returns the clear text of value when it is a secret reference and
// value unchanged otherwise.
func (s *Session) Decrypt(ctx context.Context, value string) (string, error) {
	if !IsReference(value) {
		return value, nil
	}
	if s.resolver == nil {
		return "", fmt.Errorf("secret %q cannot be resolved: no secret providers are configured", value)
	}
	out, _, err := s.resolver.ResolveString(ctx, value)
	return out, err
}

// ReadFile returns the decrypted contents of a secret-file reference.
func (s *Session) ReadFile(ctx context.Context, value string) ([]byte, error) {
	f, err := s.DecryptFile(ctx, value)
	if err != nil {
		return nil, err
	}
	return f.Contents, nil
}

// DecryptFile decrypts a secret-file reference and stages it under the
// staging directory.
func (s *Session) DecryptFile(ctx context.Context, value string) (DecryptedFile, error) {
	if s.resolver == nil {
		return DecryptedFile{}, fmt.Errorf("secret file %q cannot be resolved: no secret providers are configured", value)
	}
	ref, ok, err := s.resolver.Parse(value)
	if !ok {
		return DecryptedFile{}, fmt.Errorf("%q is not a secret reference", value)
	}
	if err != nil {
		return DecryptedFile{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return DecryptedFile{}, errors.New("secret session is closed")
	}
	if f, ok := s.files[ref.cacheKey()]; ok {
		return f, nil
	}

	contents, err := s.resolver.Resolve(ctx, ref)
	if err != nil {
		return DecryptedFile{}, err
	}
	if err := os.MkdirAll(s.stagingDir, 0o700); err != nil {
		return DecryptedFile{}, fmt.Errorf("creating secret staging directory: %w", err)
	}
	name := ref.BaseName() + "-" + uuid.NewString()
	path := filepath.Join(s.stagingDir, name)
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		return DecryptedFile{}, fmt.Errorf("staging secret file: %w", err)
	}
	output.Debug("staged decrypted secret file", "ref", ref.Reference(), "path", path)

	f := DecryptedFile{Name: name, Path: path, Contents: []byte(contents)}
	s.files[ref.cacheKey()] = f
	return f, nil
}

// Files returns every file staged so far.
func (s *Session) Files() []DecryptedFile {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]DecryptedFile, 0, len(s.files))
	for _, f := range s.files {
		out = append(out, f)
	}
	return out
}

// Close removes the staged files. It is safe to call more than once.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true

	var errs []error
	for _, f := range s.files {
		if err := os.Remove(f.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	s.files = nil
	return errors.Join(errs...)
}
