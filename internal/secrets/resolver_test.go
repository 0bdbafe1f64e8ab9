package secrets_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opmodel/hal/internal/secrets"
)

const secretsYAML = `slack:
  token: xoxb-123
kube:
  config: |
    apiVersion: v1
    kind: Config
db:
  port: 5432
`

func fileResolver(t *testing.T) *secrets.Resolver {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "secrets.yaml"), []byte(secretsYAML), 0o600))

	r, err := secrets.NewResolver(secrets.Config{
		DefaultProvider: "local",
		Providers: map[string]secrets.ProviderConfig{
			"local": {Type: "file", Path: "secrets.yaml"},
		},
	}, dir)
	require.NoError(t, err)
	return r
}

// countingProvider counts backend calls.
type countingProvider struct {
	calls atomic.Int32
	value string
	err   error
}

func (p *countingProvider) Resolve(context.Context, secrets.Ref) (string, error) {
	p.calls.Add(1)
	return p.value, p.err
}

// --- Resolver ---

func TestResolver_FileProvider(t *testing.T) {
	r := fileResolver(t)
	ctx := context.Background()

	v, replaced, err := r.ResolveString(ctx, "secret://local/slack/token")
	require.NoError(t, err)
	assert.True(t, replaced)
	assert.Equal(t, "xoxb-123", v)

	v, _, err = r.ResolveString(ctx, "secret:///slack#token")
	require.NoError(t, err)
	assert.Equal(t, "xoxb-123", v, "key selects one more level")

	v, _, err = r.ResolveString(ctx, "secret:///db/port")
	require.NoError(t, err)
	assert.Equal(t, "5432", v)

	v, replaced, err = r.ResolveString(ctx, "plain")
	require.NoError(t, err)
	assert.False(t, replaced)
	assert.Equal(t, "plain", v)
}

func TestResolver_Errors(t *testing.T) {
	r := fileResolver(t)
	ctx := context.Background()

	_, _, err := r.ResolveString(ctx, "secret:///slack")
	assert.ErrorContains(t, err, "structure")

	_, _, err = r.ResolveString(ctx, "secret:///nope")
	assert.ErrorContains(t, err, "not found")

	_, _, err = r.ResolveString(ctx, "secret://other/x")
	assert.ErrorContains(t, err, "not configured")
}

func TestNewResolver_RejectsBadProviders(t *testing.T) {
	_, err := secrets.NewResolver(secrets.Config{Providers: map[string]secrets.ProviderConfig{"x": {}}}, "")
	assert.ErrorContains(t, err, "missing a type")

	_, err = secrets.NewResolver(secrets.Config{Providers: map[string]secrets.ProviderConfig{"x": {Type: "sops"}}}, "")
	assert.ErrorContains(t, err, "unsupported")

	_, err = secrets.NewResolver(secrets.Config{Providers: map[string]secrets.ProviderConfig{"x": {Type: "file", Path: "/nonexistent/secrets.yaml"}}}, "")
	assert.Error(t, err)
}

func TestResolver_CachesPerReference(t *testing.T) {
	p := &countingProvider{value: "v"}
	r := secrets.NewResolverWithProviders(map[string]secrets.Provider{"p": p}, "p")

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, _, err := r.ResolveString(context.Background(), "secret:///a")
			assert.NoError(t, err)
			assert.Equal(t, "v", v)
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), p.calls.Load())

	_, _, err := r.ResolveString(context.Background(), "secret:///a#other")
	require.NoError(t, err)
	assert.Equal(t, int32(2), p.calls.Load(), "different key is a different value")
}

func TestResolver_ErrorsAreNotCached(t *testing.T) {
	p := &countingProvider{err: errors.New("boom")}
	r := secrets.NewResolverWithProviders(map[string]secrets.Provider{"p": p}, "p")

	_, _, err := r.ResolveString(context.Background(), "secret:///a")
	require.Error(t, err)
	p.err, p.value = nil, "ok"

	v, _, err := r.ResolveString(context.Background(), "secret:///a")
	require.NoError(t, err)
	assert.Equal(t, "ok", v)
}

// --- Session ---

func TestSession_DecryptFileIsIdempotent(t *testing.T) {
	r := fileResolver(t)
	dir := t.TempDir()
	s := secrets.NewSession(r, dir)
	ctx := context.Background()

	first, err := s.DecryptFile(ctx, "secret:///kube/config")
	require.NoError(t, err)
	second, err := s.DecryptFile(ctx, "secret:///kube/config")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Regexp(t, `^config-[0-9a-f-]{36}$`, first.Name)
	assert.Equal(t, filepath.Join(dir, first.Name), first.Path)

	data, err := os.ReadFile(first.Path)
	require.NoError(t, err)
	assert.Equal(t, "apiVersion: v1\nkind: Config\n", string(data))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "staged once")
	assert.Len(t, s.Files(), 1)
}

func TestSession_CloseRemovesFiles(t *testing.T) {
	r := fileResolver(t)
	s := secrets.NewSession(r, t.TempDir())

	f, err := s.DecryptFile(context.Background(), "secret:///kube/config")
	require.NoError(t, err)
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	_, err = os.Stat(f.Path)
	assert.True(t, os.IsNotExist(err))

	_, err = s.DecryptFile(context.Background(), "secret:///kube/config")
	assert.ErrorContains(t, err, "closed")
}

func TestSession_DecryptPassesThroughPlainValues(t *testing.T) {
	s := secrets.NewSession(nil, t.TempDir())
	v, err := s.Decrypt(context.Background(), "plain")
	require.NoError(t, err)
	assert.Equal(t, "plain", v)

	_, err = s.Decrypt(context.Background(), "secret:///x")
	assert.ErrorContains(t, err, "no secret providers")
}
