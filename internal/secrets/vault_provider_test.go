package secrets

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func vaultServer(t *testing.T, routes map[string]any) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := routes[r.Method+" "+r.URL.Path]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"errors":[]}`))
			return
		}
		_ = json.NewEncoder(w).Encode(body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestVaultProvider_KV2(t *testing.T) {
	srv := vaultServer(t, map[string]any{
		"GET /v1/secret/data/app/db": map[string]any{
			"data": map[string]any{"data": map[string]any{"password": "s3cr3t", "user": "app"}},
		},
	})
	p, err := newVaultProvider(ProviderConfig{Address: srv.URL, Token: "t"})
	require.NoError(t, err)

	v, err := p.Resolve(context.Background(), Ref{Provider: "vault", Path: "app/db", Key: "password"})
	require.NoError(t, err)
	assert.Equal(t, "s3cr3t", v)

	_, err = p.Resolve(context.Background(), Ref{Provider: "vault", Path: "app/db"})
	assert.ErrorContains(t, err, "select one with #key")
}

func TestVaultProvider_KV1DefaultKey(t *testing.T) {
	srv := vaultServer(t, map[string]any{
		"GET /v1/kv/app/db": map[string]any{"data": map[string]any{"value": "ok", "other": "x"}},
	})
	p, err := newVaultProvider(ProviderConfig{Address: srv.URL, Token: "t", Mount: "kv", KVVersion: 1})
	require.NoError(t, err)

	v, err := p.Resolve(context.Background(), Ref{Path: "app/db"})
	require.NoError(t, err)
	assert.Equal(t, "ok", v)
}

func TestVaultProvider_AppRoleLogin(t *testing.T) {
	srv := vaultServer(t, map[string]any{
		"PUT /v1/auth/approle/login": map[string]any{"auth": map[string]any{"client_token": "issued"}},
		"GET /v1/secret/data/app":    map[string]any{"data": map[string]any{"data": map[string]any{"value": "v"}}},
	})
	p, err := newVaultProvider(ProviderConfig{Address: srv.URL, RoleID: "r", SecretID: "s"})
	require.NoError(t, err)
	assert.Equal(t, vaultAuthAppRole, p.method)

	v, err := p.Resolve(context.Background(), Ref{Path: "app"})
	require.NoError(t, err)
	assert.Equal(t, "v", v)
	assert.Equal(t, "issued", p.client.Token())
}

func TestNewVaultProvider_Validation(t *testing.T) {
	_, err := newVaultProvider(ProviderConfig{})
	assert.ErrorContains(t, err, "address")

	_, err = newVaultProvider(ProviderConfig{Address: "http://x"})
	assert.ErrorContains(t, err, "needs a token")

	_, err = newVaultProvider(ProviderConfig{Address: "http://x", Token: "t", KVVersion: 3})
	assert.ErrorContains(t, err, "kvVersion")

	_, err = newVaultProvider(ProviderConfig{Address: "http://x", AuthMethod: "kubernetes"})
	assert.ErrorContains(t, err, "kubernetesRole")
}
