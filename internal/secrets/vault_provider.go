package secrets

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	vault "github.com/hashicorp/vault/api"
)

const (
	vaultAuthToken      = "token"
	vaultAuthAppRole    = "approle"
	vaultAuthKubernetes = "kubernetes"

	defaultKubernetesTokenPath = "/var/run/secrets/kubernetes.io/serviceaccount/token"
)

// vaultProvider reads KV v1 or v2 secrets. Logins other than a static token
// happen once, on first use.
type vaultProvider struct {
	client    *vault.Client
	mount     string
	kvVersion int
	key       string
	cfg       ProviderConfig
	method    string

	authOnce sync.Once
	authErr  error
}

func newVaultProvider(cfg ProviderConfig) (*vaultProvider, error) {
	address := strings.TrimSpace(cfg.Address)
	if address == "" {
		return nil, fmt.Errorf("vault address is required")
	}
	method, err := vaultAuthMethod(cfg)
	if err != nil {
		return nil, err
	}

	apiCfg := vault.DefaultConfig()
	apiCfg.Address = address
	client, err := vault.NewClient(apiCfg)
	if err != nil {
		return nil, fmt.Errorf("creating vault client: %w", err)
	}
	if ns := strings.TrimSpace(cfg.Namespace); ns != "" {
		client.SetNamespace(ns)
	}
	if method == vaultAuthToken {
		client.SetToken(strings.TrimSpace(cfg.Token))
	}

	mount := strings.Trim(strings.TrimSpace(cfg.Mount), "/")
	if mount == "" {
		mount = "secret"
	}
	kvVersion := cfg.KVVersion
	if kvVersion == 0 {
		kvVersion = 2
	}
	if kvVersion != 1 && kvVersion != 2 {
		return nil, fmt.Errorf("vault kvVersion must be 1 or 2, got %d", kvVersion)
	}

	return &vaultProvider{
		client:    client,
		mount:     mount,
		kvVersion: kvVersion,
		key:       strings.TrimSpace(cfg.Key),
		cfg:       cfg,
		method:    method,
	}, nil
}

func vaultAuthMethod(cfg ProviderConfig) (string, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.AuthMethod)) {
	case "":
		switch {
		case cfg.RoleID != "" || cfg.SecretID != "":
			return vaultAuthAppRole, nil
		case cfg.KubernetesRole != "":
			return vaultAuthKubernetes, nil
		case cfg.Token != "":
			return vaultAuthToken, nil
		}
		return "", fmt.Errorf("vault provider needs a token, approle credentials or a kubernetes role")
	case "token":
		return vaultAuthToken, nil
	case "approle", "app-role":
		if cfg.RoleID == "" || cfg.SecretID == "" {
			return "", fmt.Errorf("vault approle auth requires roleId and secretId")
		}
		return vaultAuthAppRole, nil
	case "kubernetes", "k8s":
		if cfg.KubernetesRole == "" {
			return "", fmt.Errorf("vault kubernetes auth requires kubernetesRole")
		}
		return vaultAuthKubernetes, nil
	default:
		return "", fmt.Errorf("unsupported vault auth method %q", cfg.AuthMethod)
	}
}

func (p *vaultProvider) ensureAuth(ctx context.Context) error {
	if p.method == vaultAuthToken {
		return nil
	}
	p.authOnce.Do(func() {
		p.authErr = p.login(ctx)
	})
	return p.authErr
}

func (p *vaultProvider) login(ctx context.Context) error {
	mount := strings.Trim(p.cfg.AuthMount, "/")
	if mount == "" {
		mount = p.method
	}

	var data map[string]any
	switch p.method {
	case vaultAuthAppRole:
		data = map[string]any{"role_id": p.cfg.RoleID, "secret_id": p.cfg.SecretID}
	case vaultAuthKubernetes:
		tokenPath := p.cfg.KubernetesTokenPath
		if tokenPath == "" {
			tokenPath = defaultKubernetesTokenPath
		}
		jwt, err := os.ReadFile(tokenPath)
		if err != nil {
			return fmt.Errorf("reading kubernetes service account token: %w", err)
		}
		data = map[string]any{"role": p.cfg.KubernetesRole, "jwt": strings.TrimSpace(string(jwt))}
	}

	secret, err := p.client.Logical().WriteWithContext(ctx, "auth/"+mount+"/login", data)
	if err != nil {
		return fmt.Errorf("vault %s login: %w", p.method, err)
	}
	if secret == nil || secret.Auth == nil || secret.Auth.ClientToken == "" {
		return fmt.Errorf("vault %s login returned no token", p.method)
	}
	p.client.SetToken(secret.Auth.ClientToken)
	return nil
}

func (p *vaultProvider) Resolve(ctx context.Context, ref Ref) (string, error) {
	if err := p.ensureAuth(ctx); err != nil {
		return "", err
	}
	data, err := p.read(ctx, ref.Path)
	if err != nil {
		return "", fmt.Errorf("reading vault secret %q: %w", ref.Path, err)
	}
	key := ref.Key
	if key == "" {
		key = p.key
	}
	return selectSecretValue(data, key)
}

func (p *vaultProvider) read(ctx context.Context, path string) (map[string]any, error) {
	switch p.kvVersion {
	case 1:
		secret, err := p.client.Logical().ReadWithContext(ctx, p.mount+"/"+path)
		if err != nil {
			return nil, err
		}
		if secret == nil || secret.Data == nil {
			return nil, fmt.Errorf("secret not found")
		}
		return secret.Data, nil
	default:
		secret, err := p.client.KVv2(p.mount).Get(ctx, path)
		if err != nil {
			return nil, err
		}
		if secret == nil || secret.Data == nil {
			return nil, fmt.Errorf("secret not found")
		}
		return secret.Data, nil
	}
}

// selectSecretValue picks key, then "value", then the only entry.
func selectSecretValue(data map[string]any, key string) (string, error) {
	for _, candidate := range []string{key, "value"} {
		if candidate == "" {
			continue
		}
		if v, ok := data[candidate]; ok {
			return stringValue(v)
		}
	}
	if len(data) == 1 {
		for _, v := range data {
			return stringValue(v)
		}
	}
	if key == "" {
		return "", fmt.Errorf("secret holds %d values; select one with #key", len(data))
	}
	return "", fmt.Errorf("secret key %q not found", key)
}

func stringValue(v any) (string, error) {
	switch typed := v.(type) {
	case string:
		return typed, nil
	case []byte:
		return string(typed), nil
	default:
		return "", fmt.Errorf("secret value is a %T, not a string", v)
	}
}
