package secrets

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"
)

// Provider resolves a reference against one backend.
type Provider interface {
	Resolve(ctx context.Context, ref Ref) (string, error)
}

// Resolver dispatches references to named providers and caches the clear
// text per reference. It is safe for concurrent use; concurrent lookups of
// the same reference share a single backend call.
type Resolver struct {
	providers       map[string]Provider
	defaultProvider string

	mu    sync.Mutex
	cache map[string]string
	group singleflight.Group
}

// NewResolver builds a resolver from cfg. Relative file-provider paths are
// taken from baseDir.
func NewResolver(cfg Config, baseDir string) (*Resolver, error) {
	providers := make(map[string]Provider, len(cfg.Providers))
	for name, pcfg := range cfg.Providers {
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, fmt.Errorf("secret provider name cannot be empty")
		}
		switch strings.ToLower(strings.TrimSpace(pcfg.Type)) {
		case "file":
			p, err := newFileProvider(pcfg.Path, baseDir)
			if err != nil {
				return nil, fmt.Errorf("secret provider %q: %w", name, err)
			}
			providers[name] = p
		case "vault":
			p, err := newVaultProvider(pcfg)
			if err != nil {
				return nil, fmt.Errorf("secret provider %q: %w", name, err)
			}
			providers[name] = p
		case "":
			return nil, fmt.Errorf("secret provider %q is missing a type", name)
		default:
			return nil, fmt.Errorf("secret provider %q has unsupported type %q", name, pcfg.Type)
		}
	}
	return NewResolverWithProviders(providers, cfg.DefaultProvider), nil
}

// NewResolverWithProviders wires already-built providers.
func NewResolverWithProviders(providers map[string]Provider, defaultProvider string) *Resolver {
	return &Resolver{
		providers:       providers,
		defaultProvider: strings.TrimSpace(defaultProvider),
		cache:           make(map[string]string),
	}
}

// ProviderNames lists the configured providers in sorted order.
func (r *Resolver) ProviderNames() []string {
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Parse parses value with this resolver's default provider.
func (r *Resolver) Parse(value string) (Ref, bool, error) {
	return ParseRef(value, r.defaultProvider)
}

// ResolveString returns the clear text for value when it is a reference.
// Non-references are returned unchanged with replaced=false.
func (r *Resolver) ResolveString(ctx context.Context, value string) (resolved string, replaced bool, err error) {
	ref, ok, err := r.Parse(value)
	if !ok {
		return value, false, nil
	}
	if err != nil {
		return "", false, err
	}
	v, err := r.Resolve(ctx, ref)
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

// Resolve returns the clear text of ref.
func (r *Resolver) Resolve(ctx context.Context, ref Ref) (string, error) {
	key := ref.cacheKey()
	r.mu.Lock()
	cached, ok := r.cache[key]
	r.mu.Unlock()
	if ok {
		return cached, nil
	}

	v, err, _ := r.group.Do(key, func() (any, error) {
		r.mu.Lock()
		cached, ok := r.cache[key]
		r.mu.Unlock()
		if ok {
			return cached, nil
		}
		provider := r.providers[ref.Provider]
		if provider == nil {
			return "", fmt.Errorf("secret provider %q is not configured", ref.Provider)
		}
		val, err := provider.Resolve(ctx, ref)
		if err != nil {
			return "", err
		}
		r.mu.Lock()
		r.cache[key] = val
		r.mu.Unlock()
		return val, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}
