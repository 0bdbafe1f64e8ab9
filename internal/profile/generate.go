package profile

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/opmodel/hal/internal/halconfig"
	"github.com/opmodel/hal/internal/settings"
)

// GenerateAll produces the profiles of every enabled service, or of the
// named services when services is non-empty. Services are generated
// concurrently. Results are keyed by service and ordered by profile name.
func (g *Generator) GenerateAll(ctx context.Context, d *halconfig.DeploymentConfiguration, rt settings.RuntimeSettings, services []string) (map[string][]*Profile, error) {
	targets, err := selectServices(rt, services)
	if err != nil {
		return nil, err
	}

	var (
		mu  sync.Mutex
		out = make(map[string][]*Profile, len(targets))
	)
	eg, ctx := errgroup.WithContext(ctx)
	for _, s := range targets {
		svc, _ := settings.Lookup(s.Name)
		eg.Go(func() error {
			profiles, err := g.Generate(ctx, d, rt, svc)
			if err != nil {
				return err
			}
			mu.Lock()
			out[svc.Name] = profiles
			mu.Unlock()
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Generate produces every profile of one service, ordered by name.
func (g *Generator) Generate(ctx context.Context, d *halconfig.DeploymentConfiguration, rt settings.RuntimeSettings, svc settings.ServiceType) ([]*Profile, error) {
	factories, err := g.Factories(svc)
	if err != nil {
		return nil, err
	}
	profiles := make([]*Profile, 0, len(factories))
	for _, f := range factories {
		p, err := f.Profile(ctx, f.File, OutputFile(svc, f.File), d, rt)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, p)
	}
	sort.Slice(profiles, func(i, j int) bool { return profiles[i].Name < profiles[j].Name })
	return profiles, nil
}

func selectServices(rt settings.RuntimeSettings, names []string) ([]settings.ServiceSettings, error) {
	if len(names) == 0 {
		return rt.EnabledServices(), nil
	}
	out := make([]settings.ServiceSettings, 0, len(names))
	for _, name := range names {
		s, ok := rt.Service(name)
		if !ok {
			return nil, fmt.Errorf("unknown service %q", name)
		}
		if !s.Enabled {
			return nil, fmt.Errorf("service %q is not enabled for deployment %s", name, rt.Deployment)
		}
		out = append(out, s)
	}
	return out, nil
}
