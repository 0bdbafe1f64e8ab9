package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/opmodel/hal/internal/cluster"
	oerrors "github.com/opmodel/hal/internal/errors"
	"github.com/opmodel/hal/internal/inventory"
	"github.com/opmodel/hal/internal/settings"
)

// Delete removes every version, the service and the staged configuration
// of each named service, or of every enabled service when services is
// empty. Services are removed in reverse deploy order. Deleting every
// service also drops the deployment's history.
func (o *Orchestrator) Delete(ctx context.Context, rt settings.RuntimeSettings, services []string) error {
	selected, err := selectServices(rt, services)
	if err != nil {
		return err
	}
	tiers := Tiers(selected)
	slices.Reverse(tiers)

	namespaces := map[string]bool{}
	for _, tier := range tiers {
		for _, svc := range tier {
			err := o.deleteService(ctx, rt.Deployment, svc)
			o.opts.Metrics.Deletes.WithLabelValues(svc.Name, result(err)).Inc()
			if err != nil {
				o.emit(rt.Deployment, svc.Name, 0, StateFailed, err)
				return fmt.Errorf("deleting %s: %w", svc.Name, err)
			}
			namespaces[svc.Location] = true
		}
	}

	if len(services) == 0 {
		for ns := range namespaces {
			if err := inventory.Delete(ctx, o.client, rt.Deployment, ns); err != nil {
				return err
			}
		}
	}
	return nil
}

func (o *Orchestrator) deleteService(ctx context.Context, deployment string, svc settings.ServiceSettings) error {
	o.emit(deployment, svc.Name, 0, StateDeleting, nil)

	versions, err := o.client.ListVersions(ctx, svc.Location, svc.Name)
	if err != nil {
		return err
	}
	for _, v := range versions {
		err := o.client.DeleteReplicaSet(ctx, svc.Location, svc.Name, v)
		if err != nil && !errors.Is(err, oerrors.ErrNotFound) {
			return err
		}
	}
	if err := o.client.DeleteService(ctx, svc.Location, svc.Name); err != nil {
		return err
	}
	configLabels := cluster.Merge(cluster.ServiceLabels(deployment, svc.Name),
		map[string]string{cluster.LabelComponent: cluster.ComponentConfig})
	if err := o.client.DeleteSecrets(ctx, svc.Location, configLabels); err != nil {
		return err
	}
	o.emit(deployment, svc.Name, 0, StateAbsent, nil)
	return nil
}
