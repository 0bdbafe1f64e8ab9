package orchestrator

import (
	"context"
	"fmt"
	"slices"

	"github.com/opmodel/hal/internal/cluster"
	oerrors "github.com/opmodel/hal/internal/errors"
	"github.com/opmodel/hal/internal/inventory"
	"github.com/opmodel/hal/internal/output"
	"github.com/opmodel/hal/internal/settings"
)

// Rollback retires version of a service and returns traffic to the
// highest version below it, then waits for that version to be healthy.
// It returns the version rolled back to. The prior version must still
// exist; otherwise nothing is deleted and the error wraps
// ErrConfigNotFound.
func (o *Orchestrator) Rollback(ctx context.Context, rt settings.RuntimeSettings, service string, version int) (int, error) {
	svc, ok := rt.Service(service)
	if !ok {
		return 0, oerrors.NewConfigNotFoundError(fmt.Sprintf("unknown service %q", service), service, "")
	}
	prior, err := o.rollback(ctx, rt.Deployment, svc, version)
	o.opts.Metrics.Rollbacks.WithLabelValues(service, result(err)).Inc()
	if err != nil {
		o.emit(rt.Deployment, service, version, StateFailed, err)
	}
	return prior, err
}

func (o *Orchestrator) rollback(ctx context.Context, deployment string, svc settings.ServiceSettings, version int) (int, error) {
	logger := output.ServiceLogger(svc.Name)

	versions, err := o.client.ListVersions(ctx, svc.Location, svc.Name)
	if err != nil {
		return 0, err
	}
	if !slices.Contains(versions, version) {
		return 0, oerrors.NewNotFoundError(
			fmt.Sprintf("%s does not exist", cluster.VersionName(svc.Name, version)), svc.Location,
			"List versions with: hal deploy history")
	}
	prior := 0
	for _, v := range versions {
		if v < version && v > prior {
			prior = v
		}
	}
	if prior == 0 {
		return 0, oerrors.NewConfigNotFoundError(
			fmt.Sprintf("no version of %s older than %s to roll back to", svc.Name, cluster.VersionLabel(version)),
			cluster.VersionName(svc.Name, version), "")
	}

	o.emit(deployment, svc.Name, version, StateRollingBack, nil)
	if err := o.client.DeleteReplicaSet(ctx, svc.Location, svc.Name, version); err != nil {
		return 0, err
	}
	if err := o.retarget(ctx, deployment, svc, prior); err != nil {
		return 0, err
	}
	replicas := 1
	if svc.Sizing.Replicas != nil {
		replicas = *svc.Sizing.Replicas
	}
	if err := o.awaitHealthy(ctx, deployment, svc.Name, svc.Location, prior, replicas, logger); err != nil {
		return prior, err
	}

	if !o.opts.SkipHistory {
		o.recordRollback(ctx, deployment, svc, prior)
	}
	o.emit(deployment, svc.Name, prior, StateRunning, nil)
	return prior, nil
}

// recordRollback re-records the entry the prior version was promoted with,
// moving it to the front of the history.
func (o *Orchestrator) recordRollback(ctx context.Context, deployment string, svc settings.ServiceSettings, version int) {
	logger := output.ServiceLogger(svc.Name)
	entry := inventory.Entry{Service: svc.Name, Version: version}
	h, err := inventory.Load(ctx, o.client, deployment, svc.Location)
	if err == nil && h != nil {
		for _, e := range h.Entries() {
			if e.Service == svc.Name && e.Version == version {
				entry = e
				entry.Timestamp = ""
				break
			}
		}
	}
	if err := inventory.Record(ctx, o.client, deployment, svc.Location, entry); err != nil {
		logger.Warn("could not record deployment history", "err", err)
	}
}
