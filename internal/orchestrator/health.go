package orchestrator

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"k8s.io/apimachinery/pkg/util/wait"

	"github.com/opmodel/hal/internal/cluster"
	oerrors "github.com/opmodel/hal/internal/errors"
)

// Observation is one poll of a version's instances.
type Observation struct {
	Instances int
	Healthy   int
	Err       error
}

func (o Observation) String() string {
	if o.Err != nil {
		return "last poll failed: " + o.Err.Error()
	}
	return fmt.Sprintf("%d/%d instances healthy", o.Healthy, o.Instances)
}

// Promotable reports whether an observation promotes a version expecting
// replicas instances: enough instances, all healthy at once.
func (o Observation) Promotable(replicas int) bool {
	return o.Err == nil && o.Instances >= replicas && o.Healthy == o.Instances
}

func observe(instances []cluster.Instance, err error) Observation {
	if err != nil {
		return Observation{Err: err}
	}
	obs := Observation{Instances: len(instances)}
	for _, i := range instances {
		if i.Healthy() {
			obs.Healthy++
		}
	}
	return obs
}

// awaitHealthy polls until every instance of version is healthy. List
// errors are retried. Cancellation yields ErrInterrupted and the timeout
// ErrSubstrateUnavailable; both report the last observation and leave the
// cluster as it is.
func (o *Orchestrator) awaitHealthy(ctx context.Context, deployment, service, namespace string, version, replicas int, logger *log.Logger) error {
	o.emit(deployment, service, version, StateAwaitingHealthy, nil)

	waitCtx, cancel := context.WithTimeout(ctx, o.opts.Timeout)
	defer cancel()

	start := o.opts.Now()
	var last Observation
	err := wait.PollUntilContextCancel(waitCtx, o.opts.PollInterval, true, func(ctx context.Context) (bool, error) {
		last = observe(o.client.ListInstances(ctx, namespace, service, version))
		if last.Err != nil {
			logger.Debug("polling instances failed, retrying", "version", cluster.VersionLabel(version), "err", last.Err)
			return false, nil
		}
		logger.Debug("polled instances", "version", cluster.VersionLabel(version), "state", last.String())
		return last.Promotable(replicas), nil
	})
	o.opts.Metrics.HealthWait.WithLabelValues(service, result(err)).Observe(o.opts.Now().Sub(start).Seconds())
	if err == nil {
		return nil
	}

	details := map[string]string{
		"service":  service,
		"version":  cluster.VersionLabel(version),
		"replicas": strconv.Itoa(replicas),
		"observed": last.String(),
	}
	if ctx.Err() != nil {
		return oerrors.NewInterruptedError(
			fmt.Sprintf("waiting for %s to become healthy was interrupted", cluster.VersionName(service, version)), details)
	}
	return oerrors.NewSubstrateError(
		fmt.Sprintf("%s did not become healthy within %s", cluster.VersionName(service, version), o.opts.Timeout.Round(time.Second)),
		details, err)
}
