package orchestrator

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics are the orchestrator's Prometheus collectors.
type Metrics struct {
	Deploys    *prometheus.CounterVec
	Rollbacks  *prometheus.CounterVec
	Deletes    *prometheus.CounterVec
	HealthWait *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them with reg. A nil reg
// leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Deploys: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hal",
			Name:      "service_deploys_total",
			Help:      "Service deploys by outcome.",
		}, []string{"service", "result"}),
		Rollbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hal",
			Name:      "service_rollbacks_total",
			Help:      "Service rollbacks by outcome.",
		}, []string{"service", "result"}),
		Deletes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hal",
			Name:      "service_deletes_total",
			Help:      "Service deletions by outcome.",
		}, []string{"service", "result"}),
		HealthWait: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "hal",
			Name:      "health_wait_seconds",
			Help:      "Time spent waiting for a service version to become healthy.",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600},
		}, []string{"service", "result"}),
	}
	if reg != nil {
		reg.MustRegister(m.Deploys, m.Rollbacks, m.Deletes, m.HealthWait)
	}
	return m
}

func result(err error) string {
	if err != nil {
		return "failure"
	}
	return "success"
}
