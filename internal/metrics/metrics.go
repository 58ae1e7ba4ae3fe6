// Package metrics exports evaluation cycles as Prometheus metrics.
package metrics

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aretw0/harness/pkg/domain"
)

// Outcome labels.
const (
	OutcomeSuccess = "success"
	OutcomeEngine  = "engine_failure"
	OutcomeSerial  = "serialization_failure"
	OutcomeOther   = "error"
)

// Collector records evaluation metrics on its own registry.
type Collector struct {
	registry    *prometheus.Registry
	evaluations *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	stale       prometheus.Counter
	inFlight    prometheus.Gauge
}

// NewCollector creates a Collector with Go runtime and process collectors registered.
func NewCollector() *Collector {
	reg := prometheus.NewRegistry()
	c := &Collector{
		registry: reg,
		evaluations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "harness_evaluations_total",
				Help: "Total number of completed evaluations",
			},
			[]string{"outcome"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "harness_evaluation_duration_seconds",
				Help:    "Duration of engine evaluations",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"outcome"},
		),
		stale: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "harness_stale_results_total",
			Help: "Completed evaluations discarded because a newer one was already rendered",
		}),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "harness_evaluations_in_flight",
			Help: "Evaluations currently running",
		}),
	}
	reg.MustRegister(
		c.evaluations, c.duration, c.stale, c.inFlight,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return c
}

// Hooks returns lifecycle hooks that feed the collector.
func (c *Collector) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnEvaluateStart: func(ctx context.Context, e *domain.EvaluationEvent) {
			c.inFlight.Inc()
		},
		OnEvaluateDone: func(ctx context.Context, e *domain.EvaluationEvent) {
			c.inFlight.Dec()
			outcome := Classify(e.Err)
			c.evaluations.WithLabelValues(outcome).Inc()
			c.duration.WithLabelValues(outcome).Observe(e.Duration.Seconds())
			if e.Stale {
				c.stale.Inc()
			}
		},
	}
}

// Classify maps an evaluation error to an outcome label.
func Classify(err error) string {
	switch {
	case err == nil:
		return OutcomeSuccess
	case domain.IsEngineFailure(err):
		return OutcomeEngine
	case domain.IsSerializationFailure(err):
		return OutcomeSerial
	default:
		return OutcomeOther
	}
}

// Registry exposes the underlying registry, mainly for tests.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the metrics in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
