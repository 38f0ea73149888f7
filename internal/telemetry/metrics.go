// Package telemetry holds the Prometheus collectors and the OpenTelemetry
// tracer used by the evolutionary loop.
//
// Collectors are registered on an explicit registry passed by the caller, so
// tests and embedded runs never touch the global default registry.
package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const (
	metricsNamespace = "symevo"
	runSubsystem     = "run"

	// TracerName identifies spans emitted by the driver.
	TracerName = "symevo.evo"
)

// Metrics is safe for concurrent use. A nil *Metrics is a valid no-op.
type Metrics struct {
	GenerationsTotal   prometheus.Counter
	EvaluationsTotal   prometheus.Counter
	EvaluationSeconds  prometheus.Histogram
	BestFitness        prometheus.Gauge
	MeanFitness        prometheus.Gauge
	MeanTreeLength     prometheus.Gauge
	RunsTotal          *prometheus.CounterVec
	EvaluationFailures prometheus.Counter
}

// NewMetrics creates the collectors and registers them on reg. A nil reg
// leaves them unregistered, which is useful when only the values matter.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		GenerationsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: runSubsystem,
			Name:      "generations_total",
			Help:      "Completed generations across all runs",
		}),
		EvaluationsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: runSubsystem,
			Name:      "evaluations_total",
			Help:      "Fitness evaluations performed",
		}),
		EvaluationSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: runSubsystem,
			Name:      "evaluation_duration_seconds",
			Help:      "Duration of one individual's fitness evaluation",
			Buckets:   prometheus.ExponentialBuckets(0.00001, 4, 10),
		}),
		BestFitness: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: runSubsystem,
			Name:      "best_fitness",
			Help:      "Best fitness found so far in the current run",
		}),
		MeanFitness: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: runSubsystem,
			Name:      "mean_fitness",
			Help:      "Mean fitness of the latest generation",
		}),
		MeanTreeLength: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: runSubsystem,
			Name:      "mean_tree_length",
			Help:      "Mean node count of the latest generation",
		}),
		RunsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: runSubsystem,
			Name:      "finished_total",
			Help:      "Finished runs by terminal state",
		}, []string{"state"}),
		EvaluationFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: runSubsystem,
			Name:      "evaluation_failures_total",
			Help:      "Fitness evaluations that returned an error",
		}),
	}
	if reg == nil {
		return m, nil
	}
	for _, c := range m.collectors() {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.GenerationsTotal,
		m.EvaluationsTotal,
		m.EvaluationSeconds,
		m.BestFitness,
		m.MeanFitness,
		m.MeanTreeLength,
		m.RunsTotal,
		m.EvaluationFailures,
	}
}

func (m *Metrics) ObserveEvaluation(d time.Duration, err error) {
	if m == nil {
		return
	}
	m.EvaluationsTotal.Inc()
	m.EvaluationSeconds.Observe(d.Seconds())
	if err != nil {
		m.EvaluationFailures.Inc()
	}
}

func (m *Metrics) ObserveGeneration(bestSoFar, mean, meanLength float64) {
	if m == nil {
		return
	}
	m.GenerationsTotal.Inc()
	m.BestFitness.Set(bestSoFar)
	m.MeanFitness.Set(mean)
	m.MeanTreeLength.Set(meanLength)
}

func (m *Metrics) RunFinished(state string) {
	if m == nil {
		return
	}
	m.RunsTotal.WithLabelValues(state).Inc()
}

// Tracer returns the driver tracer from the global provider. Without an
// installed provider the spans are no-ops.
func Tracer() trace.Tracer {
	return otel.Tracer(TracerName)
}
