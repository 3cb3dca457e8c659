package observability

import (
	"context"
	"net/http"
	"strconv"

	"github.com/aretw0/sieve/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Namespace prefixes every metric name.
const Namespace = "sieve"

// Metrics tracks validation outcomes.
//
// Metrics:
//   - sieve_validations_total: Validations by schema and verdict
//   - sieve_validation_errors_total: Errors in the result tree by schema and kind
//   - sieve_validation_duration_seconds: Validation duration by schema
//   - sieve_rule_evaluation_failures_total: Rule clauses that failed to evaluate
type Metrics struct {
	registry *prometheus.Registry

	validationsTotal   *prometheus.CounterVec
	errorsTotal        *prometheus.CounterVec
	validationDuration *prometheus.HistogramVec
	ruleFailuresTotal  *prometheus.CounterVec
}

// NewMetrics creates and registers the metrics. A nil registry gets a fresh
// one.
func NewMetrics(registry *prometheus.Registry) *Metrics {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	m := &Metrics{
		registry: registry,
		validationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "validations_total",
				Help:      "Total number of validations",
			},
			[]string{"schema", "valid"},
		),
		errorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "validation_errors_total",
				Help:      "Total number of validation errors",
			},
			[]string{"schema", "kind"},
		),
		validationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: Namespace,
				Name:      "validation_duration_seconds",
				Help:      "Duration of validations in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.000001, 4, 10), // 1µs to 262ms
			},
			[]string{"schema"},
		),
		ruleFailuresTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "rule_evaluation_failures_total",
				Help:      "Total number of rule clauses that failed to evaluate",
			},
			[]string{"schema", "field"},
		),
	}

	registry.MustRegister(
		m.validationsTotal,
		m.errorsTotal,
		m.validationDuration,
		m.ruleFailuresTotal,
	)
	return m
}

// Hooks returns lifecycle hooks that record into m.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnValidate:            m.recordValidation,
		OnRuleEvaluationError: m.recordRuleFailure,
	}
}

// Handler returns an HTTP handler for the Prometheus metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		ErrorHandling: promhttp.ContinueOnError,
	})
}

// Registry returns the registry the metrics are registered with.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) recordValidation(_ context.Context, ev *domain.ValidationEvent) {
	m.validationsTotal.WithLabelValues(ev.Schema, strconv.FormatBool(ev.Valid)).Inc()
	m.validationDuration.WithLabelValues(ev.Schema).Observe(ev.Duration.Seconds())
	for kind, n := range ev.Errors {
		m.errorsTotal.WithLabelValues(ev.Schema, string(kind)).Add(float64(n))
	}
}

func (m *Metrics) recordRuleFailure(_ context.Context, ev *domain.RuleEvent) {
	m.ruleFailuresTotal.WithLabelValues(ev.Schema, ev.Field).Inc()
}
