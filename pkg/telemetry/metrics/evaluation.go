package metrics

import (
	"time"

	"mercator-hq/covenant/pkg/config"
	"mercator-hq/covenant/pkg/consent"

	"github.com/prometheus/client_golang/prometheus"
)

// Reason label used for scored (non-terminal) results.
const scoredReason = "scored"

// EvaluationMetrics tracks consent evaluation outcomes.
//
// Metrics:
//   - covenant_decisions_total: decisions by decision, reason, source
//   - covenant_escalation_triggers_total: escalation triggers by name
//   - covenant_consent_cost: consent cost of scored results
//   - covenant_evaluation_duration_seconds: evaluation latency by decision
//   - covenant_batch_size: requests per batch evaluation
type EvaluationMetrics struct {
	decisionsTotal *prometheus.CounterVec
	triggersTotal  *prometheus.CounterVec
	consentCost    prometheus.Histogram
	duration       *prometheus.HistogramVec
	batchSize      prometheus.Histogram
}

// NewEvaluationMetrics creates and registers evaluation metrics.
func NewEvaluationMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *EvaluationMetrics {
	em := &EvaluationMetrics{
		decisionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "decisions_total",
				Help:      "Total consent decisions by decision, reason and source",
			},
			[]string{"decision", "reason", "source"},
		),

		triggersTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "escalation_triggers_total",
				Help:      "Escalation triggers observed, counted once per trigger",
			},
			[]string{"trigger"},
		),

		// Products of the base and multiplier tables.
		consentCost: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Name:      "consent_cost",
				Help:      "Consent cost of scored evaluations",
				Buckets:   []float64{1, 2, 3, 4, 5, 6, 8, 10, 12, 15, 20, 25},
			},
		),

		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Name:      "evaluation_duration_seconds",
				Help:      "Duration of consent evaluations in seconds",
				Buckets:   cfg.EvaluationDurationBuckets,
			},
			[]string{"decision"},
		),

		batchSize: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Name:      "batch_size",
				Help:      "Number of requests per batch evaluation",
				Buckets:   prometheus.ExponentialBuckets(1, 4, 7),
			},
		),
	}

	registry.MustRegister(
		em.decisionsTotal,
		em.triggersTotal,
		em.consentCost,
		em.duration,
		em.batchSize,
	)

	return em
}

// Record records a single evaluation result.
func (em *EvaluationMetrics) Record(source string, result consent.Result, duration time.Duration) {
	decision := result.Decision().String()
	reason := scoredReason

	switch r := result.(type) {
	case *consent.Terminal:
		reason = r.Reason().String()
		if r.Reason() == consent.ReasonEscalationTriggered {
			for _, trigger := range r.Detail().Items() {
				em.triggersTotal.WithLabelValues(trigger).Inc()
			}
		}
	case *consent.Scored:
		em.consentCost.Observe(float64(r.ConsentCost()))
	}

	em.decisionsTotal.WithLabelValues(decision, reason, source).Inc()
	em.duration.WithLabelValues(decision).Observe(duration.Seconds())
}

// RecordBatch observes a batch size.
func (em *EvaluationMetrics) RecordBatch(size int) {
	em.batchSize.Observe(float64(size))
}
