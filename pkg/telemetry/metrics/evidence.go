package metrics

import (
	"time"

	"mercator-hq/covenant/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// EvidenceMetrics tracks evidence recorder writes.
type EvidenceMetrics struct {
	stored        prometheus.Counter
	failed        prometheus.Counter
	dropped       prometheus.Counter
	writeDuration prometheus.Histogram
}

// NewEvidenceMetrics creates and registers evidence metrics.
func NewEvidenceMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *EvidenceMetrics {
	em := &EvidenceMetrics{
		stored: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: "evidence",
			Name:      "records_stored_total",
			Help:      "Evidence records written to storage",
		}),
		failed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: "evidence",
			Name:      "write_failures_total",
			Help:      "Evidence writes that returned an error",
		}),
		dropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: "evidence",
			Name:      "records_dropped_total",
			Help:      "Evidence records dropped because the recorder was full or closed",
		}),
		writeDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: cfg.Namespace,
			Subsystem: "evidence",
			Name:      "write_duration_seconds",
			Help:      "Duration of evidence writes in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
		}),
	}

	registry.MustRegister(em.stored, em.failed, em.dropped, em.writeDuration)

	return em
}

// RecordStored counts a successful write and observes its duration.
func (em *EvidenceMetrics) RecordStored(d time.Duration) {
	em.stored.Inc()
	em.writeDuration.Observe(d.Seconds())
}

// RecordFailed counts a failed write.
func (em *EvidenceMetrics) RecordFailed() {
	em.failed.Inc()
}

// RecordDropped counts a dropped record.
func (em *EvidenceMetrics) RecordDropped() {
	em.dropped.Inc()
}
