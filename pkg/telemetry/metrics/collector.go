package metrics

import (
	"strconv"
	"sync"
	"time"

	"mercator-hq/covenant/pkg/config"
	"mercator-hq/covenant/pkg/consent"

	"github.com/prometheus/client_golang/prometheus"
)

// Default label used when a route would exceed the cardinality limit.
const otherRoute = "other"

// Collector owns every covenant metric and the registry they live in.
// It implements recorder.Observer so the evidence recorder can report
// writes directly.
type Collector struct {
	config   config.MetricsConfig
	registry *prometheus.Registry

	evaluation *EvaluationMetrics
	evidence   *EvidenceMetrics
	requests   *RequestMetrics

	routes *CardinalityLimiter
}

// NewCollector creates a collector and registers its metrics on registry.
// A nil registry gets a fresh one. Empty namespace and bucket settings
// fall back to the config defaults.
//
// Example:
//
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
//	router.Handle(cfg.Telemetry.Metrics.Path, collector.Handler())
func NewCollector(cfg *config.MetricsConfig, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	c := &Collector{
		config:   *cfg,
		registry: registry,
		routes:   NewCardinalityLimiter(200),
	}
	if c.config.Namespace == "" {
		c.config.Namespace = config.DefaultMetricsNamespace
	}
	if len(c.config.EvaluationDurationBuckets) == 0 {
		c.config.EvaluationDurationBuckets = append([]float64(nil), config.DefaultEvaluationDurationBuckets...)
	}
	if len(c.config.RequestDurationBuckets) == 0 {
		c.config.RequestDurationBuckets = append([]float64(nil), config.DefaultRequestDurationBuckets...)
	}

	c.evaluation = NewEvaluationMetrics(&c.config, registry)
	c.evidence = NewEvidenceMetrics(&c.config, registry)
	c.requests = NewRequestMetrics(&c.config, registry)

	return c
}

// RecordEvaluation records one evaluation outcome.
//
// Terminal results count under their reason; escalation_triggered results
// also increment one trigger counter per named trigger. Scored results
// observe their consent cost.
func (c *Collector) RecordEvaluation(source string, result consent.Result, duration time.Duration) {
	if !c.config.Enabled || result == nil {
		return
	}

	c.evaluation.Record(source, result, duration)
}

// RecordBatch records the size of an evaluated batch.
func (c *Collector) RecordBatch(size int) {
	if !c.config.Enabled {
		return
	}

	c.evaluation.RecordBatch(size)
}

// EvidenceStored records a successful evidence write.
func (c *Collector) EvidenceStored(d time.Duration) {
	if !c.config.Enabled {
		return
	}
	c.evidence.RecordStored(d)
}

// EvidenceFailed records a failed evidence write.
func (c *Collector) EvidenceFailed() {
	if !c.config.Enabled {
		return
	}
	c.evidence.RecordFailed()
}

// EvidenceDropped records an evidence record dropped before it was written.
func (c *Collector) EvidenceDropped() {
	if !c.config.Enabled {
		return
	}
	c.evidence.RecordDropped()
}

// RecordHTTPRequest records a completed HTTP request. route should be the
// matched route pattern; unbounded values are folded into "other" once
// the route limit is reached.
func (c *Collector) RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	if !c.config.Enabled {
		return
	}

	if !c.routes.Allow(method + " " + route) {
		route = otherRoute
	}
	c.requests.Record(method, route, strconv.Itoa(status), duration)
}

// HTTPInFlight adjusts the in-flight request gauge by delta.
func (c *Collector) HTTPInFlight(delta float64) {
	if !c.config.Enabled {
		return
	}
	c.requests.inFlight.Add(delta)
}

// Registry returns the Prometheus registry used by this collector.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// CardinalityLimiter caps the number of distinct label sets admitted.
type CardinalityLimiter struct {
	maxCardinality int
	current        map[string]struct{}
	mu             sync.RWMutex
}

// NewCardinalityLimiter creates a limiter admitting at most maxCardinality sets.
func NewCardinalityLimiter(maxCardinality int) *CardinalityLimiter {
	return &CardinalityLimiter{
		maxCardinality: maxCardinality,
		current:        make(map[string]struct{}),
	}
}

// Allow reports whether labelSet is already known or still fits under the limit.
func (cl *CardinalityLimiter) Allow(labelSet string) bool {
	cl.mu.RLock()
	if _, exists := cl.current[labelSet]; exists {
		cl.mu.RUnlock()
		return true
	}
	cl.mu.RUnlock()

	cl.mu.Lock()
	defer cl.mu.Unlock()

	if _, exists := cl.current[labelSet]; exists {
		return true
	}
	if len(cl.current) >= cl.maxCardinality {
		return false
	}
	cl.current[labelSet] = struct{}{}
	return true
}

// Count returns the current cardinality.
func (cl *CardinalityLimiter) Count() int {
	cl.mu.RLock()
	defer cl.mu.RUnlock()
	return len(cl.current)
}
