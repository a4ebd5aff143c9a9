package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler returns an HTTP handler exposing the collector's registry.
//
// Mount it at MetricsConfig.Path (default "/metrics"):
//
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
//	router.Method(http.MethodGet, cfg.Telemetry.Metrics.Path, collector.Handler())
//
// Only series registered on the collector's own registry are served; the
// default global registry is not included. OpenMetrics encoding is used when
// the scraper negotiates it, otherwise the Prometheus text format. If one
// collector fails the remaining series are still served.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(
		c.registry,
		promhttp.HandlerOpts{
			EnableOpenMetrics: true,
			ErrorHandling:     promhttp.ContinueOnError,
		},
	)
}
