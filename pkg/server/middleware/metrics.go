package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

// HTTPMetrics receives per-request observations. *metrics.Collector
// implements it.
type HTTPMetrics interface {
	RecordHTTPRequest(method, route string, status int, duration time.Duration)
	HTTPInFlight(delta float64)
}

// Metrics records request counts, latency and in-flight requests labeled
// by the matched chi route pattern, so path parameters never become
// label values. Unmatched requests are labeled "unmatched".
func Metrics(m HTTPMetrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			m.HTTPInFlight(1)
			defer m.HTTPInFlight(-1)

			rw := newResponseWriter(w)
			next.ServeHTTP(rw, r)

			route := "unmatched"
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				if pattern := rctx.RoutePattern(); pattern != "" {
					route = pattern
				}
			}
			m.RecordHTTPRequest(r.Method, route, rw.statusCode, time.Since(start))
		})
	}
}
