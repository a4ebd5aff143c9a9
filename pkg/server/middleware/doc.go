// Package middleware provides the HTTP middleware used by the covenant
// server.
//
// Each middleware has the func(http.Handler) http.Handler shape, so the
// set composes with chi's Use:
//
//	r := chi.NewRouter()
//	r.Use(
//	    middleware.Recovery(logger),
//	    middleware.RequestID,
//	    middleware.Logging(logger),
//	    middleware.Metrics(collector),
//	    middleware.RateLimit(100, 200),
//	    middleware.MaxBody(1 << 20),
//	    middleware.Timeout(10*time.Second),
//	)
//
// Error responses from every middleware share the ErrorResponse shape:
//
//	{"error": {"message": "rate limit exceeded", "code": "rate_limit_exceeded", "request_id": "..."}}
//
// RequestID stores the ID through the logging package, so log records
// written with a request context carry request_id automatically.
package middleware
