// Package server exposes the consent evaluator over HTTP.
//
// # Routes
//
//	POST /v1/evaluate        one request object in, one result out
//	POST /v1/evaluate/batch  array of request objects in, array of results out
//	POST /v1/verify          recompute a scored result's audit hash
//	GET  /v1/evidence        query recorded evidence
//	GET  /health             liveness
//	GET  /ready              readiness, including the evidence storage ping
//	GET  /version            build information
//	GET  /metrics            Prometheus exposition (when metrics are enabled)
//
// Health and metrics paths come from the telemetry config.
//
// Every policy outcome is a 200: a DENY or ESCALATE is a successful
// evaluation, not a client error. A 400 means the body could not be read
// as a request object. Single evaluations report the evidence record id
// in X-Evidence-ID when evidence recording is enabled.
//
// # Usage
//
//	tel, err := telemetry.New(&cfg.Telemetry, version, nil)
//	if err != nil {
//	    return err
//	}
//	svc := service.New(
//	    service.WithTracer(tel.Tracer),
//	    service.WithMetrics(tel.Metrics),
//	    service.WithEvidence(rec),
//	    service.WithLimits(cfg.Evaluator),
//	)
//	srv := server.New(cfg, svc, tel, server.WithEvidence(store))
//	return srv.Start(ctx)
//
// Start blocks until ctx is cancelled or SIGINT/SIGTERM arrives, then
// drains in-flight requests for up to server.shutdown_timeout.
//
// # Middleware
//
// The chain, outermost first, is request ID, panic recovery, tracing,
// access logging, metrics and rate limiting. Routes under /v1 add a body
// size cap and a per-request timeout. See package middleware.
package server
