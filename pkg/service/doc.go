// Package service runs consent evaluations for the CLI, the HTTP server
// and the intake watcher.
//
// The consent evaluator is pure. Service wraps it with a tracing span,
// metrics, evidence recording and logging, and fans batches out over an
// errgroup while keeping results in input order.
package service
