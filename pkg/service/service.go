package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"mercator-hq/covenant/pkg/config"
	"mercator-hq/covenant/pkg/consent"
	"mercator-hq/covenant/pkg/evidence"
	"mercator-hq/covenant/pkg/telemetry/logging"
	"mercator-hq/covenant/pkg/telemetry/tracing"
)

// ErrBatchTooLarge is returned when a batch exceeds the configured maximum.
var ErrBatchTooLarge = errors.New("batch exceeds maximum size")

// Metrics receives evaluation outcomes. *metrics.Collector implements it.
type Metrics interface {
	RecordEvaluation(source string, result consent.Result, duration time.Duration)
	RecordBatch(size int)
}

// EvidenceSink persists evidence records. *recorder.Recorder implements it.
type EvidenceSink interface {
	Record(ctx context.Context, record *evidence.Record) error
}

// Evaluation is a sealed result plus what the service observed about it.
type Evaluation struct {
	Result consent.Result

	// EvidenceID is the id of the evidence record, empty when none was
	// enqueued.
	EvidenceID string

	EvaluatedAt time.Time
	Duration    time.Duration
}

// Service runs consent evaluations and observes them: one span, one
// metrics sample, one evidence record and one log line per request.
// Observation never changes a result.
type Service struct {
	evaluator   *consent.Evaluator
	tracer      *tracing.Tracer
	metrics     Metrics
	evidence    EvidenceSink
	logger      *slog.Logger
	concurrency int
	maxBatch    int
	now         func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithEvaluator sets the evaluator. Defaults to one on the system clock.
func WithEvaluator(e *consent.Evaluator) Option {
	return func(s *Service) { s.evaluator = e }
}

// WithTracer sets the tracer. Defaults to a noop tracer.
func WithTracer(t *tracing.Tracer) Option {
	return func(s *Service) { s.tracer = t }
}

// WithMetrics sets the metrics sink.
func WithMetrics(m Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithEvidence sets where evidence records go.
func WithEvidence(sink EvidenceSink) Option {
	return func(s *Service) { s.evidence = sink }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithLimits sets batch concurrency and maximum batch size from config.
func WithLimits(cfg config.EvaluatorConfig) Option {
	return func(s *Service) {
		if cfg.BatchConcurrency > 0 {
			s.concurrency = cfg.BatchConcurrency
		}
		if cfg.MaxBatchSize > 0 {
			s.maxBatch = cfg.MaxBatchSize
		}
	}
}

// WithNow sets the clock used for evaluated_at. Audit hashes use the
// evaluator's own clock.
func WithNow(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// New creates a Service.
func New(opts ...Option) *Service {
	s := &Service{
		concurrency: config.DefaultBatchConcurrency,
		maxBatch:    config.DefaultMaxBatchSize,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.evaluator == nil {
		s.evaluator = consent.NewEvaluator()
	}
	if s.tracer == nil {
		s.tracer = tracing.Noop()
	}
	if s.logger == nil {
		s.logger = slog.Default().With("component", "service")
	}
	return s
}

// Evaluate evaluates req and observes the outcome. It never fails: a
// failure to record evidence is logged and leaves EvidenceID empty.
func (s *Service) Evaluate(ctx context.Context, source string, req *consent.Request) *Evaluation {
	ctx = logging.WithSource(ctx, source)
	ctx, span := s.tracer.Start(ctx, tracing.SpanEvaluate,
		trace.WithAttributes(tracing.RequestAttributes(req)...),
		trace.WithAttributes(tracing.AttrSource.String(source)),
	)
	defer span.End()

	evaluatedAt := s.now().UTC()
	start := time.Now()
	result := s.evaluator.Evaluate(req)
	duration := time.Since(start)

	tracing.SetResultAttributes(span, result)
	if s.metrics != nil {
		s.metrics.RecordEvaluation(source, result, duration)
	}

	ev := &Evaluation{
		Result:      result,
		EvaluatedAt: evaluatedAt,
		Duration:    duration,
	}

	if s.evidence != nil {
		record := evidence.NewRecord(req, result, evidence.Meta{
			RequestID:      logging.GetRequestID(ctx),
			Source:         source,
			EvaluatedAt:    evaluatedAt,
			EvaluationTime: duration,
		})
		ctx = logging.WithEvaluationID(ctx, record.ID)
		if err := s.evidence.Record(ctx, record); err != nil {
			tracing.SetError(span, err)
			s.logger.WarnContext(ctx, "evidence not recorded", "error", err)
		} else {
			ev.EvidenceID = record.ID
		}
	}

	s.log(ctx, result, duration)
	return ev
}

func (s *Service) log(ctx context.Context, result consent.Result, duration time.Duration) {
	attrs := []any{
		"decision", result.Decision().String(),
		"audit_hash", result.AuditHash(),
		"duration", duration,
	}
	switch r := result.(type) {
	case *consent.Terminal:
		attrs = append(attrs, "reason", r.Reason().String(), "detail", r.Detail().String())
	case *consent.Scored:
		attrs = append(attrs, "consent_cost", r.ConsentCost())
	}
	s.logger.DebugContext(ctx, "consent evaluated", attrs...)
}

// EvaluateBatch evaluates every request concurrently, bounded by the
// configured concurrency, and returns evaluations in input order.
// It fails only when the batch is too large or ctx is cancelled.
func (s *Service) EvaluateBatch(ctx context.Context, source string, reqs []*consent.Request) ([]*Evaluation, error) {
	if s.maxBatch > 0 && len(reqs) > s.maxBatch {
		return nil, fmt.Errorf("%w: %d requests, limit %d", ErrBatchTooLarge, len(reqs), s.maxBatch)
	}

	ctx, span := s.tracer.Start(ctx, tracing.SpanEvaluateBatch,
		trace.WithAttributes(
			tracing.AttrSource.String(source),
			tracing.AttrBatchSize.Int(len(reqs)),
		),
	)
	defer span.End()

	if s.metrics != nil {
		s.metrics.RecordBatch(len(reqs))
	}

	out := make([]*Evaluation, len(reqs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for i, req := range reqs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			out[i] = s.Evaluate(gctx, source, req)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		tracing.SetError(span, err)
		return nil, err
	}
	return out, nil
}
