package intake

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gopkg.in/yaml.v3"

	"mercator-hq/covenant/pkg/config"
	"mercator-hq/covenant/pkg/consent"
	"mercator-hq/covenant/pkg/evidence"
	"mercator-hq/covenant/pkg/service"
	"mercator-hq/covenant/pkg/telemetry/tracing"
)

// resultSuffix is appended to the input's base name in the outbox.
const resultSuffix = ".result.json"

// Evaluator evaluates a batch of requests. *service.Service implements it.
type Evaluator interface {
	EvaluateBatch(ctx context.Context, source string, reqs []*consent.Request) ([]*service.Evaluation, error)
}

// FileResult describes one processed input document.
type FileResult struct {
	Input  string
	Output string

	// Results holds one result per request, in document order.
	Results []consent.Result

	// DecodeErr is set when the document could not be decoded. An error
	// record was written to Output instead of results.
	DecodeErr error

	// MovedTo is where the input was moved, empty when left in place.
	MovedTo string
}

// errorRecord is written to the outbox for undecodable documents.
type errorRecord struct {
	File  string    `json:"file"`
	Error string    `json:"error"`
	At    time.Time `json:"at"`
}

// Processor evaluates request documents and writes results to the outbox.
type Processor struct {
	cfg    config.IntakeConfig
	svc    Evaluator
	tracer *tracing.Tracer
	logger *slog.Logger
	now    func() time.Time
}

// Option configures a Processor or Watcher.
type Option func(*options)

type options struct {
	tracer *tracing.Tracer
	logger *slog.Logger
	now    func() time.Time
}

// WithTracer sets the tracer used for per-file spans.
func WithTracer(t *tracing.Tracer) Option {
	return func(o *options) { o.tracer = t }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithNow sets the clock used for error record timestamps.
func WithNow(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

func buildOptions(opts []Option) options {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.tracer == nil {
		o.tracer, _ = tracing.New(&config.TracingConfig{})
	}
	if o.logger == nil {
		o.logger = slog.Default().With("component", "intake")
	}
	if o.now == nil {
		o.now = time.Now
	}
	return o
}

// NewProcessor creates a Processor.
func NewProcessor(cfg config.IntakeConfig, svc Evaluator, opts ...Option) *Processor {
	o := buildOptions(opts)
	return newProcessor(cfg, svc, o)
}

func newProcessor(cfg config.IntakeConfig, svc Evaluator, o options) *Processor {
	if len(cfg.Extensions) == 0 {
		cfg.Extensions = append([]string(nil), config.DefaultIntakeExtensions...)
	}
	return &Processor{cfg: cfg, svc: svc, tracer: o.tracer, logger: o.logger, now: o.now}
}

// Accepts reports whether path has an accepted extension and is not a
// hidden file or a result file.
func (p *Processor) Accepts(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") || strings.HasSuffix(base, resultSuffix) {
		return false
	}
	ext := strings.ToLower(filepath.Ext(base))
	for _, valid := range p.cfg.Extensions {
		if ext == strings.ToLower(valid) {
			return true
		}
	}
	return false
}

// ProcessFile decodes the request document at path, evaluates it and
// writes <outbox>/<name>.result.json. A single request produces a result
// object and a list produces an array. Decode failures are reported in
// FileResult.DecodeErr with an error record in the outbox; the returned
// error covers I/O and cancellation only.
func (p *Processor) ProcessFile(ctx context.Context, path string) (fr *FileResult, err error) {
	ctx, span := p.tracer.Start(ctx, tracing.SpanIntakeFile,
		trace.WithAttributes(attribute.String("file.name", filepath.Base(path))))
	defer func() {
		if err != nil {
			tracing.SetError(span, err)
		} else if fr.DecodeErr != nil {
			tracing.SetError(span, fr.DecodeErr)
		}
		span.End()
	}()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	fr = &FileResult{
		Input:  path,
		Output: filepath.Join(p.cfg.OutboxDirectory, filepath.Base(path)+resultSuffix),
	}

	reqs, list, err := decodeDocument(path, data)
	if err != nil {
		fr.DecodeErr = err
		p.logger.WarnContext(ctx, "undecodable intake document", "file", path, "error", err)
		if err := writeJSON(fr.Output, errorRecord{File: filepath.Base(path), Error: err.Error(), At: p.now().UTC()}); err != nil {
			return nil, err
		}
		return fr, p.moveProcessed(fr)
	}

	span.SetAttributes(tracing.AttrBatchSize.Int(len(reqs)))

	evs, err := p.svc.EvaluateBatch(ctx, evidence.SourceIntake, reqs)
	if err != nil {
		return nil, fmt.Errorf("evaluate %s: %w", path, err)
	}
	fr.Results = make([]consent.Result, 0, len(evs))
	for _, ev := range evs {
		fr.Results = append(fr.Results, ev.Result)
	}

	var out any = fr.Results
	if !list {
		out = fr.Results[0]
	}
	if err := writeJSON(fr.Output, out); err != nil {
		return nil, err
	}

	p.logger.InfoContext(ctx, "intake document evaluated",
		"file", path,
		"requests", len(reqs),
		"output", fr.Output,
	)
	return fr, p.moveProcessed(fr)
}

func (p *Processor) moveProcessed(fr *FileResult) error {
	if p.cfg.ProcessedDirectory == "" {
		return nil
	}
	if err := os.MkdirAll(p.cfg.ProcessedDirectory, 0o755); err != nil {
		return fmt.Errorf("create processed directory: %w", err)
	}
	dest := filepath.Join(p.cfg.ProcessedDirectory, filepath.Base(fr.Input))
	if err := os.Rename(fr.Input, dest); err != nil {
		return fmt.Errorf("move %s: %w", fr.Input, err)
	}
	fr.MovedTo = dest
	return nil
}

// decodeDocument decodes by extension and reports whether the document
// was a list.
func decodeDocument(path string, data []byte) ([]*consent.Request, bool, error) {
	if strings.ToLower(filepath.Ext(path)) == ".json" {
		trimmed := bytes.TrimSpace(data)
		reqs, err := consent.DecodeJSONList(trimmed)
		return reqs, len(trimmed) > 0 && trimmed[0] == '[', err
	}

	reqs, err := consent.DecodeYAMLList(data)
	if err != nil {
		return nil, false, err
	}
	var node yaml.Node
	_ = yaml.Unmarshal(data, &node)
	list := len(node.Content) > 0 && node.Content[0].Kind == yaml.SequenceNode
	return reqs, list, nil
}

// writeJSON writes v to path through a temporary file and a rename, so
// readers never see a partial document.
func writeJSON(path string, v any) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create outbox: %w", err)
	}

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}

	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
