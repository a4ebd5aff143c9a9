package recorder

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"mercator-hq/covenant/pkg/consent"
	"mercator-hq/covenant/pkg/evidence"
)

// Config contains configuration for the evidence recorder.
type Config struct {
	// Enabled enables evidence recording.
	Enabled bool

	// AsyncBuffer is the size of the async write channel buffer.
	// Default: 1000
	AsyncBuffer int

	// WriteTimeout bounds both enqueueing and each storage write.
	// Default: 5 seconds
	WriteTimeout time.Duration

	// MaxFieldLength truncates request field values recorded as received.
	// Default: 256
	MaxFieldLength int
}

// DefaultConfig returns the default recorder configuration.
func DefaultConfig() *Config {
	return &Config{
		Enabled:        true,
		AsyncBuffer:    1000,
		WriteTimeout:   5 * time.Second,
		MaxFieldLength: 256,
	}
}

// Observer is notified about record outcomes. Metrics implement it.
type Observer interface {
	EvidenceStored(d time.Duration)
	EvidenceFailed()
	EvidenceDropped()
}

// Stats is a snapshot of recorder counters.
type Stats struct {
	Enqueued int64
	Stored   int64
	Failed   int64
	Dropped  int64
	Pending  int
}

// Recorder writes evidence records to storage from a background worker so
// that evaluations never wait on storage.
type Recorder struct {
	storage    evidence.Storage
	config     *Config
	recordChan chan *evidence.Record
	wg         sync.WaitGroup
	done       chan struct{}
	logger     *slog.Logger
	observer   Observer

	// mu guards closed. Senders hold it for reading so Close cannot
	// finish draining while a send is in flight.
	mu        sync.RWMutex
	closed    bool
	closeOnce sync.Once

	enqueued atomic.Int64
	stored   atomic.Int64
	failed   atomic.Int64
	dropped  atomic.Int64
}

// Option configures a Recorder.
type Option func(*Recorder)

// WithObserver registers an Observer.
func WithObserver(o Observer) Option {
	return func(r *Recorder) { r.observer = o }
}

// WithLogger sets the recorder logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Recorder) { r.logger = logger }
}

// NewRecorder creates a recorder and starts its worker.
func NewRecorder(storage evidence.Storage, config *Config, opts ...Option) *Recorder {
	if config == nil {
		config = DefaultConfig()
	}
	if config.AsyncBuffer <= 0 {
		config.AsyncBuffer = DefaultConfig().AsyncBuffer
	}
	if config.WriteTimeout <= 0 {
		config.WriteTimeout = DefaultConfig().WriteTimeout
	}

	r := &Recorder{
		storage:    storage,
		config:     config,
		recordChan: make(chan *evidence.Record, config.AsyncBuffer),
		done:       make(chan struct{}),
		logger:     slog.Default().With("component", "evidence.recorder"),
	}
	for _, opt := range opts {
		opt(r)
	}

	r.wg.Add(1)
	go r.worker()

	r.logger.Debug("evidence recorder initialized",
		"async_buffer", config.AsyncBuffer,
		"write_timeout", config.WriteTimeout,
	)

	return r
}

// Observe builds a record for an evaluation and enqueues it.
func (r *Recorder) Observe(ctx context.Context, req *consent.Request, result consent.Result, meta evidence.Meta) error {
	if !r.config.Enabled {
		return nil
	}
	return r.Record(ctx, evidence.NewRecord(req, result, meta))
}

// Record truncates oversized request fields and enqueues the record for
// writing. It blocks for at most WriteTimeout when the buffer is full, then
// drops the record.
func (r *Recorder) Record(ctx context.Context, record *evidence.Record) error {
	if !r.config.Enabled {
		return nil
	}
	r.truncate(record)

	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		r.drop(record, "recorder closed")
		return evidence.NewRecorderError(record.ID, evidence.ErrRecorderClosed)
	}

	timer := time.NewTimer(r.config.WriteTimeout)
	defer timer.Stop()

	select {
	case r.recordChan <- record:
		r.enqueued.Add(1)
		return nil
	case <-timer.C:
		r.drop(record, "evidence buffer full")
		return evidence.NewRecorderError(record.ID, evidence.ErrBufferFull)
	case <-ctx.Done():
		r.drop(record, "caller cancelled")
		return evidence.NewRecorderError(record.ID, ctx.Err())
	}
}

// Stats returns current counters.
func (r *Recorder) Stats() Stats {
	return Stats{
		Enqueued: r.enqueued.Load(),
		Stored:   r.stored.Load(),
		Failed:   r.failed.Load(),
		Dropped:  r.dropped.Load(),
		Pending:  len(r.recordChan),
	}
}

// Close stops accepting records, drains the buffer and waits for the worker.
// It is safe to call more than once.
func (r *Recorder) Close() error {
	r.closeOnce.Do(func() {
		r.mu.Lock()
		r.closed = true
		r.mu.Unlock()

		close(r.done)
		r.wg.Wait()

		r.logger.Debug("evidence recorder shut down",
			"stored", r.stored.Load(),
			"dropped", r.dropped.Load(),
			"failed", r.failed.Load(),
		)
	})
	return nil
}

func (r *Recorder) worker() {
	defer r.wg.Done()

	for {
		select {
		case record := <-r.recordChan:
			r.writeRecord(record)

		case <-r.done:
			for {
				select {
				case record := <-r.recordChan:
					r.writeRecord(record)
				default:
					return
				}
			}
		}
	}
}

func (r *Recorder) writeRecord(record *evidence.Record) {
	ctx, cancel := context.WithTimeout(context.Background(), r.config.WriteTimeout)
	defer cancel()

	start := time.Now()
	record.RecordedAt = start.UTC()

	if err := r.storage.Store(ctx, record); err != nil {
		r.failed.Add(1)
		if r.observer != nil {
			r.observer.EvidenceFailed()
		}
		r.logger.Error("failed to store evidence record",
			"record_id", record.ID,
			"request_id", record.RequestID,
			"error", err,
		)
		return
	}

	duration := time.Since(start)
	r.stored.Add(1)
	if r.observer != nil {
		r.observer.EvidenceStored(duration)
	}

	r.logger.Debug("evidence recorded",
		"record_id", record.ID,
		"request_id", record.RequestID,
		"decision", record.Decision,
		"duration_ms", duration.Milliseconds(),
	)

	if duration > r.config.WriteTimeout/2 {
		r.logger.Warn("slow evidence write",
			"record_id", record.ID,
			"duration_ms", duration.Milliseconds(),
			"threshold_ms", (r.config.WriteTimeout / 2).Milliseconds(),
		)
	}
}

func (r *Recorder) drop(record *evidence.Record, why string) {
	r.dropped.Add(1)
	if r.observer != nil {
		r.observer.EvidenceDropped()
	}
	r.logger.Warn("dropping evidence record",
		"reason", why,
		"record_id", record.ID,
		"request_id", record.RequestID,
		"audit_hash", record.AuditHash,
	)
}

func (r *Recorder) truncate(record *evidence.Record) {
	n := r.config.MaxFieldLength
	record.ConsentState = TruncateString(record.ConsentState, n)
	record.IntendedUse = TruncateString(record.IntendedUse, n)
	record.SensitivityLevel = TruncateString(record.SensitivityLevel, n)
	record.RequestTimestamp = TruncateString(record.RequestTimestamp, n)
}
