package retention

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Scheduler runs a Pruner on a cron schedule. A run that is still going
// when the next one fires is skipped rather than overlapped.
type Scheduler struct {
	pruner *Pruner
	logger *slog.Logger

	mu      sync.Mutex
	cron    *cron.Cron
	entry   cron.EntryID
	running bool
}

// NewScheduler creates a stopped scheduler for pruner.
func NewScheduler(pruner *Pruner) *Scheduler {
	logger := pruner.logger.With("subcomponent", "scheduler")
	cl := cronLogger{logger}
	return &Scheduler{
		pruner: pruner,
		logger: logger,
		cron: cron.New(
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
	}
}

// Start schedules pruning with the pruner's PruneSchedule. An empty schedule
// is a no-op. Cancelling ctx stops the scheduler.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return errors.New("retention scheduler already running")
	}
	expr := s.pruner.config.PruneSchedule
	if expr == "" {
		s.logger.Info("no prune schedule configured")
		return nil
	}

	schedule, err := ParseSchedule(expr)
	if err != nil {
		return err
	}
	s.entry = s.cron.Schedule(schedule, cron.FuncJob(func() { s.run(ctx) }))
	s.cron.Start()
	s.running = true

	s.logger.Info("retention scheduler started",
		"schedule", expr,
		"retention_days", s.pruner.config.RetentionDays,
		"max_records", s.pruner.config.MaxRecords,
		"next_run", schedule.Next(s.pruner.now()),
	)

	go func() {
		<-ctx.Done()
		s.Stop()
	}()
	return nil
}

// ParseSchedule parses a standard five-field cron expression or a
// descriptor such as @daily.
func ParseSchedule(expr string) (cron.Schedule, error) {
	schedule, err := cron.ParseStandard(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid cron schedule %q: %w", expr, err)
	}
	return schedule, nil
}

func (s *Scheduler) run(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	started := time.Now()
	deleted, err := s.pruner.Prune(ctx)
	if err != nil {
		s.logger.Error("scheduled pruning failed", "error", err)
		return
	}
	level := slog.LevelDebug
	if deleted > 0 {
		level = slog.LevelInfo
	}
	s.logger.Log(ctx, level, "scheduled pruning finished",
		"deleted", deleted,
		"duration", time.Since(started),
	)
}

// Stop halts scheduling and waits for a run in progress to finish. It is
// safe to call more than once.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}
	<-s.cron.Stop().Done()
	s.cron.Remove(s.entry)
	s.running = false
	s.logger.Info("retention scheduler stopped")
}

// IsRunning reports whether a schedule is active.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// NextRun returns the next scheduled pruning time, or nil when stopped.
func (s *Scheduler) NextRun() *time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}
	next := s.cron.Entry(s.entry).Next
	if next.IsZero() {
		return nil
	}
	return &next
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct{ l *slog.Logger }

func (c cronLogger) Info(msg string, keysAndValues ...any) {
	c.l.Debug("cron: "+msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...any) {
	c.l.Error("cron: "+msg, append([]any{"error", err}, keysAndValues...)...)
}
