package intake

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/fsnotify/fsnotify"

	"mercator-hq/covenant/pkg/config"
)

// Watcher evaluates request documents dropped into the inbox directory.
type Watcher struct {
	cfg       config.IntakeConfig
	processor *Processor
	logger    *slog.Logger

	// ready carries debounced paths to the Run loop.
	ready chan string

	// onProcessed is called after each file, for tests.
	onProcessed func(*FileResult, error)
}

// NewWatcher creates a Watcher. It does not touch the filesystem until Run.
func NewWatcher(cfg config.IntakeConfig, svc Evaluator, opts ...Option) *Watcher {
	o := buildOptions(opts)
	if cfg.Debounce <= 0 {
		cfg.Debounce = config.DefaultIntakeDebounce
	}
	return &Watcher{
		cfg:       cfg,
		processor: newProcessor(cfg, svc, o),
		logger:    o.logger,
		ready:     make(chan string, 64),
	}
}

// Processor returns the watcher's file processor.
func (w *Watcher) Processor() *Processor {
	return w.processor
}

// Run processes documents already in the inbox, then watches it until ctx
// is canceled. Processing errors are logged; Run only fails when the
// inbox cannot be watched.
func (w *Watcher) Run(ctx context.Context) error {
	if err := os.MkdirAll(w.cfg.Directory, 0o755); err != nil {
		return fmt.Errorf("create inbox: %w", err)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer fsw.Close()

	if err := fsw.Add(w.cfg.Directory); err != nil {
		return fmt.Errorf("failed to watch %s: %w", w.cfg.Directory, err)
	}

	w.logger.Info("watching inbox",
		"directory", w.cfg.Directory,
		"outbox", w.cfg.OutboxDirectory,
		"debounce", w.cfg.Debounce,
	)

	if err := w.drainBacklog(ctx); err != nil {
		return err
	}

	debouncer := NewDebouncer(w.cfg.Debounce)
	defer debouncer.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("inbox watcher stopped")
			return nil

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if !w.shouldProcess(event) {
				continue
			}
			path := event.Name
			debouncer.Trigger(path, func() {
				select {
				case w.ready <- path:
				case <-ctx.Done():
				}
			})

		case path := <-w.ready:
			w.process(ctx, path)

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("watcher error", "error", err)
		}
	}
}

// drainBacklog processes accepted files present before the watch began,
// in name order.
func (w *Watcher) drainBacklog(ctx context.Context) error {
	entries, err := os.ReadDir(w.cfg.Directory)
	if err != nil {
		return fmt.Errorf("read inbox: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.Type().IsRegular() && w.processor.Accepts(e.Name()) {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	for _, name := range names {
		if ctx.Err() != nil {
			return nil
		}
		w.process(ctx, filepath.Join(w.cfg.Directory, name))
	}
	return nil
}

func (w *Watcher) process(ctx context.Context, path string) {
	if _, err := os.Stat(path); err != nil {
		// Removed or moved before the debounce fired.
		return
	}

	fr, err := w.processor.ProcessFile(ctx, path)
	if err != nil {
		w.logger.Error("failed to process intake document", "file", path, "error", err)
	}
	if w.onProcessed != nil {
		w.onProcessed(fr, err)
	}
}

func (w *Watcher) shouldProcess(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return false
	}
	return w.processor.Accepts(event.Name)
}
