package policy

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounceInterval is the quiet period after a file event before the
// tuning file is re-read.
const DefaultDebounceInterval = 100 * time.Millisecond

// TuningWatcher watches a tuning file and delivers reloaded values while a
// game is running. Editors that save via rename replace the file's inode, so
// the watcher registers the parent directory and filters events by base name.
type TuningWatcher struct {
	path     string
	watcher  *fsnotify.Watcher
	logger   *slog.Logger
	debounce *debouncer

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewTuningWatcher creates a watcher for the tuning file at path. The file
// must load cleanly at least once before watching is useful; callers
// typically LoadTuning first and start the watcher with the result applied.
func NewTuningWatcher(path string, debounceInterval time.Duration, logger *slog.Logger) (*TuningWatcher, error) {
	if debounceInterval <= 0 {
		debounceInterval = DefaultDebounceInterval
	}
	if logger == nil {
		logger = slog.Default()
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	return &TuningWatcher{
		path:     path,
		watcher:  watcher,
		logger:   logger.With("component", "game.tuning_watcher"),
		debounce: newDebouncer(debounceInterval),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}, nil
}

// Watch blocks, delivering each successfully reloaded Tuning to onReload,
// until the context is cancelled or Stop is called. A tuning file that fails
// to parse or validate is logged and skipped; the previous tuning stays in
// effect.
func (tw *TuningWatcher) Watch(ctx context.Context, onReload func(Tuning)) error {
	tw.mu.Lock()
	if tw.running {
		tw.mu.Unlock()
		return fmt.Errorf("watcher already running")
	}
	tw.running = true
	tw.mu.Unlock()

	defer func() {
		tw.mu.Lock()
		tw.running = false
		tw.mu.Unlock()
		close(tw.doneCh)
	}()

	dir := filepath.Dir(tw.path)
	if err := tw.watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch directory %q: %w", dir, err)
	}

	base := filepath.Base(tw.path)
	tw.logger.Info("Tuning watcher started",
		"path", tw.path,
		"debounce_ms", tw.debounce.interval.Milliseconds(),
	)

	for {
		select {
		case <-ctx.Done():
			tw.logger.Info("Tuning watcher stopped (context cancelled)")
			return nil

		case <-tw.stopCh:
			tw.logger.Info("Tuning watcher stopped")
			return nil

		case event, ok := <-tw.watcher.Events:
			if !ok {
				return fmt.Errorf("watcher events channel closed")
			}

			if event.Op&fsnotify.Chmod == fsnotify.Chmod {
				continue
			}
			if filepath.Base(event.Name) != base {
				continue
			}

			tw.logger.Debug("Tuning file event",
				"path", event.Name,
				"op", event.Op.String(),
			)

			tw.debounce.trigger(func() {
				tuning, err := LoadTuning(tw.path)
				if err != nil {
					tw.logger.Error("Tuning reload failed, keeping previous values",
						"path", tw.path,
						"error", err,
					)
					return
				}

				tw.logger.Info("Tuning reloaded",
					"path", tw.path,
					"raise_step", tuning.RaiseStep,
					"threshold_step", tuning.ThresholdStep,
				)
				onReload(tuning)
			})

		case err, ok := <-tw.watcher.Errors:
			if !ok {
				return fmt.Errorf("watcher errors channel closed")
			}
			tw.logger.Error("Tuning watcher error", "error", err)
		}
	}
}

// Stop stops the watcher and cancels any pending debounced reload.
func (tw *TuningWatcher) Stop() error {
	tw.mu.Lock()
	if !tw.running {
		tw.mu.Unlock()
		return nil
	}
	tw.mu.Unlock()

	close(tw.stopCh)
	<-tw.doneCh

	tw.debounce.stop()

	if err := tw.watcher.Close(); err != nil {
		return fmt.Errorf("failed to close watcher: %w", err)
	}
	return nil
}

// debouncer collapses rapid file events into a single callback after a quiet
// period.
type debouncer struct {
	interval time.Duration
	mu       sync.Mutex
	timer    *time.Timer
	callback func()
	stopCh   chan struct{}
}

func newDebouncer(interval time.Duration) *debouncer {
	return &debouncer{
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

func (d *debouncer) trigger(callback func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.callback = callback
	if d.timer != nil {
		d.timer.Stop()
	}

	d.timer = time.AfterFunc(d.interval, func() {
		select {
		case <-d.stopCh:
			return
		default:
			d.mu.Lock()
			cb := d.callback
			d.mu.Unlock()
			if cb != nil {
				cb()
			}
		}
	})
}

func (d *debouncer) stop() {
	close(d.stopCh)

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.callback = nil
}
