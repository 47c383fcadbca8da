// Package watcher re-triggers reconciliation when the operator
// configuration file changes on disk.
package watcher

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/agilira/argus"
)

// Watcher polls the operator configuration file and invokes the change
// callback on every modification. Delete events are ignored: a vanished
// config is an operator mistake, not a new desired state.
type Watcher struct {
	watcher  *argus.Watcher
	path     string
	interval time.Duration
	onChange func()
	logger   *slog.Logger
}

// New creates a watcher for path polling at the given interval.
func New(path string, interval time.Duration, onChange func(), logger *slog.Logger) *Watcher {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "watcher")

	cfg := argus.Config{
		PollInterval:         interval,
		CacheTTL:             interval / 2,
		MaxWatchedFiles:      10,
		OptimizationStrategy: argus.OptimizationSingleEvent,
		ErrorHandler: func(err error, filepath string) {
			logger.Error("file watching error", "error", err, "file", filepath)
		},
	}

	return &Watcher{
		watcher:  argus.New(cfg),
		path:     path,
		interval: interval,
		onChange: onChange,
		logger:   logger,
	}
}

// Start begins watching. The callback runs on the watcher's goroutine;
// keep it short and hand real work to the reconcile loop.
func (w *Watcher) Start() error {
	err := w.watcher.Watch(w.path, func(event argus.ChangeEvent) {
		if event.IsDelete {
			w.logger.Warn("configuration file deleted", "file", event.Path)
			return
		}
		w.logger.Info("configuration change detected", "file", event.Path)
		w.onChange()
	})
	if err != nil {
		return fmt.Errorf("watching %s: %w", w.path, err)
	}
	if err := w.watcher.Start(); err != nil {
		return fmt.Errorf("starting watcher: %w", err)
	}
	w.logger.Info("watching configuration", "file", w.path, "interval", w.interval)
	return nil
}

// Stop halts file watching.
func (w *Watcher) Stop() error {
	return w.watcher.Stop()
}
