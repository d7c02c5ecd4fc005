package config

import (
	"context"
	"fmt"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/platformbuilds/mirador-alert-engine/internal/metrics"
	"github.com/platformbuilds/mirador-alert-engine/internal/models"
	"github.com/platformbuilds/mirador-alert-engine/pkg/logger"
)

// RulesWatcher hot-reloads the correlation rules file. Reload callbacks run
// on the watcher goroutine; a file that fails to parse keeps the previous
// rules in effect.
type RulesWatcher struct {
	path   string
	logger logger.Logger

	mu        sync.RWMutex
	callbacks []func([]models.CorrelationRule)
	stopCh    chan struct{}
}

func NewRulesWatcher(path string, log logger.Logger) *RulesWatcher {
	return &RulesWatcher{
		path:   path,
		logger: log,
		stopCh: make(chan struct{}),
	}
}

// OnReload registers a callback invoked with the full rule set after each
// successful reload.
func (w *RulesWatcher) OnReload(callback func([]models.CorrelationRule)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.callbacks = append(w.callbacks, callback)
}

// Start begins watching for rules file changes. It blocks until the context
// is cancelled or Stop is called.
func (w *RulesWatcher) Start(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(w.path); err != nil {
		return fmt.Errorf("failed to watch rules file: %w", err)
	}

	w.logger.Info("rules watcher started", "path", w.path)

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			// Editors replace files on save, so Create counts as a change.
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			w.logger.Info("rules file changed, reloading", "file", event.Name)
			rules, err := LoadRulesFile(w.path)
			if err != nil {
				metrics.RulesReloadsTotal.WithLabelValues("error").Inc()
				w.logger.Error("rules reload failed, keeping previous rules", "error", err)
				continue
			}
			metrics.RulesReloadsTotal.WithLabelValues("success").Inc()
			w.notify(rules)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("rules watcher error", "error", err)

		case <-ctx.Done():
			w.logger.Info("rules watcher stopping")
			return nil

		case <-w.stopCh:
			w.logger.Info("rules watcher stopped")
			return nil
		}
	}
}

// Stop stops the watcher.
func (w *RulesWatcher) Stop() {
	close(w.stopCh)
}

func (w *RulesWatcher) notify(rules []models.CorrelationRule) {
	w.mu.RLock()
	callbacks := make([]func([]models.CorrelationRule), len(w.callbacks))
	copy(callbacks, w.callbacks)
	w.mu.RUnlock()

	for _, callback := range callbacks {
		callback(rules)
	}
}
