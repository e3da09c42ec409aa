package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"ukodus-galaxy/application/services"
)

// WeightsWatcher watches the similarity-weights file for changes and
// swaps the current weights atomically. The heuristic's constants are
// tuning values, not fixed semantics, so operators may adjust them
// without a restart.
type WeightsWatcher struct {
	path     string
	watcher  *fsnotify.Watcher
	current  services.Weights
	mu       sync.RWMutex
	onChange []func(services.Weights)
	logger   *zap.Logger
	stopCh   chan struct{}
}

// NewWeightsWatcher loads the weights file (defaults when path is empty
// or unreadable) and begins watching its directory.
func NewWeightsWatcher(path string, logger *zap.Logger) (*WeightsWatcher, error) {
	w := &WeightsWatcher{
		path:    path,
		current: services.DefaultWeights(),
		logger:  logger,
		stopCh:  make(chan struct{}),
	}

	if path == "" {
		return w, nil
	}

	if loaded, err := loadWeights(path); err != nil {
		logger.Warn("Weights file unreadable, using defaults",
			zap.String("path", path),
			zap.Error(err),
		)
	} else {
		w.current = loaded
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w.watcher = watcher

	// Watch the directory: editors replace files rather than writing
	// them in place.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		return nil, err
	}

	go w.watch()
	return w, nil
}

// Current returns the weights in effect.
func (w *WeightsWatcher) Current() services.Weights {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current
}

// OnChange registers a callback invoked with each successfully reloaded
// weight set.
func (w *WeightsWatcher) OnChange(fn func(services.Weights)) {
	w.mu.Lock()
	w.onChange = append(w.onChange, fn)
	w.mu.Unlock()
}

// Stop ends the watch loop.
func (w *WeightsWatcher) Stop() {
	close(w.stopCh)
	if w.watcher != nil {
		w.watcher.Close()
	}
}

func (w *WeightsWatcher) watch() {
	for {
		select {
		case <-w.stopCh:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(w.path) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			w.reload()
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("Weights watcher error", zap.Error(err))
		}
	}
}

func (w *WeightsWatcher) reload() {
	loaded, err := loadWeights(w.path)
	if err != nil {
		w.logger.Warn("Weights reload failed, keeping previous",
			zap.String("path", w.path),
			zap.Error(err),
		)
		return
	}

	w.mu.Lock()
	w.current = loaded
	callbacks := make([]func(services.Weights), len(w.onChange))
	copy(callbacks, w.onChange)
	w.mu.Unlock()

	w.logger.Info("Similarity weights reloaded", zap.String("path", w.path))
	for _, fn := range callbacks {
		fn(loaded)
	}
}

func loadWeights(path string) (services.Weights, error) {
	weights := services.DefaultWeights()

	data, err := os.ReadFile(path)
	if err != nil {
		return weights, err
	}
	if err := json.Unmarshal(data, &weights); err != nil {
		return services.DefaultWeights(), err
	}
	return weights, nil
}
