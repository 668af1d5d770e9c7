package config

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watcher watches the YAML overlay file for changes and hot-reloads
// SuppressFields/FieldTypes/RequestTimeout without a process restart,
// adapted from the teacher's ConfigWatcher
// (infrastructure/config/watcher.go) to docstore's narrower dynamic
// surface.
type Watcher struct {
	path     string
	watcher  *fsnotify.Watcher
	current  *Runtime
	mu       sync.RWMutex
	onChange []func(*Runtime)
	logger   *zap.Logger
	stopCh   chan struct{}
}

// NewWatcher loads path once and begins tracking it for subsequent writes.
func NewWatcher(path string, base *Runtime, logger *zap.Logger) (*Watcher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("config: create file watcher: %w", err)
	}
	if err := fsw.Add(path); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("config: watch %s: %w", path, err)
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := fsw.Add(dir); err != nil {
			logger.Warn("config: failed to watch directory", zap.String("dir", dir), zap.Error(err))
		}
	}

	current := *base
	if err := overlayYAML(&current, path); err != nil {
		fsw.Close()
		return nil, err
	}

	return &Watcher{
		path:    path,
		watcher: fsw,
		current: &current,
		logger:  logger,
		stopCh:  make(chan struct{}),
	}, nil
}

// Start begins the debounced reload loop in the background.
func (w *Watcher) Start() {
	go w.watchLoop()
	w.logger.Info("config watcher started", zap.String("path", w.path))
}

// Stop ends the reload loop and releases the underlying fsnotify watcher.
func (w *Watcher) Stop() {
	close(w.stopCh)
	w.watcher.Close()
	w.logger.Info("config watcher stopped")
}

func (w *Watcher) watchLoop() {
	var debounce *time.Timer
	const debounceDuration = 100 * time.Millisecond

	for {
		select {
		case <-w.stopCh:
			if debounce != nil {
				debounce.Stop()
			}
			return
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(ev.Name) != filepath.Base(w.path) {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(debounceDuration, w.reload)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("config watcher error", zap.Error(err))
		}
	}
}

func (w *Watcher) reload() {
	w.mu.RLock()
	next := *w.current
	w.mu.RUnlock()

	if err := overlayYAML(&next, w.path); err != nil {
		w.logger.Error("config: reload failed, keeping current", zap.Error(err))
		return
	}

	w.mu.Lock()
	w.current = &next
	w.mu.Unlock()

	w.logger.Info("config reloaded", zap.String("path", w.path))
	for _, cb := range w.onChange {
		go cb(&next)
	}
}

// OnChange registers a callback invoked (on its own goroutine) after a
// successful reload.
func (w *Watcher) OnChange(cb func(*Runtime)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onChange = append(w.onChange, cb)
}

// Current returns the most recently loaded configuration.
func (w *Watcher) Current() *Runtime {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current
}
