package config

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
)

const debounce = 500 * time.Millisecond

// Watcher watches for configuration changes.
type Watcher struct {
	path     string
	onReload func(*Config, error)
	current  *Config
	watcher  *fsnotify.Watcher
	done     chan struct{}
	closed   sync.Once
	mu       sync.RWMutex
	reloads  atomic.Uint32
}

// NewWatcher creates a new config watcher. The containing directory is
// watched so editors that replace the file on save are also picked up.
func NewWatcher(path string, onReload func(*Config, error)) (*Watcher, error) {
	path = filepath.Clean(path)

	cfg, err := Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load initial config: %w", err)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	if err := fsw.Add(filepath.Dir(path)); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("failed to watch config directory: %w", err)
	}

	w := &Watcher{
		path:     path,
		onReload: onReload,
		current:  cfg,
		watcher:  fsw,
		done:     make(chan struct{}),
	}

	go w.watch()

	return w, nil
}

// watch watches for configuration changes.
func (cw *Watcher) watch() {
	var timer *time.Timer

	for {
		select {
		case <-cw.done:
			if timer != nil {
				timer.Stop()
			}
			return

		case event, ok := <-cw.watcher.Events:
			if !ok {
				return
			}

			if filepath.Clean(event.Name) != cw.path {
				continue
			}

			if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				if timer != nil {
					timer.Stop()
				}

				timer = time.AfterFunc(debounce, func() {
					cw.reload()
				})
			}

		case err, ok := <-cw.watcher.Errors:
			if !ok {
				return
			}

			slog.Error("Watcher error", "error", err)
		}
	}
}

// reload reloads the config file.
func (cw *Watcher) reload() {
	count := cw.reloads.Add(1)
	slog.Info("Reloading config file", "path", cw.path, "count", count)

	cfg, err := Load(cw.path)
	if err != nil {
		slog.Error("Failed to reload config", "error", err)
		cw.onReload(nil, err)
		return
	}

	cw.mu.Lock()
	cw.current = cfg
	cw.mu.Unlock()

	slog.Info("Config reloaded successfully", "count", count)
	cw.onReload(cfg, nil)
}

// Snapshot returns the current config snapshot (thread-safe).
func (cw *Watcher) Snapshot() *Config {
	cw.mu.RLock()
	defer cw.mu.RUnlock()

	return cw.current
}

// ReloadCount returns the number of times the config has been reloaded.
func (cw *Watcher) ReloadCount() uint32 {
	return cw.reloads.Load()
}

// Close stops watching.
func (cw *Watcher) Close() error {
	var err error
	cw.closed.Do(func() {
		close(cw.done)
		err = cw.watcher.Close()
	})
	return err
}
