package file

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/askdb-core/internal/core/domain"
	"github.com/custodia-labs/askdb-core/internal/logger"
)

// reloadDebounce collapses the burst of events editors emit when they
// rewrite a file (truncate, write, rename) into a single reload.
const reloadDebounce = 200 * time.Millisecond

// Watcher reloads the registry file when it changes on disk and hands
// each valid configuration to a callback. Invalid configurations are
// logged and skipped, keeping the last good configuration in effect.
type Watcher struct {
	path    string
	watcher *fsnotify.Watcher
	onLoad  func(*domain.RegistryConfig)
}

// NewWatcher watches the registry file at path. The onLoad callback
// receives every configuration that parses and validates, including
// the initial load.
func NewWatcher(path string, onLoad func(*domain.RegistryConfig)) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	// Watch the directory, not the file: atomic saves replace the
	// inode and would silently detach a file-level watch.
	if err := fsw.Add(filepath.Dir(path)); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(path), err)
	}
	return &Watcher{path: path, watcher: fsw, onLoad: onLoad}, nil
}

// Run loads the registry once, then blocks reloading on changes until
// the context is cancelled. The initial load must succeed.
func (w *Watcher) Run(ctx context.Context) error {
	cfg, err := LoadRegistry(w.path)
	if err != nil {
		return err
	}
	w.onLoad(cfg)

	var timer *time.Timer
	var pending <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != filepath.Clean(w.path) {
				continue
			}
			if !event.Op.Has(fsnotify.Write) && !event.Op.Has(fsnotify.Create) && !event.Op.Has(fsnotify.Rename) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(reloadDebounce)
			} else {
				timer.Reset(reloadDebounce)
			}
			pending = timer.C
		case <-pending:
			pending = nil
			w.reload()
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("Registry watcher error: %v", err)
		}
	}
}

func (w *Watcher) reload() {
	cfg, err := LoadRegistry(w.path)
	if err != nil {
		logger.Warn("Registry reload failed, keeping previous configuration: %v", err)
		return
	}
	logger.Info("Registry reloaded: %d backend(s), default %q", len(cfg.Backends), cfg.Default)
	w.onLoad(cfg)
}

// Close stops watching. Safe to call after Run returns.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}
