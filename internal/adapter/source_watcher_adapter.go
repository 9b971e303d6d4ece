package adapter

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"time"

	"github.com/fsnotify/fsnotify"

	m "fppgen.dev/pkg/fppgen/internal/model"
)

// SourceWatcherAdapter reports changes to annotated source files.
type SourceWatcherAdapter interface {
	// Watch blocks until ctx is cancelled, calling onChange with each watched path
	// once its changes have settled for the debounce window.
	Watch(ctx context.Context, paths []m.Path, debounce time.Duration, onChange func(m.Path)) error
}

// FSNotifySourceWatcherAdapter implements SourceWatcherAdapter with fsnotify.
// The parent directories are watched so that editors which save by renaming a
// temporary file are still observed.
type FSNotifySourceWatcherAdapter struct {
	logger *slog.Logger
	tick   time.Duration
}

// NewFSNotifySourceWatcherAdapter constructs a FSNotifySourceWatcherAdapter.
func NewFSNotifySourceWatcherAdapter(logger *slog.Logger) *FSNotifySourceWatcherAdapter {
	if logger == nil {
		logger = slog.Default()
	}

	return &FSNotifySourceWatcherAdapter{logger: logger, tick: 50 * time.Millisecond}
}

// Watch runs the event loop on the calling goroutine.
func (a *FSNotifySourceWatcherAdapter) Watch(ctx context.Context, paths []m.Path, debounce time.Duration, onChange func(m.Path)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}

	defer func() {
		if err := watcher.Close(); err != nil {
			a.logger.Error("failed to close watcher", "error", err)
		}
	}()

	targets := make(map[string]m.Path, len(paths))
	dirs := make(map[string]bool)

	for _, path := range paths {
		abs, err := filepath.Abs(string(path))
		if err != nil {
			return fmt.Errorf("failed to resolve %s: %w", path, err)
		}

		targets[abs] = path
		dirs[filepath.Dir(abs)] = true
	}

	for dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			a.logger.Error("failed to watch directory", "dir", dir, "error", err)
			return fmt.Errorf("failed to watch %s: %w", dir, err)
		}

		a.logger.Debug("watching directory", "dir", dir)
	}

	ticker := time.NewTicker(a.tick)
	defer ticker.Stop()

	pending := make(map[string]time.Time)

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}

			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}

			name, err := filepath.Abs(event.Name)
			if err != nil {
				continue
			}

			if _, ok := targets[name]; ok {
				a.logger.Debug("source changed", "path", name, "op", event.Op.String())
				pending[name] = time.Now()
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}

			a.logger.Error("watcher error", "error", err)

		case now := <-ticker.C:
			var settled []string

			for name, at := range pending {
				if now.Sub(at) >= debounce {
					settled = append(settled, name)
					delete(pending, name)
				}
			}

			sort.Strings(settled)

			for _, name := range settled {
				onChange(targets[name])
			}
		}
	}
}
