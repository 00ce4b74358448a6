package config

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// watchDebounce coalesces the write bursts editors produce on save.
const watchDebounce = 200 * time.Millisecond

// Watch reloads the file at path whenever it changes and delivers each
// successfully validated Config to onChange. A reload that fails to parse
// or validate is logged and the previous configuration stays in effect.
// The watcher runs until ctx is cancelled.
func Watch(ctx context.Context, path string, logger *slog.Logger, onChange func(*Config)) error {
	if path == "" {
		return fmt.Errorf("config watch: empty path")
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "config.watch")

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("config watch: %w", err)
	}

	// Watch the directory, not the file: editors replace files on save and
	// the inode-level watch would silently die.
	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return fmt.Errorf("config watch %s: %w", dir, err)
	}

	go func() {
		defer watcher.Close()

		var pending *time.Timer
		var pendingC <-chan time.Time
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Base(ev.Name) != filepath.Base(path) {
					continue
				}
				if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
					continue
				}
				if pending == nil {
					pending = time.NewTimer(watchDebounce)
					pendingC = pending.C
				} else {
					if !pending.Stop() {
						select {
						case <-pendingC:
						default:
						}
					}
					pending.Reset(watchDebounce)
				}
			case <-pendingC:
				pending = nil
				pendingC = nil
				cfg, err := Load(path)
				if err != nil {
					logger.Warn("reload failed, keeping previous config", "error", err)
					continue
				}
				logger.Info("configuration reloaded", "path", path)
				onChange(cfg)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Warn("watch error", "error", err)
			}
		}
	}()
	return nil
}
