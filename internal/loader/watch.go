package loader

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watch reloads root whenever a matching file below it is written, and
// removes the stored matrix of a matching file that is deleted or renamed
// away. Reloads run after config.Debounce of quiet. onLoad, if non-nil, is
// called with the result of every reload. Watch blocks until ctx is done.
//
// Watch does not perform an initial load.
func (l *Loader) Watch(ctx context.Context, root string, config *Config, onLoad func(*Statistics, error)) error {
	cfg := config.withDefaults()

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return fmt.Errorf("failed to resolve %s: %w", root, err)
	}
	info, err := os.Stat(absRoot)
	if err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	// A single file is watched through its directory so that editors which
	// replace the file by rename keep being seen.
	matches := func(name string) bool { return hasExtension(name, cfg.Extensions) }
	if info.IsDir() {
		if err := addDirectories(watcher, absRoot); err != nil {
			return fmt.Errorf("failed to watch %s: %w", absRoot, err)
		}
	} else {
		if err := watcher.Add(filepath.Dir(absRoot)); err != nil {
			return fmt.Errorf("failed to watch %s: %w", absRoot, err)
		}
		matches = func(name string) bool { return name == absRoot }
	}

	debounce := newDebouncer(cfg.Debounce)
	defer debounce.stop()

	var reload func()
	reload = func() {
		stats, err := l.Load(ctx, absRoot, cfg)
		if errors.Is(err, ErrLoadInProgress) {
			// A scheduled or manual load holds the loader; try again later.
			debounce.trigger(reload)
			return
		}
		if err != nil && !errors.Is(err, context.Canceled) {
			l.logger.Error("Reload failed", "root", absRoot, "error", err)
		}
		if onLoad != nil {
			onLoad(stats, err)
		}
	}

	l.logger.Info("Watching for changes",
		"root", absRoot,
		"debounce_ms", cfg.Debounce.Milliseconds(),
	)

	for {
		select {
		case <-ctx.Done():
			l.logger.Info("Watcher stopped", "root", absRoot)
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return fmt.Errorf("watcher events channel closed")
			}
			if event.Has(fsnotify.Chmod) && !event.Has(fsnotify.Write) {
				continue
			}

			if info.IsDir() && event.Has(fsnotify.Create) {
				if fi, err := os.Stat(event.Name); err == nil && fi.IsDir() {
					if err := addDirectories(watcher, event.Name); err != nil {
						l.logger.Warn("Failed to watch new directory", "path", event.Name, "error", err)
					}
					debounce.trigger(reload)
					continue
				}
			}

			if !matches(event.Name) {
				continue
			}

			l.logger.Debug("File event", "path", event.Name, "op", event.Op.String())

			if event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
				if err := l.Remove(ctx, event.Name); err != nil {
					l.logger.Error("Failed to remove matrix", "path", event.Name, "error", err)
				}
				continue
			}
			debounce.trigger(reload)

		case err, ok := <-watcher.Errors:
			if !ok {
				return fmt.Errorf("watcher errors channel closed")
			}
			l.logger.Error("File watcher error", "error", err)
		}
	}
}

// addDirectories watches dir and every non-hidden directory below it
func addDirectories(watcher *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		return watcher.Add(path)
	})
}

// debouncer runs the most recently triggered callback once no trigger has
// arrived for interval. Callbacks never overlap.
type debouncer struct {
	interval time.Duration

	mu       sync.Mutex
	timer    *time.Timer
	callback func()
	stopped  bool

	running sync.Mutex
}

func newDebouncer(interval time.Duration) *debouncer {
	return &debouncer{interval: interval}
}

func (d *debouncer) trigger(callback func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}
	d.callback = callback
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.interval, d.fire)
}

func (d *debouncer) fire() {
	d.running.Lock()
	defer d.running.Unlock()

	d.mu.Lock()
	cb := d.callback
	stopped := d.stopped
	d.mu.Unlock()

	if stopped || cb == nil {
		return
	}
	cb()
}

// stop cancels any pending callback and waits for a running one to return.
func (d *debouncer) stop() {
	d.mu.Lock()
	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.callback = nil
	d.mu.Unlock()

	d.running.Lock()
	defer d.running.Unlock()
}
