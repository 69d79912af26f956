package config

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"color-counter/internal/app"
	"color-counter/internal/monitoring"

	"github.com/fsnotify/fsnotify"
)

// reloadDelay coalesces the burst of events editors produce on save.
const reloadDelay = 100 * time.Millisecond

// Watcher reloads a config file when it changes and applies the color
// ranges and line position to live settings. Source, cadence and listen
// address only take effect on restart.
type Watcher struct {
	path   string
	target *app.Settings

	// OnReload, if set, is called after every successful reload.
	OnReload func(*File)
}

// NewWatcher creates a watcher for path applying to target.
func NewWatcher(path string, target *app.Settings) *Watcher {
	return &Watcher{path: filepath.Clean(path), target: target}
}

// Reload loads the file once and applies it.
func (w *Watcher) Reload() error {
	f, err := Load(w.path)
	if err != nil {
		return err
	}
	s, err := f.Settings()
	if err != nil {
		return err
	}
	if err := w.target.Replace(s); err != nil {
		return err
	}
	if w.OnReload != nil {
		w.OnReload(f)
	}
	return nil
}

// Run watches until ctx is done. Invalid files are logged and ignored; the
// previous settings stay in effect.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer fw.Close()

	// Watch the directory so atomic renames by editors are seen.
	if err := fw.Add(filepath.Dir(w.path)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", w.path, err)
	}

	var pending <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != w.path {
				continue
			}
			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename) {
				pending = time.After(reloadDelay)
			}
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			monitoring.Logf("Warning: config watcher: %v", err)
		case <-pending:
			pending = nil
			if err := w.Reload(); err != nil {
				monitoring.Logf("Warning: config reload failed, keeping previous settings: %v", err)
				continue
			}
			monitoring.Logf("Reloaded config from %s", w.path)
		}
	}
}
