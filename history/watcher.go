package history

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

const debounceInterval = 300 * time.Millisecond

// ExtensionWatcher reloads an extensions file whenever it changes and hands
// the new table to apply. It watches the file's directory so editors that
// replace the file by rename are still seen.
type ExtensionWatcher struct {
	path    string
	apply   func([]string)
	watcher *fsnotify.Watcher
}

// NewExtensionWatcher creates a watcher for path.
func NewExtensionWatcher(path string, apply func([]string)) (*ExtensionWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		w.Close()
		return nil, err
	}
	return &ExtensionWatcher{path: abs, apply: apply, watcher: w}, nil
}

// Start watches until ctx is cancelled. Bursts of events are debounced into
// one reload. A file that fails to load keeps the previous table.
func (w *ExtensionWatcher) Start(ctx context.Context) error {
	l := sub("watcher")
	if err := w.watcher.Add(filepath.Dir(w.path)); err != nil {
		return err
	}
	l.Info("watching extensions file", "path", w.path)

	timer := time.NewTimer(debounceInterval)
	timer.Stop()
	pending := false

	for {
		select {
		case <-ctx.Done():
			w.watcher.Close()
			return ctx.Err()

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Has(fsnotify.Chmod) && !event.Has(fsnotify.Write) {
				continue
			}
			l.Debug("extensions file event", "op", event.Op.String())
			pending = true
			timer.Reset(debounceInterval)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			l.Warn("watcher error", "err", err)

		case <-timer.C:
			if !pending {
				continue
			}
			pending = false
			exts, err := LoadExtensionFile(w.path)
			if err != nil {
				l.Warn("extensions reload failed, keeping previous table", "path", w.path, "err", err)
				continue
			}
			w.apply(exts)
		}
	}
}

// Close closes the underlying fsnotify watcher.
func (w *ExtensionWatcher) Close() error {
	return w.watcher.Close()
}
