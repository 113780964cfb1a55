package config

import (
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// reloadDebounce coalesces the event bursts editors produce on save
// (write + rename, or several partial writes) into one reload.
const reloadDebounce = 200 * time.Millisecond

// Watcher watches the config file and reloads it on changes, debounced.
// Files that fail to parse or validate are reported and the previous
// configuration stays in effect.
type Watcher struct {
	watcher  *fsnotify.Watcher
	filePath string
	onReload func(*Config)
	debounce time.Duration
	done     chan struct{}
	mu       sync.Mutex
	running  bool
}

// NewWatcher creates a watcher for the config file at filePath. onReload is
// called with each successfully loaded configuration.
func NewWatcher(filePath string, onReload func(*Config)) (*Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		watcher:  watcher,
		filePath: filePath,
		onReload: onReload,
		debounce: reloadDebounce,
		done:     make(chan struct{}),
	}

	return w, nil
}

// Start begins watching the config file for changes.
func (w *Watcher) Start() error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	// Watch the directory containing the file (more reliable for
	// editors that write via rename)
	dir := filepath.Dir(w.filePath)
	if err := w.watcher.Add(dir); err != nil {
		return err
	}

	go w.watch()
	return nil
}

// watch is the main watch loop.
func (w *Watcher) watch() {
	filename := filepath.Base(w.filePath)
	var pending <-chan time.Time

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}

			// Only care about our file
			if filepath.Base(event.Name) != filename {
				continue
			}

			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				// Each event pushes the reload out by another window
				pending = time.After(w.debounce)
			}

		case <-pending:
			pending = nil
			cfg, err := Load(w.filePath)
			if err != nil {
				slog.Warn("config changed but failed to load, keeping previous", "file", w.filePath, "error", err)
				continue
			}
			slog.Debug("config reloaded", "file", w.filePath)
			w.onReload(cfg)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			slog.Warn("config watcher error", "error", err)

		case <-w.done:
			return
		}
	}
}

// Stop stops the watcher.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running {
		return nil
	}

	w.running = false
	close(w.done)
	return w.watcher.Close()
}
