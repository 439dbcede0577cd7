package watcher

import (
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

const debounce = 2 * time.Second

// ConfigWatcher monitors the configuration file and invokes a reload
// callback after edits settle. Editors often write a file several times in
// a burst; the debounce collapses the burst into one reload.
type ConfigWatcher struct {
	watcher    *fsnotify.Watcher
	configPath string
	onChange   func()

	debounceTimer *time.Timer
	debounceMutex sync.Mutex
	stopChan      chan struct{}
	running       bool
}

// NewConfigWatcher creates a watcher for the given config file. onChange
// runs on the watcher's goroutine after each debounced change.
func NewConfigWatcher(configPath string, onChange func()) (*ConfigWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &ConfigWatcher{
		watcher:    watcher,
		configPath: configPath,
		onChange:   onChange,
		stopChan:   make(chan struct{}),
	}, nil
}

// Start begins watching the config file's directory. Watching the directory
// instead of the file survives rename-based saves.
func (w *ConfigWatcher) Start() error {
	dir := filepath.Dir(w.configPath)
	if err := w.watcher.Add(dir); err != nil {
		return err
	}
	w.running = true
	go w.watchLoop()
	slog.Info("Config watcher started", "path", w.configPath)
	return nil
}

// Stop stops the watcher.
func (w *ConfigWatcher) Stop() {
	if !w.running {
		return
	}
	w.running = false
	close(w.stopChan)

	w.debounceMutex.Lock()
	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
		w.debounceTimer = nil
	}
	w.debounceMutex.Unlock()

	w.watcher.Close()
}

func (w *ConfigWatcher) watchLoop() {
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			slog.Error("Config watcher error", "error", err)
		case <-w.stopChan:
			return
		}
	}
}

func (w *ConfigWatcher) handleEvent(event fsnotify.Event) {
	if filepath.Clean(event.Name) != filepath.Clean(w.configPath) {
		return
	}
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
		return
	}

	slog.Debug("Config file changed", "op", event.Op.String())

	w.debounceMutex.Lock()
	defer w.debounceMutex.Unlock()
	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
	}
	w.debounceTimer = time.AfterFunc(debounce, w.onChange)
}
