package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/saibing/served/internal/logging"
)

// Watcher reloads Config from a file whenever it changes on disk and
// notifies onChange with the newly-applied value.
type Watcher struct {
	log      *logging.Logger
	fw       *fsnotify.Watcher
	path     string
	onChange func(Config)

	mu      sync.Mutex
	current Config
}

// WatchFile starts watching path's parent directory (editors typically
// write configuration via a rename, which a direct file watch would miss)
// and calls onChange with the reloaded Config on every write or create
// event targeting path.
func WatchFile(log *logging.Logger, path string, initial Config, onChange func(Config)) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("config: create watcher: %w", err)
	}
	if err := fw.Add(filepath.Dir(path)); err != nil {
		fw.Close()
		return nil, fmt.Errorf("config: watch %q: %w", path, err)
	}

	w := &Watcher{log: log, fw: fw, path: path, onChange: onChange, current: initial}
	go w.loop()
	return w, nil
}

func (w *Watcher) loop() {
	target := filepath.Clean(w.path)
	for {
		select {
		case ev, ok := <-w.fw.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			w.reload()
		case err, ok := <-w.fw.Errors:
			if !ok {
				return
			}
			w.log.Errorf("config: watcher error: %v", err)
		}
	}
}

func (w *Watcher) reload() {
	data, err := os.ReadFile(w.path)
	if err != nil {
		w.log.Warnf("config: reading %q: %v", w.path, err)
		return
	}

	w.mu.Lock()
	next := w.current.ApplyRaw(w.log, data)
	w.current = next
	w.mu.Unlock()

	w.onChange(next)
}

// Close stops watching.
func (w *Watcher) Close() error {
	return w.fw.Close()
}
