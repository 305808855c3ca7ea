package trust

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
)

// Watcher keeps an up-to-date trusted-user set backed by a file. Reloads
// happen between runs via an atomic pointer swap, so Snapshot always
// returns one consistent set.
type Watcher struct {
	path    string
	logger  *slog.Logger
	current atomic.Pointer[Set]
	fsw     *fsnotify.Watcher
	done    chan struct{}
}

// NewWatcher loads the file and starts watching it for changes.
func NewWatcher(path string, logger *slog.Logger) (*Watcher, error) {
	s, err := LoadFile(path)
	if err != nil {
		return nil, err
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}
	// Watch the directory, not the file: editors replace files on save
	// and the inode-level watch would be lost.
	if err := fsw.Add(filepath.Dir(path)); err != nil {
		_ = fsw.Close()
		return nil, fmt.Errorf("watching %s: %w", filepath.Dir(path), err)
	}

	w := &Watcher{
		path:   path,
		logger: logger,
		fsw:    fsw,
		done:   make(chan struct{}),
	}
	w.current.Store(&s)

	go w.loop()
	return w, nil
}

// Snapshot returns the current trusted-user set. The returned set must be
// treated as read-only for the duration of a run.
func (w *Watcher) Snapshot() Set {
	return *w.current.Load()
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	close(w.done)
	return w.fsw.Close()
}

func (w *Watcher) loop() {
	for {
		select {
		case <-w.done:
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != filepath.Clean(w.path) {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			s, err := LoadFile(w.path)
			if err != nil {
				w.logger.Warn("trusted users reload failed, keeping previous set", "error", err)
				continue
			}
			w.current.Store(&s)
			w.logger.Info("trusted users reloaded", "count", len(s))
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("trusted users watcher error", "error", err)
		}
	}
}
