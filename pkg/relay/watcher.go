package relay

import (
	"bytes"
	"context"
	"log"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher broadcasts the peaks file whenever its content changes. File system
// events give low latency; the ticker covers platforms and filesystems where
// events are missed.
type Watcher struct {
	store    *FileStore
	hub      *Hub
	interval time.Duration
	logger   *log.Logger

	last    []byte
	lastErr string
}

func NewWatcher(store *FileStore, hub *Hub, interval time.Duration, logger *log.Logger) *Watcher {
	return &Watcher{store: store, hub: hub, interval: interval, logger: logger}
}

// Run blocks until ctx is done.
func (w *Watcher) Run(ctx context.Context) error {
	var events chan fsnotify.Event
	var errs chan error

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		w.logger.Printf("file notifications unavailable, polling only: %v", err)
	} else {
		defer fw.Close()
		// Watch the directory so replacing the file by rename is seen too.
		if err := fw.Add(filepath.Dir(w.store.Path())); err != nil {
			w.logger.Printf("cannot watch %s, polling only: %v", filepath.Dir(w.store.Path()), err)
		} else {
			events, errs = fw.Events, fw.Errors
		}
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	target := filepath.Clean(w.store.Path())
	w.refresh()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			if filepath.Clean(ev.Name) == target && ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0 {
				w.refresh()
			}
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			w.logger.Printf("file watch error: %v", err)
		case <-ticker.C:
			w.refresh()
		}
	}
}

// refresh reloads the file and broadcasts it if it changed. It reports
// whether a broadcast happened.
func (w *Watcher) refresh() bool {
	data, err := w.store.Load()
	if err != nil {
		// Each distinct failure is logged once.
		if msg := err.Error(); msg != w.lastErr {
			w.logger.Printf("skipping peaks file: %v", err)
			w.lastErr = msg
		}
		return false
	}
	w.lastErr = ""
	if bytes.Equal(data, w.last) {
		return false
	}
	w.last = data
	w.hub.Broadcast(data)
	return true
}
