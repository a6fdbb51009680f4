// Package watcher notifies listeners about files that appear in the
// storage root out-of-band, e.g. dropped in directly by an operator
// instead of going through the upload endpoint.
package watcher

import (
	"log"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Notifier receives the new-file signal for out-of-band additions.
type Notifier interface {
	NotifyNewFile()
}

// Watcher observes the storage root and every owner partition. A file
// created inside a partition triggers one notification; partitions
// created while running are picked up automatically.
type Watcher struct {
	fsw      *fsnotify.Watcher
	root     string
	notifier Notifier
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// New creates a watcher over the given storage root.
func New(root string, notifier Notifier) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		fsw:      fsw,
		root:     filepath.Clean(root),
		notifier: notifier,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}, nil
}

// Start begins watching the root and all existing partitions.
func (w *Watcher) Start() error {
	if err := w.fsw.Add(w.root); err != nil {
		w.fsw.Close()
		return err
	}

	entries, err := os.ReadDir(w.root)
	if err != nil {
		w.fsw.Close()
		return err
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		// Missing a partition here is not fatal; it just won't be
		// observed until recreated.
		if err := w.fsw.Add(filepath.Join(w.root, entry.Name())); err != nil {
			log.Printf("[WATCHER] failed to watch partition %s: %v", entry.Name(), err)
		}
	}

	go w.loop()
	return nil
}

// Stop terminates the watcher and waits for the event loop to drain.
func (w *Watcher) Stop() {
	select {
	case <-w.stopCh:
		return
	default:
		close(w.stopCh)
	}
	w.fsw.Close()
	<-w.doneCh
}

func (w *Watcher) loop() {
	defer close(w.doneCh)

	for {
		select {
		case <-w.stopCh:
			return
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			log.Printf("[WATCHER] error: %v", err)
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if ev.Op&fsnotify.Create == 0 {
				continue
			}

			info, err := os.Stat(ev.Name)
			if err != nil {
				continue
			}

			if info.IsDir() {
				// A new owner partition; start observing it.
				if filepath.Dir(ev.Name) == w.root {
					if err := w.fsw.Add(ev.Name); err != nil {
						log.Printf("[WATCHER] failed to watch new partition %s: %v", ev.Name, err)
					}
				}
				continue
			}

			// Stray files directly under the root are not stored files.
			if filepath.Dir(ev.Name) == w.root {
				continue
			}

			log.Printf("[WATCHER] detected new file %s", ev.Name)
			w.notifier.NotifyNewFile()
		}
	}
}
