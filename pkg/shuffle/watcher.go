package shuffle

import (
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/driftwall/driftwall/util/log"
)

// libraryWatcher observes the local photo library for changes and fires a
// debounced callback. Album directories created after startup are added to
// the watch set on the fly.
type libraryWatcher struct {
	w    *fsnotify.Watcher
	done chan struct{}
}

// watchLibrary watches dir and its immediate album subdirectories. Events
// are coalesced: onChange fires once per quiet period of the debounce
// duration.
func watchLibrary(dir string, debounce time.Duration, onChange func()) (*libraryWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := w.Add(dir); err != nil {
		w.Close()
		return nil, err
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		w.Close()
		return nil, err
	}
	for _, entry := range entries {
		if entry.IsDir() {
			if err := w.Add(filepath.Join(dir, entry.Name())); err != nil {
				log.Debugf("watcher: cannot watch %s: %v", entry.Name(), err)
			}
		}
	}

	lw := &libraryWatcher{w: w, done: make(chan struct{})}
	go lw.loop(debounce, onChange)
	return lw, nil
}

func (lw *libraryWatcher) loop(debounce time.Duration, onChange func()) {
	var timer *time.Timer
	var fire <-chan time.Time
	for {
		select {
		case <-lw.done:
			if timer != nil {
				timer.Stop()
			}
			return
		case event, ok := <-lw.w.Events:
			if !ok {
				return
			}
			if event.Op.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := lw.w.Add(event.Name); err != nil {
						log.Debugf("watcher: cannot watch %s: %v", event.Name, err)
					}
				}
			}
			if timer == nil {
				timer = time.NewTimer(debounce)
				fire = timer.C
			} else {
				timer.Reset(debounce)
			}
		case <-fire:
			timer = nil
			fire = nil
			log.Debugf("watcher: library changed")
			onChange()
		case err, ok := <-lw.w.Errors:
			if !ok {
				return
			}
			log.Printf("watcher: %v", err)
		}
	}
}

// Close stops the watcher. It is safe to call once.
func (lw *libraryWatcher) Close() {
	close(lw.done)
	_ = lw.w.Close()
}
