package keys

import (
	"log"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watch reloads the ring whenever the key file changes. Events are
// debounced so editors that write in multiple steps trigger one reload.
// The watcher runs until the process exits.
func (r *Ring) Watch() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	// watch the directory, not the file: rotation tooling replaces the
	// file, which would drop a direct file watch
	err = watcher.Add(filepath.Dir(r.path))
	if err != nil {
		return err
	}

	reload := make(chan struct{})
	go r.scheduleReload(reload)
	go r.handleWatcher(watcher, reload)
	return nil
}

func (r *Ring) handleWatcher(watcher *fsnotify.Watcher, reload chan<- struct{}) {
	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if event.Name != r.path {
				continue
			}
			if event.Has(fsnotify.Write | fsnotify.Create | fsnotify.Rename) {
				reload <- struct{}{}
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			log.Printf("key watcher error: %v\n", err)
		}
	}
}

func (r *Ring) scheduleReload(reload <-chan struct{}) {
	var timer *time.Timer = nil
	var c <-chan time.Time = nil
	duration := time.Millisecond * 500
	for {
		select {
		case <-reload:
			if timer != nil {
				timer.Reset(duration)
			} else {
				timer = time.NewTimer(duration)
				c = timer.C
			}

		case <-c:
			c = nil
			timer = nil
			if err := r.Reload(); err != nil {
				log.Printf("key reload failed, keeping previous secrets: %v\n", err)
			} else {
				log.Printf("reloaded signing secrets from %s\n", r.path)
			}
		}
	}
}
