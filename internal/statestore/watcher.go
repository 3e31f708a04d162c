package statestore

import (
	"log"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// minNotifyInterval coalesces bursts of filesystem events (SQLite touches
// the db, -wal and -shm files on every write) into one callback.
const minNotifyInterval = 250 * time.Millisecond

// Watcher observes the state database for external writes and invokes
// onChange, rate limited. It exists so a second window re-derives its state
// from notifications rather than polling.
type Watcher struct {
	fw       *fsnotify.Watcher
	base     string
	onChange func()

	mu         sync.Mutex
	lastNotify time.Time

	done chan struct{}
}

// NewWatcher creates a watcher for the given state db path.
func NewWatcher(dbPath string, onChange func()) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fw.Add(filepath.Dir(dbPath)); err != nil {
		fw.Close()
		return nil, err
	}
	return &Watcher{
		fw:       fw,
		base:     filepath.Base(dbPath),
		onChange: onChange,
		done:     make(chan struct{}),
	}, nil
}

// Start processes events until Close is called. Run it on its own goroutine.
func (w *Watcher) Start() {
	for {
		select {
		case ev, ok := <-w.fw.Events:
			if !ok {
				return
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			// Match the db file and its WAL siblings.
			if !strings.HasPrefix(filepath.Base(ev.Name), w.base) {
				continue
			}
			w.maybeNotify()
		case err, ok := <-w.fw.Errors:
			if !ok {
				return
			}
			log.Printf("state watcher: %v", err)
		case <-w.done:
			return
		}
	}
}

func (w *Watcher) maybeNotify() {
	w.mu.Lock()
	now := time.Now()
	if now.Sub(w.lastNotify) < minNotifyInterval {
		w.mu.Unlock()
		return
	}
	w.lastNotify = now
	w.mu.Unlock()

	w.onChange()
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	close(w.done)
	return w.fw.Close()
}
