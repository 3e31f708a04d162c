package view

import (
	"log"
	"sync"
	"time"

	"github.com/asheshgoplani/workdeck/internal/debounce"
)

// stateKey is the durable-store key holding the full sessionID→viewID map.
// The whole map is written as one batched record so rapid switching costs a
// single write per debounce window, not one per session.
const stateKey = "active-views"

// persistDelay is the coalescing window for durable active-view writes.
const persistDelay = 300 * time.Millisecond

// StateStore is the durable local state collaborator the tracker writes
// through.
type StateStore interface {
	Get(key string, out any) (bool, error)
	Set(key string, value any) error
}

// Tracker remembers the last active view per session and persists the
// mapping durably. Entries survive session teardown: a session whose view
// set was dropped and later recreated restores the same view without a
// persistence round-trip.
type Tracker struct {
	mu     sync.Mutex
	active map[string]string
	store  StateStore
	deb    *debounce.Debouncer
}

// NewTracker creates a Tracker and loads the persisted mapping. A load
// failure degrades to an empty map; it is logged, not fatal.
func NewTracker(store StateStore, deb *debounce.Debouncer) *Tracker {
	t := &Tracker{
		active: make(map[string]string),
		store:  store,
		deb:    deb,
	}
	if store != nil {
		var saved map[string]string
		if ok, err := store.Get(stateKey, &saved); err != nil {
			log.Printf("active-view tracker: load failed: %v", err)
		} else if ok {
			t.active = saved
		}
	}
	return t
}

// SetActive records the active view for a session and schedules a debounced
// durable write of the full map.
func (t *Tracker) SetActive(sessionID, viewID string) {
	t.mu.Lock()
	t.active[sessionID] = viewID
	t.mu.Unlock()

	t.schedulePersist()
}

// Active returns the in-memory active view for a session, if any.
func (t *Tracker) Active(sessionID string) (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	id, ok := t.active[sessionID]
	return id, ok
}

// Restore returns the last known active view iff it still exists per the
// supplied predicate. A stale mapping is dropped (and the drop persisted)
// and "" is returned; the caller falls back to the terminal view.
func (t *Tracker) Restore(sessionID string, exists func(viewID string) bool) string {
	t.mu.Lock()
	id, ok := t.active[sessionID]
	if !ok {
		t.mu.Unlock()
		return ""
	}
	if exists != nil && !exists(id) {
		delete(t.active, sessionID)
		t.mu.Unlock()
		t.schedulePersist()
		return ""
	}
	t.mu.Unlock()
	return id
}

// Forget drops a session's entry, e.g. when the session is deleted for good
// rather than merely torn down.
func (t *Tracker) Forget(sessionID string) {
	t.mu.Lock()
	delete(t.active, sessionID)
	t.mu.Unlock()

	t.schedulePersist()
}

// Flush forces any pending durable write, for shutdown paths.
func (t *Tracker) Flush() {
	if t.deb != nil {
		t.deb.Flush(stateKey)
	}
}

func (t *Tracker) schedulePersist() {
	if t.store == nil || t.deb == nil {
		return
	}
	t.deb.Schedule(stateKey, persistDelay, func() {
		t.mu.Lock()
		snapshot := make(map[string]string, len(t.active))
		for k, v := range t.active {
			snapshot[k] = v
		}
		t.mu.Unlock()

		if err := t.store.Set(stateKey, snapshot); err != nil {
			log.Printf("active-view tracker: persist failed: %v", err)
		}
	})
}
