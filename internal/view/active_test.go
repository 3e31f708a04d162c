package view

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/asheshgoplani/workdeck/internal/debounce"
)

// memStore is an in-memory StateStore that counts writes.
type memStore struct {
	mu     sync.Mutex
	data   map[string]map[string]string
	writes int
}

func newMemStore() *memStore {
	return &memStore{data: make(map[string]map[string]string)}
}

func (m *memStore) Get(key string, out any) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	saved, ok := m.data[key]
	if !ok {
		return false, nil
	}
	*(out.(*map[string]string)) = saved
	return true, nil
}

func (m *memStore) Set(key string, value any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writes++
	snapshot := make(map[string]string)
	for k, v := range value.(map[string]string) {
		snapshot[k] = v
	}
	m.data[key] = snapshot
	return nil
}

func TestTracker_SetActiveThenRestore(t *testing.T) {
	clock := debounce.NewFakeClock()
	deb := debounce.New(clock)
	defer deb.Close()
	tr := NewTracker(newMemStore(), deb)

	tr.SetActive("s1", "files")
	got := tr.Restore("s1", func(string) bool { return true })
	assert.Equal(t, "files", got)
}

func TestTracker_RestoreDropsStaleMapping(t *testing.T) {
	clock := debounce.NewFakeClock()
	deb := debounce.New(clock)
	defer deb.Close()
	tr := NewTracker(newMemStore(), deb)

	tr.SetActive("s1", "cmd-gone")
	got := tr.Restore("s1", func(viewID string) bool { return viewID != "cmd-gone" })
	assert.Equal(t, "", got, "a removed view must not be restored")

	// The stale entry is gone even without consulting the predicate again.
	got = tr.Restore("s1", nil)
	assert.Equal(t, "", got)
}

func TestTracker_PersistenceIsCoalesced(t *testing.T) {
	clock := debounce.NewFakeClock()
	deb := debounce.New(clock)
	defer deb.Close()
	store := newMemStore()
	tr := NewTracker(store, deb)

	// Rapid switching within the window must produce a single batched write.
	tr.SetActive("s1", "terminal")
	tr.SetActive("s1", "files")
	tr.SetActive("s2", "note")
	clock.Advance(400 * time.Millisecond)

	store.mu.Lock()
	writes := store.writes
	saved := store.data[stateKey]
	store.mu.Unlock()

	assert.Equal(t, 1, writes)
	assert.Equal(t, map[string]string{"s1": "files", "s2": "note"}, saved)
}

func TestTracker_SurvivesReload(t *testing.T) {
	clock := debounce.NewFakeClock()
	deb := debounce.New(clock)
	defer deb.Close()
	store := newMemStore()

	tr := NewTracker(store, deb)
	tr.SetActive("s1", "note")
	tr.Flush()

	// A fresh tracker over the same store sees the mapping, modelling the
	// session torn down and reattached later.
	tr2 := NewTracker(store, debounce.New(clock))
	got := tr2.Restore("s1", func(string) bool { return true })
	assert.Equal(t, "note", got)
}

func TestTracker_Forget(t *testing.T) {
	clock := debounce.NewFakeClock()
	deb := debounce.New(clock)
	defer deb.Close()
	tr := NewTracker(newMemStore(), deb)

	tr.SetActive("s1", "terminal")
	tr.Forget("s1")
	_, ok := tr.Active("s1")
	require.False(t, ok)
}

func TestTracker_NilStoreIsUsable(t *testing.T) {
	tr := NewTracker(nil, nil)
	tr.SetActive("s1", "terminal")
	assert.Equal(t, "terminal", tr.Restore("s1", nil))
	tr.Flush()
}
