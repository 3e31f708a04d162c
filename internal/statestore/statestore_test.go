package statestore

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "state.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStore_SetGetRoundTrip(t *testing.T) {
	s := openTestStore(t)

	in := map[string]string{"s1": "files", "s2": "note"}
	require.NoError(t, s.Set("active-views", in))

	var out map[string]string
	ok, err := s.Get("active-views", &out)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, in, out)
}

func TestStore_GetMissingKey(t *testing.T) {
	s := openTestStore(t)

	var out map[string]string
	ok, err := s.Get("nope", &out)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStore_SetOverwrites(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.Set("k", "first"))
	require.NoError(t, s.Set("k", "second"))

	var out string
	ok, err := s.Get("k", &out)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "second", out)
}

func TestStore_Delete(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.Set("k", 1))
	require.NoError(t, s.Delete("k"))
	require.NoError(t, s.Delete("k"), "deleting an absent key is fine")

	var out int
	ok, err := s.Get("k", &out)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStore_Keys(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.Set("b", 1))
	require.NoError(t, s.Set("a", 2))

	keys, err := s.Keys()
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, keys)
}

func TestStore_ReopenSeesData(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "state.db")

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Set("k", "v"))
	require.NoError(t, s.Close())

	s2, err := Open(path)
	require.NoError(t, err)
	defer s2.Close()

	var out string
	ok, err := s2.Get("k", &out)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "v", out)
}

func TestWatcher_NotifiesOnExternalWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "state.db")

	events := make(chan struct{}, 10)
	w, err := NewWatcher(path, func() { events <- struct{}{} })
	require.NoError(t, err)
	defer w.Close()

	go w.Start()
	time.Sleep(100 * time.Millisecond)

	// Simulate another window writing the db file.
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	select {
	case <-events:
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for change notification")
	}
}

func TestWatcher_CoalescesBursts(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "state.db")

	events := make(chan struct{}, 100)
	w, err := NewWatcher(path, func() { events <- struct{}{} })
	require.NoError(t, err)
	defer w.Close()

	go w.Start()
	time.Sleep(100 * time.Millisecond)

	for i := 0; i < 10; i++ {
		require.NoError(t, os.WriteFile(path, []byte{byte(i)}, 0o644))
		time.Sleep(5 * time.Millisecond)
	}
	time.Sleep(200 * time.Millisecond)

	count := 0
Loop:
	for {
		select {
		case <-events:
			count++
		default:
			break Loop
		}
	}
	assert.LessOrEqual(t, count, 2, "burst writes should coalesce into few notifications")
	assert.GreaterOrEqual(t, count, 1)
}
