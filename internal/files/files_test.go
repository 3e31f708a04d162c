package files

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func names(entries []Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Name
	}
	return out
}

func TestList_DirsFirstSorted(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "b.txt"), "b")
	writeFile(t, filepath.Join(root, "a.txt"), "a")
	require.NoError(t, os.MkdirAll(filepath.Join(root, "zdir"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "adir"), 0o755))

	entries, err := NewLister(root).List("")
	require.NoError(t, err)
	assert.Equal(t, []string{"adir", "zdir", "a.txt", "b.txt"}, names(entries))
}

func TestList_Subdirectory(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "sub", "inner.txt"), "x")

	entries, err := NewLister(root).List("sub")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "inner.txt", entries[0].Name)
	assert.Equal(t, "sub/inner.txt", entries[0].Path)
}

func TestList_HonorsGitignore(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, ".gitignore"), "*.log\nbuild/\n")
	writeFile(t, filepath.Join(root, "app.log"), "noise")
	writeFile(t, filepath.Join(root, "keep.txt"), "signal")
	require.NoError(t, os.MkdirAll(filepath.Join(root, "build"), 0o755))

	entries, err := NewLister(root).List("")
	require.NoError(t, err)
	assert.Equal(t, []string{".gitignore", "keep.txt"}, names(entries))
}

func TestList_HidesGitDir(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, ".git"), 0o755))
	writeFile(t, filepath.Join(root, "f.txt"), "x")

	entries, err := NewLister(root).List("")
	require.NoError(t, err)
	assert.Equal(t, []string{"f.txt"}, names(entries))
}

func TestList_RejectsEscape(t *testing.T) {
	// The sibling directory exists, so only the escape check can reject it.
	parent := t.TempDir()
	root := filepath.Join(parent, "workspace")
	writeFile(t, filepath.Join(parent, "outside", "secret.txt"), "x")
	require.NoError(t, os.MkdirAll(root, 0o755))

	l := NewLister(root)
	for _, rel := range []string{"..", "../outside", "sub/../../outside"} {
		_, err := l.List(rel)
		assert.Error(t, err, "path %q must not escape the workspace", rel)
	}
}

func TestList_MissingDir(t *testing.T) {
	root := t.TempDir()
	_, err := NewLister(root).List("nope")
	assert.Error(t, err)
}
