package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "auto", cfg.UI.Theme)
	assert.NotEmpty(t, cfg.Workspace.Root)
}

func TestLoad_ParsesAndValidates(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte(`
[remote]
base_url = "https://deck.example.com"
token = "abc"

[workspace]
root = "/srv/work"
user = "alice"

[ui]
theme = "neon"
`), 0o644))

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "https://deck.example.com", cfg.Remote.BaseURL)
	assert.Equal(t, "abc", cfg.Remote.Token)
	assert.Equal(t, "/srv/work", cfg.Workspace.Root)
	assert.Equal(t, "alice", cfg.Workspace.User)
	assert.Equal(t, "auto", cfg.UI.Theme, "invalid theme falls back to auto")
}

func TestLoad_MalformedIsError(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte("[remote\n"), 0o644))
	_, err := Load(dir)
	assert.Error(t, err)
}

func TestLoadKeymap(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "keymap.yaml"), []byte(`
next-view: ["ctrl+right", "ctrl+l"]
prev-view: ["ctrl+left"]
`), 0o644))

	km, err := LoadKeymap(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"ctrl+right", "ctrl+l"}, km["next-view"])
	assert.Equal(t, []string{"ctrl+left"}, km["prev-view"])
}

func TestLoadKeymap_MissingFile(t *testing.T) {
	km, err := LoadKeymap(t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, km)
}
