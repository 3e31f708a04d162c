// Package config loads workdeck's configuration: config.toml for settings
// and keymap.yaml for shortcut overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Config is the parsed config.toml.
type Config struct {
	Remote    RemoteConfig    `toml:"remote"`
	Workspace WorkspaceConfig `toml:"workspace"`
	UI        UIConfig        `toml:"ui"`
}

// RemoteConfig configures the workspace server connection.
type RemoteConfig struct {
	BaseURL string `toml:"base_url"`
	Token   string `toml:"token"`
}

// WorkspaceConfig configures the local workspace.
type WorkspaceConfig struct {
	Root string `toml:"root"`
	User string `toml:"user"`
}

// UIConfig configures rendering behavior.
type UIConfig struct {
	// Theme: "dark", "light", or "auto" (detect from the OS).
	Theme string `toml:"theme"`
}

// Dir returns the per-user config directory.
func Dir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".workdeck")
}

// Load reads config.toml from dir, applying defaults for anything unset. A
// missing file returns pure defaults; a malformed file is an error.
func Load(dir string) (*Config, error) {
	cfg := &Config{}
	path := filepath.Join(dir, "config.toml")
	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err == nil {
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Workspace.Root == "" {
		if wd, err := os.Getwd(); err == nil {
			c.Workspace.Root = wd
		}
	}
	if c.Workspace.User == "" {
		c.Workspace.User = os.Getenv("USER")
	}
	switch c.UI.Theme {
	case "dark", "light", "auto":
	default:
		c.UI.Theme = "auto"
	}
}

// Keymap maps shortcut action ids to chord descriptor lists.
type Keymap map[string][]string

// LoadKeymap reads keymap.yaml from dir. A missing file returns an empty
// map so defaults apply.
func LoadKeymap(dir string) (Keymap, error) {
	path := filepath.Join(dir, "keymap.yaml")
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return Keymap{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read keymap: %w", err)
	}
	var km Keymap
	if err := yaml.Unmarshal(data, &km); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return km, nil
}
