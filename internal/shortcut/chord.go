// Package shortcut implements a precedence-ordered global key-chord
// registry. Dispatch walks shortcuts by (priority desc, registration order
// asc), gates on scope, predicate and input-target exclusion, and stops at
// the first consuming handler.
package shortcut

import (
	"fmt"
	"sort"
	"strings"
)

// Chord is a key plus an exact modifier set. Matching is equality on the
// full set, never subset matching: ctrl+k does not match ctrl+shift+k.
type Chord struct {
	Key   string
	Ctrl  bool
	Alt   bool
	Shift bool
	Meta  bool
}

// ParseChord parses descriptors like "ctrl+shift+k", "alt+enter" or "g".
// Modifier names: ctrl, alt (option), shift, meta (cmd/super). The final
// token is the key, lowercased.
func ParseChord(s string) (Chord, error) {
	parts := strings.Split(strings.ToLower(strings.TrimSpace(s)), "+")
	if len(parts) == 0 || parts[len(parts)-1] == "" {
		return Chord{}, fmt.Errorf("invalid chord %q", s)
	}
	var c Chord
	for _, p := range parts[:len(parts)-1] {
		switch p {
		case "ctrl", "control":
			c.Ctrl = true
		case "alt", "option", "opt":
			c.Alt = true
		case "shift":
			c.Shift = true
		case "meta", "cmd", "super":
			c.Meta = true
		default:
			return Chord{}, fmt.Errorf("invalid chord %q: unknown modifier %q", s, p)
		}
	}
	c.Key = parts[len(parts)-1]
	return c, nil
}

// MustChord is ParseChord for literals; it panics on malformed input.
func MustChord(s string) Chord {
	c, err := ParseChord(s)
	if err != nil {
		panic(err)
	}
	return c
}

// Matches reports exact chord equality.
func (c Chord) Matches(other Chord) bool {
	return strings.EqualFold(c.Key, other.Key) &&
		c.Ctrl == other.Ctrl && c.Alt == other.Alt &&
		c.Shift == other.Shift && c.Meta == other.Meta
}

// String renders the chord in canonical modifier order.
func (c Chord) String() string {
	var parts []string
	if c.Ctrl {
		parts = append(parts, "ctrl")
	}
	if c.Alt {
		parts = append(parts, "alt")
	}
	if c.Shift {
		parts = append(parts, "shift")
	}
	if c.Meta {
		parts = append(parts, "meta")
	}
	parts = append(parts, c.Key)
	return strings.Join(parts, "+")
}

// sortChords orders chords for stable display (help overlays, config dumps).
func sortChords(chords []Chord) {
	sort.Slice(chords, func(i, j int) bool { return chords[i].String() < chords[j].String() })
}
