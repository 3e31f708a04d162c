package ui

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/asheshgoplani/workdeck/internal/shortcut"
)

// chordFromKey converts a Bubble Tea key message to a dispatcher chord.
// Bubble Tea already renders chords in "mod+mod+key" form, so the parser
// handles most of it; bare runes and space need special-casing.
func chordFromKey(msg tea.KeyMsg) (shortcut.Chord, bool) {
	s := msg.String()
	if s == "" {
		return shortcut.Chord{}, false
	}
	if msg.Type == tea.KeyRunes && !msg.Alt {
		r := string(msg.Runes)
		c := shortcut.Chord{Key: strings.ToLower(r)}
		c.Shift = r != strings.ToLower(r)
		return c, true
	}
	if s == " " {
		return shortcut.Chord{Key: "space"}, true
	}
	c, err := shortcut.ParseChord(s)
	if err != nil {
		// Unparseable sequences (e.g. bracketed paste) carry no chord.
		return shortcut.Chord{}, false
	}
	return c, true
}
