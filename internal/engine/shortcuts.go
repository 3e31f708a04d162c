package engine

import (
	"log"

	"github.com/asheshgoplani/workdeck/internal/shortcut"
)

// defaultChords are the built-in bindings per action id; keymap entries
// override them wholesale.
var defaultChords = map[string][]string{
	"next-view":    {"ctrl+right", "ctrl+l"},
	"prev-view":    {"ctrl+left", "ctrl+h"},
	"next-session": {"ctrl+down", "ctrl+j"},
	"prev-session": {"ctrl+up", "ctrl+k"},
	"refresh-view": {"ctrl+r"},
	"close-view":   {"ctrl+w"},
	"move-up":      {"ctrl+shift+up"},
	"move-down":    {"ctrl+shift+down"},
}

// registerDefaultShortcuts installs the deck-scope navigation bindings.
// They stay live inside inputs and editable surfaces: chord-modified keys
// never collide with text entry.
func (e *Engine) registerDefaultShortcuts(keymap map[string][]string) {
	actions := map[string]func(){
		"next-view":    func() { e.Navigate(1) },
		"prev-view":    func() { e.Navigate(-1) },
		"next-session": func() { e.NavigateSession(1) },
		"prev-session": func() { e.NavigateSession(-1) },
		"refresh-view": func() { e.RefreshActiveView() },
		"close-view": func() {
			sessionID, viewID := e.ActiveView()
			if viewID != "" {
				e.CloseView(sessionID, viewID)
			}
		},
		"move-up":   func() { e.ReorderActive(-1) },
		"move-down": func() { e.ReorderActive(1) },
	}

	for id, fn := range actions {
		chords := defaultChords[id]
		if override, ok := keymap[id]; ok {
			chords = override
		}
		matchers := make([]shortcut.Chord, 0, len(chords))
		for _, s := range chords {
			c, err := shortcut.ParseChord(s)
			if err != nil {
				log.Printf("engine: keymap %s: %v", id, err)
				continue
			}
			matchers = append(matchers, c)
		}
		if len(matchers) == 0 {
			continue
		}
		action := fn
		e.shortcuts.Register(shortcut.Spec{
			ID:              id,
			Matchers:        matchers,
			Scope:           "deck",
			AllowInInputs:   true,
			AllowInEditable: true,
			Handler: func(shortcut.Event) bool {
				action()
				return true
			},
		})
	}
}
