package ui

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/exp/teatest"

	"github.com/asheshgoplani/workdeck/internal/engine"
	"github.com/asheshgoplani/workdeck/internal/shortcut"
	"github.com/asheshgoplani/workdeck/internal/view"
)

func TestChordFromKey(t *testing.T) {
	tests := []struct {
		name string
		msg  tea.KeyMsg
		want string
	}{
		{"plain rune", tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'g'}}, "g"},
		{"shifted rune", tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'G'}}, "shift+g"},
		{"ctrl combo", tea.KeyMsg{Type: tea.KeyCtrlR}, "ctrl+r"},
		{"arrow", tea.KeyMsg{Type: tea.KeyUp}, "up"},
		{"alt rune", tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'n'}, Alt: true}, "alt+n"},
		{"space", tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}, "space"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, ok := chordFromKey(tt.msg)
			if !ok {
				t.Fatal("expected a chord")
			}
			if got := c.String(); got != tt.want {
				t.Errorf("chordFromKey(%q) = %q, want %q", tt.msg.String(), got, tt.want)
			}
		})
	}
}

func TestChordFromKey_UnparseableSequenceYieldsNoChord(t *testing.T) {
	// A pasted multi-rune sequence with Alt renders as "alt+a+b", which is
	// not a chord; it must not reach the dispatcher as one.
	msg := tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("a+b"), Alt: true}
	if _, ok := chordFromKey(msg); ok {
		t.Errorf("chordFromKey(%q) returned a chord, want none", msg.String())
	}
}

func TestChordFromKey_MatchesRegisteredShortcut(t *testing.T) {
	c, ok := chordFromKey(tea.KeyMsg{Type: tea.KeyCtrlR})
	if !ok {
		t.Fatal("expected a chord")
	}
	if !shortcut.MustChord("ctrl+r").Matches(c) {
		t.Errorf("ctrl+r chord does not match registered matcher")
	}
}

func TestTabLabel_TruncatesLongTitles(t *testing.T) {
	v := view.View{Title: strings.Repeat("x", 60)}
	label := tabLabel(v)
	if len([]rune(label)) > maxTabLabel {
		t.Errorf("label not truncated: %d runes", len([]rune(label)))
	}
	if !strings.HasSuffix(label, "…") {
		t.Errorf("expected ellipsis suffix, got %q", label)
	}
}

func TestTabLabel_GeneratingMarker(t *testing.T) {
	v := view.View{Title: "Report", IsGenerating: true}
	if label := tabLabel(v); !strings.Contains(label, "⟳") {
		t.Errorf("expected generating marker in %q", label)
	}
}

func TestRenderTabs_CollapsesOverflow(t *testing.T) {
	st := NewStyles("dark")
	var views []view.View
	for i := 0; i < 20; i++ {
		views = append(views, view.View{ID: "v", Title: "Some Long View Title"})
	}
	out := renderTabs(st, views, "v", 60)
	if !strings.Contains(out, "+") {
		t.Errorf("expected overflow marker in %q", out)
	}
}

func TestPalette_FilterAndChoose(t *testing.T) {
	var chosen PaletteItem
	p := NewPalette(func(item PaletteItem) { chosen = item })
	p.Open([]PaletteItem{
		{SessionID: "s1", ViewID: "terminal", Label: "s1 / Terminal"},
		{SessionID: "s1", ViewID: "files", Label: "s1 / Files"},
		{SessionID: "s2", ViewID: "note", Label: "s2 / Note"},
	})
	if !p.IsOpen() {
		t.Fatal("palette should be open")
	}

	for _, r := range "files" {
		p.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
	if len(p.matches) != 1 {
		t.Fatalf("expected 1 match, got %d", len(p.matches))
	}

	p.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if p.IsOpen() {
		t.Error("palette should close on choose")
	}
	if chosen.ViewID != "files" {
		t.Errorf("expected files chosen, got %q", chosen.ViewID)
	}
}

func TestPalette_EscCloses(t *testing.T) {
	p := NewPalette(nil)
	p.Open([]PaletteItem{{Label: "x"}})
	p.Update(tea.KeyMsg{Type: tea.KeyEsc})
	if p.IsOpen() {
		t.Error("palette should close on esc")
	}
}

func newUIEngine(t *testing.T) *engine.Engine {
	t.Helper()
	e := engine.New(engine.Config{})
	t.Cleanup(e.Shutdown)
	return e
}

func TestDeck_TooSmall(t *testing.T) {
	d := NewDeck(Config{Engine: newUIEngine(t)})
	d.width, d.height = 20, 5
	if out := d.View(); !strings.Contains(out, "too small") {
		t.Errorf("expected size warning, got %q", out)
	}
}

func TestDeck_RendersSessionStripAndTabs(t *testing.T) {
	e := newUIEngine(t)
	e.AddSession("alpha", engine.SessionOptions{})
	e.SwitchToSession("alpha")

	d := NewDeck(Config{Engine: e})
	d.width, d.height = 100, 30

	out := d.View()
	if !strings.Contains(out, "alpha") {
		t.Errorf("session strip missing session id:\n%s", out)
	}
	if !strings.Contains(out, "Terminal") {
		t.Errorf("tab bar missing terminal tab:\n%s", out)
	}
}

func TestDeck_ShortcutNavigatesTabs(t *testing.T) {
	e := newUIEngine(t)
	e.AddSession("s1", engine.SessionOptions{})
	e.SwitchToSession("s1")

	d := NewDeck(Config{Engine: e})
	d.width, d.height = 100, 30

	d.Update(tea.KeyMsg{Type: tea.KeyCtrlRight})
	if _, viewID := e.ActiveView(); viewID != view.IDFileBrowser {
		t.Errorf("expected files view active, got %q", viewID)
	}
}

func TestDeck_Smoke(t *testing.T) {
	e := newUIEngine(t)
	e.AddSession("s1", engine.SessionOptions{})
	e.SwitchToSession("s1")

	tm := teatest.NewTestModel(t, NewDeck(Config{Engine: e}), teatest.WithInitialTermSize(100, 30))

	teatest.WaitFor(t, tm.Output(), func(b []byte) bool {
		return strings.Contains(string(b), "Terminal")
	}, teatest.WithDuration(3*time.Second))

	tm.Send(tea.KeyMsg{Type: tea.KeyCtrlC})
	tm.WaitFinished(t, teatest.WithFinalTimeout(3*time.Second))
}
