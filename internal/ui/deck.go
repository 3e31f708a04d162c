// Package ui renders the workdeck terminal interface: a session strip, a
// per-session view tab bar, and one body pane per view kind. The engine owns
// all orchestration state; the deck model only renders it and translates key
// input into engine calls.
package ui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/asheshgoplani/workdeck/internal/engine"
	"github.com/asheshgoplani/workdeck/internal/lifecycle"
	"github.com/asheshgoplani/workdeck/internal/shortcut"
	"github.com/asheshgoplani/workdeck/internal/view"
)

// Minimum usable terminal geometry.
const (
	minWidth  = 40
	minHeight = 10
)

// notificationTTL is how long a transient notification stays on screen.
const notificationTTL = 4 * time.Second

// ContentMsg delivers a lifecycle content update into the render loop.
type ContentMsg lifecycle.Content

// NotificationMsg delivers an engine notification into the render loop.
type NotificationMsg engine.Notification

// ViewsChangedMsg signals that a session's view set or order changed.
type ViewsChangedMsg struct{ SessionID string }

type tickMsg time.Time

// Config wires a Deck.
type Config struct {
	Engine *engine.Engine

	// Output reads a child session's retained terminal output.
	Output func(childID string) (string, bool)

	// Theme is "dark", "light" or "auto".
	Theme string
}

// Deck is the root Bubble Tea model.
type Deck struct {
	eng    *engine.Engine
	output func(string) (string, bool)

	width  int
	height int
	styles Styles

	palette *Palette
	notes   map[string]*NoteView

	// content caches the latest lifecycle payload per session/view.
	content map[string]lifecycle.Content

	notification    string
	notificationEnd time.Time
}

// NewDeck creates the root model.
func NewDeck(cfg Config) *Deck {
	d := &Deck{
		eng:     cfg.Engine,
		output:  cfg.Output,
		styles:  NewStyles(ResolveThemeMode(cfg.Theme)),
		notes:   make(map[string]*NoteView),
		content: make(map[string]lifecycle.Content),
	}
	d.palette = NewPalette(func(item PaletteItem) {
		if item.SessionID != d.eng.ActiveSession() {
			d.eng.SwitchToSession(item.SessionID)
		}
		d.eng.SwitchToView(item.SessionID, item.ViewID)
	})
	// Overlays own their keys; global shortcuts stand down while one is up.
	d.eng.Shortcuts().SetModalGate(d.palette.IsOpen)
	return d
}

func (d *Deck) Init() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func contentKey(sessionID, viewID string) string { return sessionID + "/" + viewID }

// noteView returns the editor bound to the scope's note model.
func (d *Deck) noteView(scopeID string) *NoteView {
	nv, ok := d.notes[scopeID]
	if !ok {
		nv = NewNoteView(d.eng.NoteModel(scopeID))
		nv.SetSize(d.width-2, d.bodyHeight())
		d.notes[scopeID] = nv
	}
	return nv
}

func (d *Deck) bodyHeight() int {
	// session strip + tab bar + status bar
	h := d.height - 3
	if h < 1 {
		h = 1
	}
	return h
}

func (d *Deck) activeNoteView() *NoteView {
	sessionID, viewID := d.eng.ActiveView()
	if viewID != view.IDNote {
		return nil
	}
	return d.noteView(sessionID)
}

func (d *Deck) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		d.width = msg.Width
		d.height = msg.Height
		for _, nv := range d.notes {
			nv.SetSize(d.width-2, d.bodyHeight())
		}
		return d, nil

	case tea.KeyMsg:
		return d.handleKey(msg)

	case ContentMsg:
		d.content[contentKey(msg.SessionID, msg.ViewID)] = lifecycle.Content(msg)
		return d, nil

	case NotificationMsg:
		d.notification = msg.Message
		d.notificationEnd = time.Now().Add(notificationTTL)
		return d, nil

	case ViewsChangedMsg:
		// State lives in the engine; a repaint is all that is needed.
		return d, nil

	case tickMsg:
		if d.notification != "" && time.Now().After(d.notificationEnd) {
			d.notification = ""
		}
		return d, tea.Tick(time.Second, func(t time.Time) tea.Msg { return tickMsg(t) })
	}
	return d, nil
}

func (d *Deck) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return d, tea.Quit
	}

	if d.palette.IsOpen() {
		return d, d.palette.Update(msg)
	}
	if msg.String() == "ctrl+p" {
		d.palette.Open(PaletteItems(d.eng.SessionOrder(), d.eng.Views))
		return d, nil
	}

	nv := d.activeNoteView()

	chord, ok := chordFromKey(msg)
	if ok {
		target := shortcut.Target{}
		if nv != nil {
			target = shortcut.Target{Name: "note-editor", IsEditable: true}
		}
		if out := d.eng.Shortcuts().Dispatch(shortcut.Event{Chord: chord, Target: target}); out.Handled {
			// Focus follows the active view across a shortcut switch.
			if cur := d.activeNoteView(); cur != nil {
				return d, cur.Focus()
			}
			if nv != nil {
				nv.Blur()
			}
			return d, nil
		}
	}

	if nv != nil {
		if !nv.Focused() {
			return d, tea.Batch(nv.Focus(), nv.Update(msg))
		}
		return d, nv.Update(msg)
	}
	return d, nil
}

func (d *Deck) View() string {
	if d.width < minWidth || d.height < minHeight {
		return fmt.Sprintf("Terminal too small (%dx%d, need %dx%d)", d.width, d.height, minWidth, minHeight)
	}

	sessionID, viewID := d.eng.ActiveView()
	var b strings.Builder

	b.WriteString(d.renderSessionStrip())
	b.WriteString("\n")
	b.WriteString(renderTabs(d.styles, d.eng.Views(sessionID), viewID, d.width))
	b.WriteString("\n")

	if d.palette.IsOpen() {
		b.WriteString(d.palette.View(d.styles, d.width))
	} else {
		b.WriteString(d.renderBody(sessionID, viewID))
	}
	b.WriteString("\n")
	b.WriteString(d.renderStatusBar(sessionID, viewID))
	return b.String()
}

func (d *Deck) renderSessionStrip() string {
	active := d.eng.ActiveSession()
	var cells []string
	for _, id := range d.eng.SessionOrder() {
		if id == active {
			cells = append(cells, d.styles.SessionFocus.Render(id))
		} else {
			cells = append(cells, d.styles.SessionItem.Render(id))
		}
	}
	if len(cells) == 0 {
		return d.styles.Dim.Render(" no sessions")
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, cells...)
}

func (d *Deck) renderBody(sessionID, viewID string) string {
	v, ok := d.eng.Registry().View(sessionID, viewID)
	if !ok {
		return d.styles.Dim.Render(" nothing to show")
	}

	switch v.Kind {
	case view.KindNote:
		return d.noteView(sessionID).View()

	case view.KindContainerShell, view.KindCommand:
		if d.output != nil && v.ChildSessionID != "" {
			if out, ok := d.output(v.ChildSessionID); ok {
				return tailLines(out, d.bodyHeight())
			}
		}
		c := d.content[contentKey(sessionID, viewID)]
		if c.Err != nil {
			return d.styles.Error.Render(" " + c.Err.Error())
		}
		return d.styles.Dim.Render(" starting…")

	case view.KindFileBrowser:
		return d.renderFiles(sessionID, viewID)

	case view.KindGeneratedLink:
		c := d.content[contentKey(sessionID, viewID)]
		switch {
		case v.IsGenerating:
			return d.styles.Dim.Render(" generating…")
		case c.Err != nil:
			return d.styles.Error.Render(" generation failed: " + c.Err.Error())
		case c.URL != "":
			return " " + c.URL
		default:
			return d.styles.Dim.Render(" no content yet")
		}

	default: // terminal
		return d.styles.Dim.Render(" attached terminal (keys pass through)")
	}
}

func (d *Deck) renderFiles(sessionID, viewID string) string {
	c := d.content[contentKey(sessionID, viewID)]
	if c.Err != nil {
		return d.styles.Error.Render(" " + c.Err.Error())
	}
	if len(c.Entries) == 0 {
		return d.styles.Dim.Render(" empty directory")
	}
	var b strings.Builder
	limit := min(len(c.Entries), d.bodyHeight())
	for _, e := range c.Entries[:limit] {
		name := e.Name
		if e.IsDir {
			name += "/"
		}
		b.WriteString(" " + name + "\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func (d *Deck) renderStatusBar(sessionID, viewID string) string {
	if d.notification != "" {
		return d.styles.Notification.Render(d.notification)
	}
	if viewID == view.IDNote {
		return d.styles.StatusBar.Render(d.noteView(sessionID).StatusLine())
	}
	return d.styles.StatusBar.Render("ctrl+p switch · ctrl+←/→ views · ctrl+↑/↓ sessions · ctrl+r refresh · ctrl+c quit")
}

// tailLines keeps the last n lines of child output.
func tailLines(s string, n int) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}
