package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/sahilm/fuzzy"

	"github.com/asheshgoplani/workdeck/internal/view"
)

// paletteMaxResults caps the rendered candidate list.
const paletteMaxResults = 10

// PaletteItem is one switchable target in the fuzzy palette.
type PaletteItem struct {
	SessionID string
	ViewID    string
	Label     string
}

// paletteSource adapts items to the fuzzy matcher.
type paletteSource []PaletteItem

func (s paletteSource) String(i int) string { return s[i].Label }
func (s paletteSource) Len() int            { return len(s) }

// Palette is the fuzzy view-switch overlay. While open it owns all key
// input; the shortcut dispatcher is gated off.
type Palette struct {
	input    textinput.Model
	items    paletteSource
	matches  []fuzzy.Match
	cursor   int
	onChoose func(PaletteItem)
}

// NewPalette creates a closed palette. onChoose fires on selection.
func NewPalette(onChoose func(PaletteItem)) *Palette {
	ti := textinput.New()
	ti.Placeholder = "switch to view…"
	ti.Prompt = "> "
	ti.CharLimit = 80
	return &Palette{input: ti, onChoose: onChoose}
}

// Open resets and focuses the palette with the current candidates.
func (p *Palette) Open(items []PaletteItem) {
	p.items = paletteSource(items)
	p.input.SetValue("")
	p.cursor = 0
	p.refilter()
	p.input.Focus()
}

// Close blurs the palette.
func (p *Palette) Close() { p.input.Blur() }

// IsOpen reports whether the palette owns input.
func (p *Palette) IsOpen() bool { return p.input.Focused() }

func (p *Palette) refilter() {
	q := p.input.Value()
	if q == "" {
		p.matches = p.matches[:0]
		for i := range p.items {
			p.matches = append(p.matches, fuzzy.Match{Index: i, Str: p.items[i].Label})
		}
	} else {
		p.matches = fuzzy.FindFrom(q, p.items)
	}
	if p.cursor >= len(p.matches) {
		p.cursor = 0
	}
}

// Update handles one key message while open.
func (p *Palette) Update(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "esc", "ctrl+p":
		p.Close()
		return nil
	case "enter":
		if p.cursor < len(p.matches) {
			item := p.items[p.matches[p.cursor].Index]
			p.Close()
			if p.onChoose != nil {
				p.onChoose(item)
			}
		}
		return nil
	case "up", "ctrl+k":
		if p.cursor > 0 {
			p.cursor--
		}
		return nil
	case "down", "ctrl+j":
		if p.cursor < len(p.matches)-1 {
			p.cursor++
		}
		return nil
	}

	var cmd tea.Cmd
	p.input, cmd = p.input.Update(msg)
	p.refilter()
	return cmd
}

// View renders the palette overlay.
func (p *Palette) View(st Styles, width int) string {
	var b strings.Builder
	b.WriteString(p.input.View())
	b.WriteString("\n")

	limit := len(p.matches)
	if limit > paletteMaxResults {
		limit = paletteMaxResults
	}
	for i := 0; i < limit; i++ {
		item := p.items[p.matches[i].Index]
		line := "  " + item.Label
		if i == p.cursor {
			line = st.TabActive.Render("▸ " + item.Label)
		}
		b.WriteString(line + "\n")
	}
	if len(p.matches) == 0 {
		b.WriteString(st.Dim.Render("  no matches") + "\n")
	}
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		Padding(0, 1).
		Width(min(width-4, 60)).
		Render(b.String())
}

// PaletteItems flattens a set of sessions into palette candidates.
func PaletteItems(sessions []string, viewsOf func(string) []view.View) []PaletteItem {
	var out []PaletteItem
	for _, sid := range sessions {
		for _, v := range viewsOf(sid) {
			out = append(out, PaletteItem{
				SessionID: sid,
				ViewID:    v.ID,
				Label:     sid + " / " + v.Title,
			})
		}
	}
	return out
}
