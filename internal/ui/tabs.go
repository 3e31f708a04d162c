package ui

import (
	"strconv"
	"strings"

	"github.com/charmbracelet/x/ansi"
	"github.com/mattn/go-runewidth"

	"github.com/asheshgoplani/workdeck/internal/view"
)

// maxTabLabel caps one tab's label width so a long command or link title
// cannot push siblings off screen.
const maxTabLabel = 24

// tabLabel renders one tab's text: truncated title plus lifecycle markers.
func tabLabel(v view.View) string {
	title := v.Title
	if title == "" {
		title = v.ID
	}
	title = runewidth.Truncate(title, maxTabLabel, "…")
	if v.IsGenerating {
		title += " ⟳"
	}
	return title
}

// renderTabs renders the view tab bar, active view highlighted, trimmed to
// the terminal width. Overflowing tabs collapse into a "+N" marker.
func renderTabs(st Styles, views []view.View, activeID string, width int) string {
	if len(views) == 0 {
		return ""
	}

	var b strings.Builder
	used := 0
	shown := 0
	for _, v := range views {
		label := tabLabel(v)
		cell := st.TabInactive.Render(label)
		if v.ID == activeID {
			cell = st.TabActive.Render(label)
		}
		cell += "  "

		w := runewidth.StringWidth(ansi.Strip(cell))
		if used+w > width-6 && shown > 0 {
			b.WriteString(st.TabInactive.Render("+" + strconv.Itoa(len(views)-shown)))
			break
		}
		b.WriteString(cell)
		used += w
		shown++
	}
	return st.TabBar.Render(b.String())
}
