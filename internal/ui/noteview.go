package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/asheshgoplani/workdeck/internal/note"
)

// NoteView binds a note model to a textarea. The model owns persistence and
// status; the view owns rendering and key input.
type NoteView struct {
	model *note.Model
	area  textarea.Model
}

// NewNoteView wraps a note model.
func NewNoteView(m *note.Model) *NoteView {
	ta := textarea.New()
	ta.Placeholder = "Write a note…"
	ta.ShowLineNumbers = false
	ta.SetValue(m.Content())
	return &NoteView{model: m, area: ta}
}

// Model returns the underlying note model.
func (n *NoteView) Model() *note.Model { return n.model }

// Focus gives the textarea key focus and syncs it to the model buffer. The
// model is authoritative: a remote refresh while the view was unfocused is
// picked up here.
func (n *NoteView) Focus() tea.Cmd {
	if !n.model.Dirty() && n.area.Value() != n.model.Content() {
		n.area.SetValue(n.model.Content())
	}
	return n.area.Focus()
}

// Blur drops key focus.
func (n *NoteView) Blur() { n.area.Blur() }

// Focused reports whether the editor owns key input.
func (n *NoteView) Focused() bool { return n.area.Focused() }

// SetSize resizes the textarea.
func (n *NoteView) SetSize(width, height int) {
	n.area.SetWidth(width)
	n.area.SetHeight(height)
}

// Update feeds a key into the editor and pushes the buffer to the model,
// which starts the autosave window.
func (n *NoteView) Update(msg tea.KeyMsg) tea.Cmd {
	// Conflict resolution keys work regardless of buffer state.
	switch msg.String() {
	case "ctrl+shift+r":
		if n.model.ApplyPendingRemote() {
			n.area.SetValue(n.model.Content())
		}
		return nil
	case "ctrl+shift+k":
		n.model.KeepLocal()
		return nil
	}

	before := n.area.Value()
	var cmd tea.Cmd
	n.area, cmd = n.area.Update(msg)
	if after := n.area.Value(); after != before {
		n.model.SetContent(after)
	}
	return cmd
}

// StatusLine renders the note status for the status bar.
func (n *NoteView) StatusLine() string {
	switch n.model.Status() {
	case note.StatusSaving:
		return "Saving…"
	case note.StatusSuccess:
		return "Saved"
	case note.StatusError:
		return "Save failed — will retry on next edit"
	case note.StatusWarning:
		if snap := n.model.PendingRemote(); snap != nil {
			return fmt.Sprintf("Conflict: server has v%d (ctrl+shift+r take server, ctrl+shift+k keep mine)", snap.Version)
		}
		return "Conflict"
	case note.StatusEditing:
		return "Editing…"
	default:
		return n.model.StatusText()
	}
}

// View renders the editor.
func (n *NoteView) View() string {
	return n.area.View()
}
