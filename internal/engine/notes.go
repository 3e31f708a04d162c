package engine

import (
	"context"
	"log"

	"github.com/asheshgoplani/workdeck/internal/note"
	"github.com/asheshgoplani/workdeck/internal/view"
)

// noteDelegate adapts the engine's note models to the lifecycle manager's
// note contract without a package cycle.
type noteDelegate struct{ e *Engine }

func (d noteDelegate) ActivateNote(scopeID string) {
	d.e.activateNote(scopeID)
}

// noteModel returns the model for a scope, creating it on first use. Scopes
// are session ids plus the shared workspace scope.
func (e *Engine) noteModel(scopeID string) *note.Model {
	e.mu.Lock()
	defer e.mu.Unlock()

	m, ok := e.notes[scopeID]
	if !ok {
		m = note.NewModel(scopeID, e.currentUser, e.noteStore, e.deb)
		e.notes[scopeID] = m
	}
	return m
}

// NoteModel returns the note model for a session scope.
func (e *Engine) NoteModel(sessionID string) *note.Model {
	return e.noteModel(sessionID)
}

// WorkspaceNote returns the shared workspace-scope note model.
func (e *Engine) WorkspaceNote() *note.Model {
	return e.noteModel(view.WorkspaceScope)
}

// activateNote refreshes a note view's content on activation. A dirty buffer
// is never clobbered; remote changes then surface through the conflict path
// on the next save instead.
func (e *Engine) activateNote(scopeID string) {
	if e.noteStore == nil {
		return
	}
	m := e.noteModel(scopeID)
	if m.Dirty() {
		return
	}
	go func() {
		if err := m.LoadLatest(context.Background()); err != nil {
			log.Printf("engine: note %s refresh: %v", scopeID, err)
		}
	}()
}
