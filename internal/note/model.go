package note

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/asheshgoplani/workdeck/internal/debounce"
)

const (
	// autosaveDelay is the quiet window after the last keystroke before an
	// automatic save fires.
	autosaveDelay = 800 * time.Millisecond

	// successDisplayWindow is how long the success status stays up before
	// reverting to the computed idle text.
	successDisplayWindow = 2 * time.Second
)

// Model is the per-scope note state machine. One instance exists per
// terminal session plus one for the workspace scope; the view displaying a
// note references its model, never copies it.
type Model struct {
	mu sync.Mutex

	scopeID     string
	currentUser string
	store       Store
	deb         *debounce.Debouncer
	now         func() time.Time

	status           Status
	content          string
	lastSavedContent string
	version          int64
	updatedAt        time.Time
	updatedBy        string
	pendingRemote    *Snapshot

	viewMode         ViewMode
	splitOrientation SplitOrientation

	// onStatus, when set, is invoked (outside the lock) after every status
	// transition so the displaying view can repaint.
	onStatus func(Status)

	saving bool
}

// NewModel creates a note model for a scope. currentUser suppresses the
// author in the idle text when the last editor was this user.
func NewModel(scopeID, currentUser string, store Store, deb *debounce.Debouncer) *Model {
	return &Model{
		scopeID:          scopeID,
		currentUser:      currentUser,
		store:            store,
		deb:              deb,
		now:              time.Now,
		status:           StatusIdle,
		viewMode:         ViewModeEdit,
		splitOrientation: SplitVertical,
	}
}

// OnStatus registers the status-change callback.
func (m *Model) OnStatus(fn func(Status)) {
	m.mu.Lock()
	m.onStatus = fn
	m.mu.Unlock()
}

func (m *Model) setStatus(s Status) func() {
	m.status = s
	fn := m.onStatus
	if fn == nil {
		return func() {}
	}
	return func() { fn(s) }
}

// ScopeID returns the scope this model owns.
func (m *Model) ScopeID() string { return m.scopeID }

// Status returns the current display status.
func (m *Model) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// Content returns the live local buffer.
func (m *Model) Content() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.content
}

// Version returns the locally known saved version.
func (m *Model) Version() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.version
}

// Dirty reports whether there is anything to save. Invariant: content equals
// lastSavedContent exactly when Dirty is false.
func (m *Model) Dirty() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.content != m.lastSavedContent
}

// PendingRemote returns the unmerged remote snapshot, if a conflict is
// outstanding.
func (m *Model) PendingRemote() *Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.pendingRemote == nil {
		return nil
	}
	snap := *m.pendingRemote
	return &snap
}

// ViewMode returns the current render mode.
func (m *Model) ViewMode() ViewMode {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.viewMode
}

// SetViewMode switches the render mode.
func (m *Model) SetViewMode(mode ViewMode) {
	m.mu.Lock()
	m.viewMode = mode
	m.mu.Unlock()
}

// SplitOrientation returns the split orientation.
func (m *Model) SplitOrientation() SplitOrientation {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.splitOrientation
}

// ToggleSplitOrientation flips between horizontal and vertical split.
func (m *Model) ToggleSplitOrientation() {
	m.mu.Lock()
	if m.splitOrientation == SplitVertical {
		m.splitOrientation = SplitHorizontal
	} else {
		m.splitOrientation = SplitVertical
	}
	m.mu.Unlock()
}

func (m *Model) autosaveKey() string { return "note-autosave-" + m.scopeID }
func (m *Model) statusKey() string   { return "note-status-" + m.scopeID }

// SetContent applies a local edit: transitions to editing and (re)starts the
// autosave debounce window.
func (m *Model) SetContent(text string) {
	m.mu.Lock()
	m.content = text
	notify := m.setStatus(StatusEditing)
	deb := m.deb
	m.mu.Unlock()
	notify()

	if deb != nil {
		deb.Schedule(m.autosaveKey(), autosaveDelay, func() {
			if err := m.Save(context.Background()); err != nil {
				log.Printf("note %s: autosave: %v", m.scopeID, err)
			}
		})
	}
}

// Save persists the local buffer against the locally known version. A clean
// buffer is a no-op. On a version conflict the remote snapshot is parked in
// pendingRemote and local edits stand untouched.
func (m *Model) Save(ctx context.Context) error {
	m.mu.Lock()
	if m.saving || m.content == m.lastSavedContent {
		m.mu.Unlock()
		return nil
	}
	m.saving = true
	sent := m.content
	expected := m.version
	notify := m.setStatus(StatusSaving)
	m.mu.Unlock()
	notify()

	snap, err := m.store.SetNote(ctx, m.scopeID, sent, expected)

	m.mu.Lock()
	m.saving = false
	if err != nil {
		if ce, ok := AsConflict(err); ok {
			latest := ce.Latest
			m.pendingRemote = &latest
			notify = m.setStatus(StatusWarning)
			m.mu.Unlock()
			notify()
			return err
		}
		notify = m.setStatus(StatusError)
		m.mu.Unlock()
		notify()
		return fmt.Errorf("save note %s: %w", m.scopeID, err)
	}

	m.lastSavedContent = sent
	m.version = snap.Version
	m.updatedAt = snap.UpdatedAt
	m.updatedBy = snap.UpdatedBy
	if m.content != sent {
		// The user kept typing while the save was in flight. The autosave
		// window may already have elapsed into the in-flight skip above, so
		// arm it again or the remainder never persists.
		notify = m.setStatus(StatusEditing)
		deb := m.deb
		m.mu.Unlock()
		notify()
		if deb != nil {
			deb.Schedule(m.autosaveKey(), autosaveDelay, func() {
				if err := m.Save(context.Background()); err != nil {
					log.Printf("note %s: autosave: %v", m.scopeID, err)
				}
			})
		}
		return nil
	}
	notify = m.setStatus(StatusSuccess)
	deb := m.deb
	m.mu.Unlock()
	notify()

	if deb != nil {
		deb.Schedule(m.statusKey(), successDisplayWindow, func() {
			m.mu.Lock()
			var revert func()
			if m.status == StatusSuccess {
				revert = m.setStatus(StatusIdle)
			} else {
				revert = func() {}
			}
			m.mu.Unlock()
			revert()
		})
	}
	return nil
}

// LoadLatest fetches the authoritative snapshot and replaces content and
// lastSavedContent together, clearing any pending remote. Callers protecting
// a focused dirty buffer gate the call themselves.
func (m *Model) LoadLatest(ctx context.Context) error {
	snap, err := m.store.GetNote(ctx, m.scopeID)
	if err != nil {
		return fmt.Errorf("load note %s: %w", m.scopeID, err)
	}
	m.applySnapshot(snap)
	return nil
}

// ApplyPendingRemote resolves an outstanding conflict by adopting the remote
// snapshot, discarding local edits.
func (m *Model) ApplyPendingRemote() bool {
	m.mu.Lock()
	snap := m.pendingRemote
	m.mu.Unlock()
	if snap == nil {
		return false
	}
	m.applySnapshot(*snap)
	return true
}

// KeepLocal resolves an outstanding conflict by keeping local edits live:
// the remote version becomes the new save base so the next save retries
// against it.
func (m *Model) KeepLocal() bool {
	m.mu.Lock()
	if m.pendingRemote == nil {
		m.mu.Unlock()
		return false
	}
	m.version = m.pendingRemote.Version
	m.lastSavedContent = m.pendingRemote.Content
	m.pendingRemote = nil
	notify := m.setStatus(StatusEditing)
	deb := m.deb
	m.mu.Unlock()
	notify()

	if deb != nil {
		deb.Schedule(m.autosaveKey(), autosaveDelay, func() {
			if err := m.Save(context.Background()); err != nil {
				log.Printf("note %s: conflict retry: %v", m.scopeID, err)
			}
		})
	}
	return true
}

func (m *Model) applySnapshot(snap Snapshot) {
	m.mu.Lock()
	m.content = snap.Content
	m.lastSavedContent = snap.Content
	m.version = snap.Version
	m.updatedAt = snap.UpdatedAt
	m.updatedBy = snap.UpdatedBy
	m.pendingRemote = nil
	notify := m.setStatus(StatusIdle)
	m.mu.Unlock()
	notify()
}

// Flush forces a pending autosave through and then persists any remaining
// dirty buffer directly, for shutdown paths where no timer will ever fire.
func (m *Model) Flush() {
	if m.deb != nil {
		m.deb.Flush(m.autosaveKey())
	}
	if m.Dirty() {
		if err := m.Save(context.Background()); err != nil {
			log.Printf("note %s: flush: %v", m.scopeID, err)
		}
	}
}

// StatusText computes the idle display text. It is derived, never stored:
// pending-remote beats unsaved-changes beats attribution beats "ready".
func (m *Model) StatusText() string {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch {
	case m.pendingRemote != nil:
		return fmt.Sprintf("Newer version on server (v%d)", m.pendingRemote.Version)
	case m.content != m.lastSavedContent:
		return "Unsaved changes"
	case !m.updatedAt.IsZero():
		rel := relativeTime(m.now().Sub(m.updatedAt))
		if m.updatedBy != "" && m.updatedBy != m.currentUser {
			return fmt.Sprintf("Updated %s by %s", rel, m.updatedBy)
		}
		return fmt.Sprintf("Updated %s", rel)
	default:
		return "Ready"
	}
}

// relativeTime renders a duration as a coarse human-readable age.
func relativeTime(d time.Duration) string {
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	}
}
