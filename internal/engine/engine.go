// Package engine is the in-process orchestration layer binding the view
// registry, active-view tracking, reordering, content lifecycles, note
// models and the shortcut registry into the API the rest of the application
// consumes. One Engine instance owns all of that state; nothing here is a
// package-level singleton, so independent instances never interfere.
package engine

import (
	"context"
	"log"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/asheshgoplani/workdeck/internal/debounce"
	"github.com/asheshgoplani/workdeck/internal/lifecycle"
	"github.com/asheshgoplani/workdeck/internal/note"
	"github.com/asheshgoplani/workdeck/internal/remote"
	"github.com/asheshgoplani/workdeck/internal/shortcut"
	"github.com/asheshgoplani/workdeck/internal/view"
)

// Notification is a transient, non-blocking user-facing message. Remote
// failures surface here; local state always stands.
type Notification struct {
	Message string
	Time    time.Time
}

// Directory combines the session-directory and command-runner contracts the
// engine consumes from its local or remote session backend.
type Directory interface {
	lifecycle.SessionDirectory
	lifecycle.CommandRunner
}

// LinkProvider lists the externally generated documents of a session.
type LinkProvider interface {
	Links(ctx context.Context, sessionID string) ([]remote.Link, error)
}

// Config wires an Engine. Only Registry-independent collaborators appear
// here; the engine builds and owns its registry, tracker and manager.
type Config struct {
	StateStore view.StateStore
	Directory  Directory
	Generator  lifecycle.GenerationService
	NoteStore  note.Store
	Links      LinkProvider
	Lister     lifecycle.FileLister
	OrderStore view.OrderStore

	Notify         func(Notification)
	OnContent      func(lifecycle.Content)
	OnViewsChanged func(sessionID string)
	Refit          func(sessionID string)
	Theme          func() *lifecycle.ThemePayload

	CurrentUser string

	// Clock overrides timer behavior in tests; nil means real time.
	Clock debounce.Clock

	// Keymap overrides the default shortcut chords per action id.
	Keymap map[string][]string
}

// SessionOptions describe a session being admitted to the deck.
type SessionOptions struct {
	Workdir   string
	Pinned    bool
	LocalOnly bool
}

// Engine is the view orchestration and content lifecycle engine.
type Engine struct {
	registry  *view.Registry
	tracker   *view.Tracker
	reorder   *view.ReorderCoordinator
	lifecycle *lifecycle.Manager
	shortcuts *shortcut.Dispatcher
	deb       *debounce.Debouncer

	directory Directory
	noteStore note.Store
	links     LinkProvider

	notify         func(Notification)
	onViewsChanged func(sessionID string)
	currentUser    string

	mu            sync.Mutex
	activeSession string
	sessionOrder  []string
	pinned        map[string]bool
	localOnly     map[string]bool
	notes         map[string]*note.Model
}

// New creates an Engine.
func New(cfg Config) *Engine {
	e := &Engine{
		shortcuts:      shortcut.NewDispatcher(),
		deb:            debounce.New(cfg.Clock),
		directory:      cfg.Directory,
		noteStore:      cfg.NoteStore,
		links:          cfg.Links,
		notify:         cfg.Notify,
		onViewsChanged: cfg.OnViewsChanged,
		currentUser:    cfg.CurrentUser,
		pinned:         make(map[string]bool),
		localOnly:      make(map[string]bool),
		notes:          make(map[string]*note.Model),
	}

	e.registry = view.NewRegistry(func(childID string) {
		if cfg.Directory != nil {
			if err := cfg.Directory.TerminateSession(childID); err != nil {
				log.Printf("engine: terminate child %s: %v", childID, err)
			}
		}
	})
	e.tracker = view.NewTracker(cfg.StateStore, e.deb)
	e.reorder = view.NewReorderCoordinator(cfg.OrderStore, func(msg string) {
		e.pushNotification(msg)
	}, func(id string) bool {
		e.mu.Lock()
		defer e.mu.Unlock()
		return e.localOnly[id]
	})
	e.lifecycle = lifecycle.NewManager(lifecycle.Config{
		Registry:  e.registry,
		Directory: cfg.Directory,
		Runner:    cfg.Directory,
		Generator: cfg.Generator,
		Lister:    cfg.Lister,
		Notes:     noteDelegate{e},
		Refit:     cfg.Refit,
		OnContent: cfg.OnContent,
		Theme:     cfg.Theme,
	})

	e.registerDefaultShortcuts(cfg.Keymap)
	return e
}

func (e *Engine) pushNotification(msg string) {
	if e.notify != nil {
		e.notify(Notification{Message: msg, Time: time.Now()})
	}
}

func (e *Engine) viewsChanged(sessionID string) {
	if e.onViewsChanged != nil {
		e.onViewsChanged(sessionID)
	}
}

// Registry exposes the view registry (read paths for the display layer).
func (e *Engine) Registry() *view.Registry { return e.registry }

// Shortcuts exposes the dispatcher for the input layer.
func (e *Engine) Shortcuts() *shortcut.Dispatcher { return e.shortcuts }

// RegisterShortcut registers a shortcut and returns its unregister func.
func (e *Engine) RegisterShortcut(spec shortcut.Spec) func() {
	return e.shortcuts.Register(spec)
}

// ActiveSession returns the focused session id.
func (e *Engine) ActiveSession() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.activeSession
}

// SessionOrder returns the deck order.
func (e *Engine) SessionOrder() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.sessionOrder...)
}

// ChildOrder returns the live child-session id order for a session; the
// canonical view order is derived against it.
func (e *Engine) ChildOrder(sessionID string) []string {
	if e.directory == nil {
		return nil
	}
	children := e.directory.GetChildSessions(sessionID)
	out := make([]string, len(children))
	for i, c := range children {
		out[i] = c.ID
	}
	return out
}

// Views returns the canonical view order of a session.
func (e *Engine) Views(sessionID string) []view.View {
	return e.registry.CanonicalOrder(sessionID, e.ChildOrder(sessionID))
}

// AddSession admits a session to the deck and builds its base view set.
func (e *Engine) AddSession(sessionID string, opts SessionOptions) {
	e.mu.Lock()
	known := false
	for _, id := range e.sessionOrder {
		if id == sessionID {
			known = true
			break
		}
	}
	if !known {
		e.sessionOrder = append(e.sessionOrder, sessionID)
	}
	e.pinned[sessionID] = opts.Pinned
	e.localOnly[sessionID] = opts.LocalOnly
	e.mu.Unlock()

	if d, ok := e.directory.(interface{ SetWorkdir(string, string) }); ok && opts.Workdir != "" {
		d.SetWorkdir(sessionID, opts.Workdir)
	}
	e.ensureBaseViews(sessionID)
}

// ensureBaseViews builds the permanent surfaces of a session and kicks off
// the remote prefetch of its links and note.
func (e *Engine) ensureBaseViews(sessionID string) {
	e.registry.EnsureView(sessionID, view.KindTerminal, view.Spec{Title: "Terminal"})
	e.registry.EnsureView(sessionID, view.KindFileBrowser, view.Spec{Title: "Files"})
	e.registry.EnsureView(sessionID, view.KindNote, view.Spec{Title: "Note"})
	e.lifecycle.SyncShellViews(sessionID)
	e.prefetchSession(sessionID)
	e.viewsChanged(sessionID)
}

// prefetchSession loads a session's links and note snapshot in parallel.
// Failures degrade to notifications; the session stays usable.
func (e *Engine) prefetchSession(sessionID string) {
	if e.links == nil && e.noteStore == nil {
		return
	}
	go func() {
		g, ctx := errgroup.WithContext(context.Background())
		if e.links != nil {
			g.Go(func() error {
				links, err := e.links.Links(ctx, sessionID)
				if err != nil {
					return err
				}
				e.applyLinks(sessionID, links)
				return nil
			})
		}
		if e.noteStore != nil {
			g.Go(func() error {
				m := e.noteModel(sessionID)
				if m.Dirty() {
					return nil // never clobber live edits with a prefetch
				}
				return m.LoadLatest(ctx)
			})
		}
		if err := g.Wait(); err != nil {
			log.Printf("engine: prefetch session %s: %v", sessionID, err)
			e.pushNotification("Some session data could not be loaded")
		}
	}()
}

// applyLinks reconciles generated-link views against the link registry.
func (e *Engine) applyLinks(sessionID string, links []remote.Link) {
	live := make(map[string]bool, len(links))
	for _, l := range links {
		live["link-"+l.Ref] = true
		e.registry.EnsureView(sessionID, view.KindGeneratedLink, view.Spec{
			LinkRef:               l.Ref,
			Title:                 l.Title,
			Tooltip:               l.URL,
			RefreshOnView:         l.RefreshOnView,
			RefreshOnViewActive:   l.RefreshOnViewActive,
			RefreshOnViewInactive: l.RefreshOnViewInactive,
		})
	}
	for _, v := range e.registry.Views(sessionID) {
		if v.Kind == view.KindGeneratedLink && !live[v.ID] {
			if err := e.registry.RemoveView(sessionID, v.ID); err != nil {
				log.Printf("engine: %v", err)
			}
		}
	}
	e.viewsChanged(sessionID)
}

// SwitchToSession focuses a session, rebuilding its view set if it was torn
// down, and restores its last active view (terminal when the mapping is
// stale or absent).
func (e *Engine) SwitchToSession(sessionID string) {
	e.mu.Lock()
	e.activeSession = sessionID
	known := false
	for _, id := range e.sessionOrder {
		if id == sessionID {
			known = true
			break
		}
	}
	if !known {
		// Reattach after teardown: the session rejoins the deck.
		e.sessionOrder = append(e.sessionOrder, sessionID)
	}
	e.mu.Unlock()

	if !e.registry.HasSession(sessionID) {
		e.ensureBaseViews(sessionID)
	}

	viewID := e.tracker.Restore(sessionID, func(id string) bool {
		return e.registry.Has(sessionID, id)
	})
	if viewID == "" {
		viewID = view.IDTerminal
		e.tracker.SetActive(sessionID, viewID)
	}
	e.activateView(sessionID, viewID, lifecycle.ReasonActivated)
}

// SwitchToView makes a view the active one of its session. Unknown views
// are logged no-ops.
func (e *Engine) SwitchToView(sessionID, viewID string) {
	if !e.registry.Has(sessionID, viewID) {
		log.Printf("engine: switch to unknown view %s/%s", sessionID, viewID)
		return
	}
	e.tracker.SetActive(sessionID, viewID)
	e.activateView(sessionID, viewID, lifecycle.ReasonActivated)
}

func (e *Engine) activateView(sessionID, viewID string, reason lifecycle.Reason) {
	e.lifecycle.Activate(lifecycle.Request{
		SessionID:     sessionID,
		ViewID:        viewID,
		Reason:        reason,
		SessionActive: e.ActiveSession() == sessionID,
	})
	e.viewsChanged(sessionID)
}

// ActiveView returns the focused session's active view id.
func (e *Engine) ActiveView() (sessionID, viewID string) {
	sessionID = e.ActiveSession()
	if sessionID == "" {
		return "", ""
	}
	viewID, _ = e.tracker.Active(sessionID)
	return sessionID, viewID
}

// Navigate moves the active view forward or backward through the canonical
// order, wrapping at the ends.
func (e *Engine) Navigate(direction int) {
	sessionID, current := e.ActiveView()
	if sessionID == "" {
		return
	}
	order := e.Views(sessionID)
	if len(order) == 0 {
		return
	}
	idx := 0
	for i, v := range order {
		if v.ID == current {
			idx = i
			break
		}
	}
	idx = (idx + direction + len(order)) % len(order)
	e.SwitchToView(sessionID, order[idx].ID)
}

// NavigateSession moves session focus through the deck order, wrapping.
func (e *Engine) NavigateSession(direction int) {
	e.mu.Lock()
	order := append([]string(nil), e.sessionOrder...)
	current := e.activeSession
	e.mu.Unlock()

	if len(order) == 0 {
		return
	}
	idx := 0
	for i, id := range order {
		if id == current {
			idx = i
			break
		}
	}
	idx = (idx + direction + len(order)) % len(order)
	e.SwitchToSession(order[idx])
}

// RefreshActiveView reruns the active view's content lifecycle explicitly.
func (e *Engine) RefreshActiveView() {
	sessionID, viewID := e.ActiveView()
	if viewID == "" {
		return
	}
	e.activateView(sessionID, viewID, lifecycle.ReasonRefresh)
}

// CloseView removes a closeable view. Closing the active view falls back to
// the terminal.
func (e *Engine) CloseView(sessionID, viewID string) {
	v, ok := e.registry.View(sessionID, viewID)
	if !ok {
		log.Printf("engine: close unknown view %s/%s", sessionID, viewID)
		return
	}
	if !v.Closeable {
		return
	}
	if err := e.registry.RemoveView(sessionID, viewID); err != nil {
		log.Printf("engine: %v", err)
		return
	}
	if active, _ := e.tracker.Active(sessionID); active == viewID {
		e.tracker.SetActive(sessionID, view.IDTerminal)
		if e.ActiveSession() == sessionID {
			e.activateView(sessionID, view.IDTerminal, lifecycle.ReasonActivated)
		}
	}
	e.viewsChanged(sessionID)
}

// RunCommandView creates (or reuses) a command view for the fixed command
// string and activates it.
func (e *Engine) RunCommandView(sessionID, command string) string {
	v := e.registry.EnsureView(sessionID, view.KindCommand, view.Spec{
		Title:   command,
		Command: command,
	})
	e.SwitchToView(sessionID, v.ID)
	return v.ID
}

// ReorderSessions applies a drag gesture to the deck order: optimistic
// locally, persisted remotely in the background, pinned-first always.
func (e *Engine) ReorderSessions(dragID, targetID string, side view.Side) {
	e.mu.Lock()
	order := append([]string(nil), e.sessionOrder...)
	pinned := make(map[string]bool, len(e.pinned))
	for k, v := range e.pinned {
		pinned[k] = v
	}
	e.mu.Unlock()

	e.reorder.Reorder(context.Background(), "deck", order, dragID, targetID, side,
		func(id string) bool { return pinned[id] },
		func(next []string) {
			e.mu.Lock()
			e.sessionOrder = next
			e.mu.Unlock()
			e.viewsChanged("")
		})
}

// ReorderActive nudges the focused session one position in the deck.
func (e *Engine) ReorderActive(direction int) {
	e.mu.Lock()
	order := append([]string(nil), e.sessionOrder...)
	current := e.activeSession
	e.mu.Unlock()

	idx := -1
	for i, id := range order {
		if id == current {
			idx = i
			break
		}
	}
	if idx < 0 {
		return
	}
	target := idx + direction
	if target < 0 || target >= len(order) {
		return
	}
	side := view.SideBefore
	if direction > 0 {
		side = view.SideAfter
	}
	e.ReorderSessions(current, order[target], side)
}

// SetPinned updates a session's pin state.
func (e *Engine) SetPinned(sessionID string, pinned bool) {
	e.mu.Lock()
	e.pinned[sessionID] = pinned
	e.mu.Unlock()
}

// DropSession tears down a session's in-memory view set. The active-view
// mapping survives deliberately so reattachment restores the same view.
func (e *Engine) DropSession(sessionID string) {
	e.registry.DropSession(sessionID)

	e.mu.Lock()
	for i, id := range e.sessionOrder {
		if id == sessionID {
			e.sessionOrder = append(e.sessionOrder[:i], e.sessionOrder[i+1:]...)
			break
		}
	}
	if e.activeSession == sessionID {
		e.activeSession = ""
	}
	e.mu.Unlock()
	e.viewsChanged(sessionID)
}

// Shutdown flushes pending durable writes and note autosaves.
func (e *Engine) Shutdown() {
	e.mu.Lock()
	models := make([]*note.Model, 0, len(e.notes))
	for _, m := range e.notes {
		models = append(models, m)
	}
	e.mu.Unlock()

	for _, m := range models {
		m.Flush()
	}
	e.tracker.Flush()
	e.deb.Close()
}
