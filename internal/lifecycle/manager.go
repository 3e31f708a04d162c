package lifecycle

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/asheshgoplani/workdeck/internal/view"
)

// generationBurst and generationInterval bound how fast a single session may
// issue generation requests; refresh mashing coalesces instead of queueing
// unbounded remote work.
const (
	generationBurst    = 3
	generationInterval = 500 * time.Millisecond
)

// Manager owns the per-kind content state machines.
type Manager struct {
	registry  *view.Registry
	directory SessionDirectory
	runner    CommandRunner
	generator GenerationService
	lister    FileLister
	notes     NoteDelegate

	// refit signals the terminal stream owner to re-measure geometry.
	refit func(sessionID string)

	// onContent receives content updates; never called while locks are held.
	onContent func(Content)

	// theme supplies the current theme payload for generation requests.
	theme func() *ThemePayload

	mu        sync.Mutex
	limiters  map[string]*rate.Limiter
	cmdLocks  map[string]*sync.Mutex // per command view, serializes reruns
	filePaths map[string]string      // sessionID -> current browse path

	handlers map[view.Kind]func(*Manager, Request)
}

// Request is one lifecycle trigger for a specific view.
type Request struct {
	SessionID     string
	ViewID        string
	Reason        Reason
	SessionActive bool

	// Ctx bounds the asynchronous work the trigger spawns. Nil means
	// background.
	Ctx context.Context
}

// Context returns the request context, defaulting to background.
func (r Request) Context() context.Context {
	if r.Ctx != nil {
		return r.Ctx
	}
	return context.Background()
}

// Config wires a Manager. Nil collaborators disable the related behavior
// rather than panicking; the engine decides what is available.
type Config struct {
	Registry  *view.Registry
	Directory SessionDirectory
	Runner    CommandRunner
	Generator GenerationService
	Lister    FileLister
	Notes     NoteDelegate
	Refit     func(sessionID string)
	OnContent func(Content)
	Theme     func() *ThemePayload
}

// NewManager creates a Manager with the standard kind→handler table.
func NewManager(cfg Config) *Manager {
	m := &Manager{
		registry:  cfg.Registry,
		directory: cfg.Directory,
		runner:    cfg.Runner,
		generator: cfg.Generator,
		lister:    cfg.Lister,
		notes:     cfg.Notes,
		refit:     cfg.Refit,
		onContent: cfg.OnContent,
		theme:     cfg.Theme,
		limiters:  make(map[string]*rate.Limiter),
		cmdLocks:  make(map[string]*sync.Mutex),
		filePaths: make(map[string]string),
	}
	m.handlers = map[view.Kind]func(*Manager, Request){
		view.KindTerminal:       (*Manager).handleTerminal,
		view.KindContainerShell: (*Manager).handleShell,
		view.KindCommand:        (*Manager).handleCommand,
		view.KindFileBrowser:    (*Manager).handleFileBrowser,
		view.KindGeneratedLink:  (*Manager).handleGeneratedLink,
		view.KindNote:           (*Manager).handleNote,
	}
	return m
}

func (m *Manager) emit(c Content) {
	if m.onContent != nil {
		m.onContent(c)
	}
}

// Activate runs the kind-specific state machine for a view. Unknown views
// are logged no-ops.
func (m *Manager) Activate(req Request) {
	v, ok := m.registry.View(req.SessionID, req.ViewID)
	if !ok {
		log.Printf("lifecycle: activate unknown view %s/%s", req.SessionID, req.ViewID)
		return
	}
	handler, ok := m.handlers[v.Kind]
	if !ok {
		return
	}
	handler(m, req)
}

// handleTerminal: the terminal has no owned lifecycle; a reload request only
// triggers a geometry refit on the live stream.
func (m *Manager) handleTerminal(req Request) {
	if req.Reason == ReasonRefresh || req.Reason == ReasonManual {
		if m.refit != nil {
			m.refit(req.SessionID)
		}
	}
}

// handleShell: lifecycle is owned by the child session itself.
func (m *Manager) handleShell(Request) {}

// handleNote delegates to the note editing model.
func (m *Manager) handleNote(req Request) {
	if m.notes != nil {
		m.notes.ActivateNote(req.SessionID)
	}
}

// SyncShellViews reconciles container-shell views against the live child
// order: one view per child, titles recomputed ("Shell" when the session
// has exactly one, "Shell N" ordinals otherwise), views for gone children
// removed. Call it whenever the child-session order changes.
func (m *Manager) SyncShellViews(sessionID string) {
	if m.directory == nil {
		return
	}
	children := m.directory.GetChildSessions(sessionID)

	live := make(map[string]bool, len(children))
	for i, child := range children {
		live[child.ID] = true
		title := "Shell"
		if len(children) > 1 {
			title = fmt.Sprintf("Shell %d", i+1)
		}
		m.registry.EnsureView(sessionID, view.KindContainerShell, view.Spec{
			ChildSessionID: child.ID,
			Title:          title,
			Tooltip:        child.Title,
		})
	}

	for _, v := range m.registry.Views(sessionID) {
		if v.Kind == view.KindContainerShell && !live[v.ChildSessionID] {
			if err := m.registry.RemoveView(sessionID, v.ID); err != nil {
				log.Printf("lifecycle: %v", err)
			}
		}
	}
}

// SetFilePath records the current browse path for a session's file view.
func (m *Manager) SetFilePath(sessionID, path string) {
	m.mu.Lock()
	m.filePaths[sessionID] = path
	m.mu.Unlock()
}

// FilePath returns the current browse path for a session ("" = root).
func (m *Manager) FilePath(sessionID string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.filePaths[sessionID]
}

// handleFileBrowser re-lists the current path on activation or refresh. The
// listing never invalidates on its own.
func (m *Manager) handleFileBrowser(req Request) {
	if m.lister == nil {
		return
	}
	path := m.FilePath(req.SessionID)

	go func() {
		entries, err := m.lister.List(path)
		m.emit(Content{
			SessionID: req.SessionID,
			ViewID:    req.ViewID,
			Kind:      view.KindFileBrowser,
			Entries:   entries,
			Err:       err,
		})
	}()
}

// commandLock returns the per-view serialization lock.
func (m *Manager) commandLock(sessionID, viewID string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := sessionID + "/" + viewID
	l, ok := m.cmdLocks[key]
	if !ok {
		l = &sync.Mutex{}
		m.cmdLocks[key] = l
	}
	return l
}

// handleCommand runs the view's fixed command. First activation (or any
// refresh) terminates the previously bound child, clears displayed content
// and starts a new execution; a re-activation with a live binding does
// nothing. Executions are serialized per view so at most one child is bound
// at any instant.
func (m *Manager) handleCommand(req Request) {
	if m.runner == nil {
		return
	}
	v, ok := m.registry.View(req.SessionID, req.ViewID)
	if !ok {
		return
	}
	if req.Reason == ReasonActivated && v.ChildSessionID != "" {
		return
	}

	lock := m.commandLock(req.SessionID, req.ViewID)
	go func() {
		lock.Lock()
		defer lock.Unlock()

		cur, ok := m.registry.View(req.SessionID, req.ViewID)
		if !ok {
			return // view removed while queued
		}
		if cur.ChildSessionID != "" && m.directory != nil {
			if err := m.directory.TerminateSession(cur.ChildSessionID); err != nil {
				log.Printf("lifecycle: terminate %s: %v", cur.ChildSessionID, err)
			}
		}
		m.registry.Mutate(req.SessionID, req.ViewID, func(v *view.View) {
			v.ChildSessionID = ""
		})
		m.emit(Content{
			SessionID: req.SessionID,
			ViewID:    req.ViewID,
			Kind:      view.KindCommand,
			Cleared:   true,
		})

		childID, err := m.runner.RunCommand(req.Context(), req.SessionID, cur.Command)
		if err != nil {
			m.emit(Content{
				SessionID: req.SessionID,
				ViewID:    req.ViewID,
				Kind:      view.KindCommand,
				Err:       err,
			})
			return
		}
		m.registry.Mutate(req.SessionID, req.ViewID, func(v *view.View) {
			v.ChildSessionID = childID
		})
		m.emit(Content{
			SessionID:      req.SessionID,
			ViewID:         req.ViewID,
			Kind:           view.KindCommand,
			ChildSessionID: childID,
		})
	}()
}

// limiter returns the per-session generation limiter.
func (m *Manager) limiter(sessionID string) *rate.Limiter {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.limiters[sessionID]
	if !ok {
		l = rate.NewLimiter(rate.Every(generationInterval), generationBurst)
		m.limiters[sessionID] = l
	}
	return l
}

// handleGeneratedLink applies the regeneration policy and, when it fires,
// issues a token-guarded generation request. Responses carrying a
// superseded token — success and error alike — are dropped silently; a slow
// stale response must never clobber newer content.
func (m *Manager) handleGeneratedLink(req Request) {
	if m.generator == nil {
		return
	}
	v, ok := m.registry.View(req.SessionID, req.ViewID)
	if !ok {
		return
	}

	if !ShouldRegenerate(v.HasGeneratedOnce, v.RefreshOnViewActive, v.RefreshOnViewInactive, req.SessionActive, req.Reason) {
		// Nothing to regenerate; surface the existing document.
		m.emit(Content{
			SessionID: req.SessionID,
			ViewID:    req.ViewID,
			Kind:      view.KindGeneratedLink,
			URL:       m.generator.ContentURL(req.SessionID, v.LinkRef, false),
		})
		return
	}

	token, ok := m.registry.BeginGeneration(req.SessionID, req.ViewID)
	if !ok {
		return
	}
	var theme *ThemePayload
	if m.theme != nil {
		theme = m.theme()
	}
	linkRef := v.LinkRef
	limiter := m.limiter(req.SessionID)

	go func() {
		ctx := req.Context()
		if err := limiter.Wait(ctx); err != nil {
			m.registry.FinishGeneration(req.SessionID, req.ViewID, token, false)
			return
		}
		result, err := m.generator.Generate(ctx, req.SessionID, linkRef, theme)

		if !m.registry.FinishGeneration(req.SessionID, req.ViewID, token, err == nil) {
			return // superseded while in flight; drop silently
		}
		if err != nil {
			m.emit(Content{
				SessionID: req.SessionID,
				ViewID:    req.ViewID,
				Kind:      view.KindGeneratedLink,
				Err:       err,
			})
			return
		}
		url := result.URL
		if url == "" {
			url = m.generator.ContentURL(req.SessionID, linkRef, true)
		}
		m.emit(Content{
			SessionID: req.SessionID,
			ViewID:    req.ViewID,
			Kind:      view.KindGeneratedLink,
			URL:       url,
		})
	}()
}
