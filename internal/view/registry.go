package view

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Registry is the per-session view collection. It owns View lifetime
// exclusively; every accessor returns copies so callers cannot bypass the
// registry's mutation path.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]map[string]*entry
	seq      uint64

	// terminateChild reports that removing a command view orphaned a live
	// child session. The registry does not retry termination; the side
	// effect is the collaborator's problem.
	terminateChild func(childSessionID string)
}

type entry struct {
	view View
	seq  uint64 // admission order, tie-break for equal CreatedAt
}

// NewRegistry creates an empty registry. terminateChild may be nil.
func NewRegistry(terminateChild func(childSessionID string)) *Registry {
	return &Registry{
		sessions:       make(map[string]map[string]*entry),
		terminateChild: terminateChild,
	}
}

// identityID derives the stable view ID for a kind. Singleton kinds map to
// reserved IDs so EnsureView stays idempotent across calls.
func identityID(kind Kind, spec Spec) string {
	if spec.ID != "" {
		return spec.ID
	}
	switch kind {
	case KindTerminal:
		return IDTerminal
	case KindFileBrowser:
		return IDFileBrowser
	case KindNote:
		return IDNote
	case KindContainerShell:
		return "shell-" + spec.ChildSessionID
	case KindGeneratedLink:
		return "link-" + spec.LinkRef
	case KindCommand:
		return "cmd-" + uuid.NewString()
	default:
		return string(kind) + "-" + uuid.NewString()
	}
}

// EnsureView creates or updates a view idempotently, keyed by the
// kind-specific identity. A session with no registered view set is admitted
// lazily. Lifecycle state (generation flags, child binding) survives updates.
func (r *Registry) EnsureView(sessionID string, kind Kind, spec Spec) View {
	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.sessions[sessionID]
	if !ok {
		set = make(map[string]*entry)
		r.sessions[sessionID] = set
	}

	id := identityID(kind, spec)
	if e, ok := set[id]; ok {
		v := &e.view
		if spec.Title != "" {
			v.Title = spec.Title
		}
		if spec.Tooltip != "" {
			v.Tooltip = spec.Tooltip
		}
		v.RefreshOnView = spec.RefreshOnView
		v.RefreshOnViewActive = spec.RefreshOnViewActive
		v.RefreshOnViewInactive = spec.RefreshOnViewInactive
		if spec.ChildSessionID != "" {
			v.ChildSessionID = spec.ChildSessionID
		}
		if spec.Command != "" {
			v.Command = spec.Command
		}
		return *v
	}

	r.seq++
	e := &entry{
		seq: r.seq,
		view: View{
			ID:                    id,
			SessionID:             sessionID,
			Kind:                  kind,
			Title:                 spec.Title,
			Tooltip:               spec.Tooltip,
			Closeable:             closeableForKind(kind),
			CreatedAt:             time.Now(),
			ChildSessionID:        spec.ChildSessionID,
			Command:               spec.Command,
			LinkRef:               spec.LinkRef,
			RefreshOnView:         spec.RefreshOnView,
			RefreshOnViewActive:   spec.RefreshOnViewActive,
			RefreshOnViewInactive: spec.RefreshOnViewInactive,
		},
	}
	set[id] = e
	return e.view
}

// View returns a copy of the identified view.
func (r *Registry) View(sessionID, viewID string) (View, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if e, ok := r.sessions[sessionID][viewID]; ok {
		return e.view, true
	}
	return View{}, false
}

// Has reports whether the view exists.
func (r *Registry) Has(sessionID, viewID string) bool {
	_, ok := r.View(sessionID, viewID)
	return ok
}

// RemoveView detaches a view. For command views with a live child session
// the child's termination is signalled through the terminateChild callback.
// Removing an unknown view is an error the caller logs and drops.
func (r *Registry) RemoveView(sessionID, viewID string) error {
	r.mu.Lock()
	e, ok := r.sessions[sessionID][viewID]
	if ok {
		delete(r.sessions[sessionID], viewID)
	}
	r.mu.Unlock()

	if !ok {
		return fmt.Errorf("remove view: unknown view %s/%s", sessionID, viewID)
	}
	if e.view.Kind == KindCommand && e.view.ChildSessionID != "" && r.terminateChild != nil {
		r.terminateChild(e.view.ChildSessionID)
	}
	return nil
}

// Mutate applies fn to the identified view under the registry lock. Returns
// false for unknown views. The ID, session and kind fields must not change.
func (r *Registry) Mutate(sessionID, viewID string, fn func(*View)) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.sessions[sessionID][viewID]
	if !ok {
		return false
	}
	fn(&e.view)
	return true
}

// Views returns copies of all views of a session, in unspecified order.
func (r *Registry) Views(sessionID string) []View {
	r.mu.RLock()
	defer r.mu.RUnlock()

	set := r.sessions[sessionID]
	out := make([]View, 0, len(set))
	for _, e := range set {
		out = append(out, e.view)
	}
	return out
}

// DropSession clears a session's view set. The active-view mapping is
// deliberately not touched here; it survives teardown so a reattached
// session restores the same view.
func (r *Registry) DropSession(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, sessionID)
}

// HasSession reports whether a view set exists for the session.
func (r *Registry) HasSession(sessionID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.sessions[sessionID]
	return ok
}

// BeginGeneration marks a generated-link view as generating and returns the
// freshly issued generation token. Each call supersedes all earlier tokens
// for the view.
func (r *Registry) BeginGeneration(sessionID, viewID string) (uint64, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.sessions[sessionID][viewID]
	if !ok {
		return 0, false
	}
	e.view.GenerationToken++
	e.view.IsGenerating = true
	return e.view.GenerationToken, true
}

// FinishGeneration records a generation outcome. It returns false when the
// token was superseded by a newer request while this one was in flight; the
// stale response (success or error alike) must then be discarded.
func (r *Registry) FinishGeneration(sessionID, viewID string, token uint64, ok bool) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, exists := r.sessions[sessionID][viewID]
	if !exists || e.view.GenerationToken != token {
		return false
	}
	e.view.IsGenerating = false
	if ok {
		e.view.HasGeneratedOnce = true
		e.view.LastGeneratedAt = time.Now()
	}
	return true
}

// CanonicalOrder recomputes the display order of a session's views. It is
// pure and total: derived entirely from the current view set plus the
// externally supplied live child-session order, never persisted.
//
// Order: terminal; container shells by childOrder; commands by creation;
// file browser; generated links (the reserved workspace/files label first);
// any remaining kinds; note last.
func (r *Registry) CanonicalOrder(sessionID string, childOrder []string) []View {
	r.mu.RLock()
	defer r.mu.RUnlock()

	set := r.sessions[sessionID]
	if len(set) == 0 {
		return nil
	}

	childRank := make(map[string]int, len(childOrder))
	for i, id := range childOrder {
		childRank[id] = i
	}

	entries := make([]*entry, 0, len(set))
	for _, e := range set {
		entries = append(entries, e)
	}

	rank := func(e *entry) int {
		switch e.view.Kind {
		case KindTerminal:
			return 0
		case KindContainerShell:
			return 1
		case KindCommand:
			return 2
		case KindFileBrowser:
			return 3
		case KindGeneratedLink:
			return 4
		case KindNote:
			return 6
		default:
			return 5
		}
	}

	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		ra, rb := rank(a), rank(b)
		if ra != rb {
			return ra < rb
		}
		switch a.view.Kind {
		case KindContainerShell:
			// Live child order, not insertion order. Shells whose child is
			// gone from the live order sort after known ones, by admission.
			ia, oka := childRank[a.view.ChildSessionID]
			ib, okb := childRank[b.view.ChildSessionID]
			if oka && okb {
				return ia < ib
			}
			if oka != okb {
				return oka
			}
		case KindGeneratedLink:
			fa := a.view.Title == WorkspaceFilesTitle
			fb := b.view.Title == WorkspaceFilesTitle
			if fa != fb {
				return fa
			}
		}
		return a.seq < b.seq
	})

	out := make([]View, len(entries))
	for i, e := range entries {
		out[i] = e.view
	}
	return out
}
