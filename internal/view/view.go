// Package view owns the per-session view sets of the workspace: the ordered
// collection of content surfaces (terminal, shells, commands, file browser,
// generated links, note) a session exposes, the canonical display order
// across them, the last-active-view tracking, and drag reordering.
package view

import "time"

// Kind identifies the content surface a view presents. It is a closed set;
// per-kind behavior dispatches through tables keyed by Kind rather than
// scattered type switches.
type Kind string

const (
	KindTerminal       Kind = "terminal"
	KindContainerShell Kind = "container-shell"
	KindCommand        Kind = "command"
	KindFileBrowser    Kind = "file-browser"
	KindGeneratedLink  Kind = "generated-link"
	KindNote           Kind = "note"
)

// Reserved view IDs for the singleton kinds of a session. Non-singleton
// kinds derive their IDs from their identity (child session, link ref).
const (
	IDTerminal    = "terminal"
	IDFileBrowser = "files"
	IDNote        = "note"
)

// WorkspaceFilesTitle is the reserved display label that sorts a generated
// link ahead of its siblings in the canonical order.
const WorkspaceFilesTitle = "workspace/files"

// WorkspaceScope is the pseudo session ID for the session-less workspace
// note view.
const WorkspaceScope = "workspace"

// View is a single content surface bound to a session. The registry owns
// View values; callers receive copies and mutate through registry methods.
type View struct {
	ID        string
	SessionID string
	Kind      Kind
	Title     string
	Tooltip   string
	Closeable bool
	CreatedAt time.Time

	// ChildSessionID links container-shell and command views to the
	// dependent session that backs them. Empty when unbound.
	ChildSessionID string

	// Command is the fixed command string a command view executes.
	Command string

	// LinkRef identifies the server-side document a generated-link view
	// renders.
	LinkRef string

	// Generation lifecycle (generated-link only).
	HasGeneratedOnce bool
	IsGenerating     bool
	LastGeneratedAt  time.Time
	GenerationToken  uint64

	// Refresh policy flags governing regeneration/rerun decisions.
	RefreshOnView         bool
	RefreshOnViewActive   bool
	RefreshOnViewInactive bool
}

// closeableForKind reports whether a user may close views of this kind.
// Terminal, shell, file-browser and note views are permanent surfaces.
func closeableForKind(k Kind) bool {
	switch k {
	case KindGeneratedLink, KindCommand:
		return true
	default:
		return false
	}
}

// Spec carries the caller-supplied fields for EnsureView. Zero values leave
// the corresponding View fields untouched on update.
type Spec struct {
	ID             string
	Title          string
	Tooltip        string
	ChildSessionID string
	Command        string
	LinkRef        string

	RefreshOnView         bool
	RefreshOnViewActive   bool
	RefreshOnViewInactive bool
}
