// Package lifecycle drives per-view-kind content behavior: when a view
// becomes active or is refreshed, the manager decides whether to regenerate
// a document, rerun a command, relist files, or do nothing. Behavior
// dispatches through a kind→handler table so adding a kind is a table edit.
package lifecycle

import (
	"context"
	"time"

	"github.com/asheshgoplani/workdeck/internal/files"
	"github.com/asheshgoplani/workdeck/internal/view"
)

// Reason is the trigger that activated a view.
type Reason string

const (
	// ReasonActivated: the view became the session's active view.
	ReasonActivated Reason = "activated"
	// ReasonRefresh: the user explicitly asked for a refresh.
	ReasonRefresh Reason = "refresh"
	// ReasonManual: a programmatic regeneration request.
	ReasonManual Reason = "manual"
)

// ChildSession is one dependent session as reported by the directory.
type ChildSession struct {
	ID        string
	Title     string
	CreatedAt time.Time
}

// SessionDirectory is the collaborator owning child-session lifecycles.
type SessionDirectory interface {
	GetChildSessions(parentID string) []ChildSession
	TerminateSession(id string) error
}

// CommandRunner executes a one-shot command against a parent session and
// returns the id of the child session bound to the execution.
type CommandRunner interface {
	RunCommand(ctx context.Context, parentID, command string) (childID string, err error)
}

// GenerationResult is the outcome of a server-side document generation.
type GenerationResult struct {
	URL         string    `json:"url"`
	GeneratedAt time.Time `json:"generatedAt"`
}

// GenerationService is the remote document generation collaborator.
type GenerationService interface {
	Generate(ctx context.Context, sessionID, linkRef string, theme *ThemePayload) (GenerationResult, error)
	ContentURL(sessionID, linkRef string, cacheBust bool) string
}

// ThemePayload carries the client theme so generated documents match it.
type ThemePayload struct {
	Mode   string `json:"mode"` // "dark" or "light"
	Accent string `json:"accent,omitempty"`
}

// FileLister is the file-browser backend.
type FileLister interface {
	List(path string) ([]files.Entry, error)
}

// NoteDelegate receives note-view activations; the note editing model owns
// everything beyond view-level concerns.
type NoteDelegate interface {
	ActivateNote(sessionID string)
}

// Content is one content update emitted toward the display layer.
type Content struct {
	SessionID string
	ViewID    string
	Kind      view.Kind

	// URL is set for generated-link content.
	URL string
	// Entries is set for file-browser content.
	Entries []files.Entry
	// Cleared is set when a command view's prior output must be dropped
	// before the new execution produces any.
	Cleared bool
	// ChildSessionID is set when a command execution was (re)bound.
	ChildSessionID string

	Err error
}

// ShouldRegenerate is the regeneration policy for generated-link views. It
// is a pure function of the view's flags, the session's activity state and
// the trigger reason.
func ShouldRegenerate(hasGeneratedOnce, refreshOnViewActive, refreshOnViewInactive, sessionActive bool, reason Reason) bool {
	if reason == ReasonRefresh || reason == ReasonManual {
		return true
	}
	if !hasGeneratedOnce {
		return true
	}
	if sessionActive {
		return refreshOnViewActive
	}
	return refreshOnViewInactive
}
