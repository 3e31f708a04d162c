// Package note implements the optimistic-concurrency editing model behind
// session-scoped and workspace-scoped note views. Edits apply locally
// immediately; conflicts are detected by version comparison at save time and
// surfaced for the caller to resolve, never silently discarded.
package note

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Status is the note state machine's display status.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusEditing Status = "editing"
	StatusSaving  Status = "saving"
	StatusSuccess Status = "success"
	StatusError   Status = "error"
	StatusWarning Status = "warning"
)

// ViewMode selects how the note view renders its content.
type ViewMode string

const (
	ViewModeEdit    ViewMode = "edit"
	ViewModePreview ViewMode = "preview"
	ViewModeSplit   ViewMode = "split"
)

// SplitOrientation applies when ViewMode is split.
type SplitOrientation string

const (
	SplitHorizontal SplitOrientation = "horizontal"
	SplitVertical   SplitOrientation = "vertical"
)

// Snapshot is an authoritative note state as observed from the remote store.
type Snapshot struct {
	Content   string    `json:"content"`
	Version   int64     `json:"version"`
	UpdatedAt time.Time `json:"updatedAt"`
	UpdatedBy string    `json:"updatedBy"`
}

// ConflictError is returned by a Store when the remote version advanced past
// the version the saver believed was current. Latest carries the remote
// snapshot so the caller can offer apply-or-keep-editing.
type ConflictError struct {
	Latest Snapshot
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("note version conflict: remote is at v%d", e.Latest.Version)
}

// AsConflict unwraps a ConflictError from err.
func AsConflict(err error) (*ConflictError, bool) {
	var ce *ConflictError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}

// Store is the remote note persistence collaborator.
type Store interface {
	GetNote(ctx context.Context, scopeID string) (Snapshot, error)
	SetNote(ctx context.Context, scopeID, content string, expectedVersion int64) (Snapshot, error)
}
