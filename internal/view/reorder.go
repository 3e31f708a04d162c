package view

import (
	"context"
	"log"
)

// Side selects where a dragged item lands relative to its drop target.
type Side int

const (
	SideBefore Side = iota
	SideAfter
)

// ApplyReorder computes the order resulting from dropping dragID on targetID
// (empty target = append at end). After the splice the order is partitioned
// pinned-then-unpinned, stable within each group; that invariant holds after
// every reorder, not only the initial sort, and deliberately overrides the
// requested position when pin status differs between dragged and target
// items. Dropping an item onto itself is a no-op.
func ApplyReorder(order []string, dragID, targetID string, side Side, pinned func(id string) bool) []string {
	if dragID == targetID {
		return append([]string(nil), order...)
	}

	working := make([]string, 0, len(order))
	found := false
	for _, id := range order {
		if id == dragID {
			found = true
			continue
		}
		working = append(working, id)
	}
	if !found {
		return append([]string(nil), order...)
	}

	pos := len(working)
	if targetID != "" {
		for i, id := range working {
			if id == targetID {
				pos = i
				if side == SideAfter {
					pos = i + 1
				}
				break
			}
		}
	}
	working = append(working, "")
	copy(working[pos+1:], working[pos:])
	working[pos] = dragID

	if pinned == nil {
		return working
	}
	result := make([]string, 0, len(working))
	for _, id := range working {
		if pinned(id) {
			result = append(result, id)
		}
	}
	for _, id := range working {
		if !pinned(id) {
			result = append(result, id)
		}
	}
	return result
}

// Midpoint describes one item's vertical extent for whitespace-drop
// resolution.
type Midpoint struct {
	ID     string
	Center float64
}

// ResolveWhitespaceDrop maps a pointer position with no resolvable target to
// an insertion point: the nearest item whose midpoint lies past the pointer,
// else append at the end.
func ResolveWhitespaceDrop(items []Midpoint, pointer float64) (targetID string, side Side) {
	for _, it := range items {
		if it.Center >= pointer {
			return it.ID, SideBefore
		}
	}
	return "", SideAfter
}

// OrderStore persists an ordered id list to the remote source of truth.
type OrderStore interface {
	ReorderSessions(ctx context.Context, scopeID string, orderedIDs []string) error
}

// ReorderCoordinator reconciles optimistic local reordering with the
// eventually-consistent remote order.
type ReorderCoordinator struct {
	store OrderStore

	// notify surfaces persistence failures as a non-blocking notification.
	notify func(message string)

	// localOnly reports sessions that are not remotely persistable; their
	// presence makes the remote call fail without rolling anything back.
	localOnly func(id string) bool
}

// NewReorderCoordinator creates a coordinator. notify and localOnly may be
// nil.
func NewReorderCoordinator(store OrderStore, notify func(string), localOnly func(string) bool) *ReorderCoordinator {
	return &ReorderCoordinator{store: store, notify: notify, localOnly: localOnly}
}

// Reorder computes the new order, applies it synchronously through apply
// (the optimistic, display-authoritative mutation), then persists remotely
// in the background. The local order is never rolled back: a remote failure
// only surfaces a notification and affects what a future reload would see.
func (c *ReorderCoordinator) Reorder(ctx context.Context, scopeID string, order []string, dragID, targetID string, side Side, pinned func(string) bool, apply func([]string)) []string {
	next := ApplyReorder(order, dragID, targetID, side, pinned)
	if apply != nil {
		apply(next)
	}

	if c.store == nil {
		return next
	}
	persistable := next
	if c.localOnly != nil {
		persistable = make([]string, 0, len(next))
		for _, id := range next {
			if !c.localOnly(id) {
				persistable = append(persistable, id)
			}
		}
	}

	go func() {
		if err := c.store.ReorderSessions(ctx, scopeID, persistable); err != nil {
			log.Printf("reorder: remote persist failed for scope %s: %v", scopeID, err)
			if c.notify != nil {
				c.notify("Order saved locally; sync to server failed")
			}
		}
	}()
	return next
}
