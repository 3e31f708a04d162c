package engine

import (
	"context"
	"log"

	"github.com/asheshgoplani/workdeck/internal/remote"
)

// HandleEvent applies one pushed remote change. Push notifications are the
// only cross-window re-derivation trigger; each event type re-derives its
// slice of state rather than trusting the payload.
func (e *Engine) HandleEvent(ev remote.Event) {
	switch ev.Type {
	case remote.EventSessionTerminated:
		// The view set is rebuilt on reattach; the active-view mapping
		// survives so the session comes back on the same view.
		e.DropSession(ev.SessionID)

	case remote.EventChildSessionAdded,
		remote.EventChildSessionUpdated,
		remote.EventChildSessionRemoved:
		e.lifecycle.SyncShellViews(ev.SessionID)
		e.viewsChanged(ev.SessionID)

	case remote.EventLinkAdded, remote.EventLinkUpdated, remote.EventLinkRemoved:
		if e.links == nil {
			return
		}
		sessionID := ev.SessionID
		go func() {
			links, err := e.links.Links(context.Background(), sessionID)
			if err != nil {
				log.Printf("engine: links resync for %s: %v", sessionID, err)
				return
			}
			e.applyLinks(sessionID, links)
		}()

	case remote.EventNoteUpdated:
		scope := ev.ScopeID
		if scope == "" {
			scope = ev.SessionID
		}
		e.activateNote(scope)

	default:
		log.Printf("engine: unhandled event type %q", ev.Type)
	}
}
