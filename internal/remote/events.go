package remote

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

// EventType enumerates the change notifications the server pushes.
type EventType string

const (
	EventSessionTerminated   EventType = "session-terminated"
	EventChildSessionAdded   EventType = "child-session-added"
	EventChildSessionUpdated EventType = "child-session-updated"
	EventChildSessionRemoved EventType = "child-session-removed"
	EventLinkAdded           EventType = "link-added"
	EventLinkUpdated         EventType = "link-updated"
	EventLinkRemoved         EventType = "link-removed"
	EventNoteUpdated         EventType = "note-updated"
)

// Event is one pushed change notification. Notifications are the only
// trigger for cross-window re-derivation; nothing polls.
type Event struct {
	Type      EventType       `json:"type"`
	SessionID string          `json:"sessionId,omitempty"`
	ScopeID   string          `json:"scopeId,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

const (
	reconnectBase = time.Second
	reconnectMax  = 30 * time.Second
	readTimeout   = 90 * time.Second
)

// EventFeed maintains a websocket subscription to the server's event stream,
// reconnecting with backoff until its context is cancelled.
type EventFeed struct {
	url    string
	token  string
	onEvnt func(Event)
}

// NewEventFeed creates a feed against the client's server. onEvent is called
// from the feed goroutine for every decoded event.
func (c *Client) NewEventFeed(onEvent func(Event)) *EventFeed {
	wsURL := c.endpoint("api", "events")
	// http(s) -> ws(s)
	wsURL = "ws" + strings.TrimPrefix(wsURL, "http")
	return &EventFeed{url: wsURL, token: c.token, onEvnt: onEvent}
}

// Run blocks, pumping events until ctx is cancelled. Connection failures
// back off exponentially; an established connection resets the backoff.
func (f *EventFeed) Run(ctx context.Context) {
	backoff := reconnectBase
	for {
		if ctx.Err() != nil {
			return
		}
		if f.connect(ctx) {
			backoff = reconnectBase
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > reconnectMax {
			backoff = reconnectMax
		}
	}
}

// connect dials and pumps one connection. Returns true if any event was
// received before the connection dropped.
func (f *EventFeed) connect(ctx context.Context) bool {
	header := http.Header{}
	if f.token != "" {
		header.Set("Authorization", "Bearer "+f.token)
	}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, f.url, header)
	if err != nil {
		log.Printf("event feed: dial: %v", err)
		return false
	}
	defer conn.Close()

	// Close the socket when the context ends so ReadMessage unblocks.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	received := false
	for {
		_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				log.Printf("event feed: read: %v", err)
			}
			return received
		}
		var ev Event
		if err := json.Unmarshal(raw, &ev); err != nil {
			log.Printf("event feed: decode: %v", err)
			continue
		}
		received = true
		f.onEvnt(ev)
	}
}
