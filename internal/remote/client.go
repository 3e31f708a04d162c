// Package remote implements the HTTP clients for the server-side
// collaborators: document generation, session ordering, note persistence and
// the session link registry, plus the websocket event feed their change
// notifications arrive on.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/klauspost/compress/gzip"

	"github.com/asheshgoplani/workdeck/internal/lifecycle"
	"github.com/asheshgoplani/workdeck/internal/note"
)

const requestTimeout = 15 * time.Second

// Client talks to the workspace server. It implements the generation, order
// and note store contracts consumed by the engine.
type Client struct {
	baseURL *url.URL
	token   string
	http    *http.Client
}

// NewClient creates a Client for the given base URL (e.g.
// "https://deck.example.com"). token, when non-empty, is sent as a bearer
// token.
func NewClient(base, token string) (*Client, error) {
	u, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("parse server url: %w", err)
	}
	return &Client{
		baseURL: u,
		token:   token,
		http: &http.Client{
			Timeout: requestTimeout,
			// Compression is negotiated and decoded by hand so large
			// generated documents stream through klauspost's gzip.
			Transport: &http.Transport{DisableCompression: true},
		},
	}, nil
}

func (c *Client) endpoint(parts ...string) string {
	u := *c.baseURL
	u.Path, _ = url.JoinPath(u.Path, parts...)
	return u.String()
}

// do issues a JSON request and decodes the JSON response into out (when out
// is non-nil). Non-2xx statuses become errors carrying the response body.
func (c *Client) do(ctx context.Context, method, endpoint string, body, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept-Encoding", "gzip")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, endpoint, err)
	}
	defer resp.Body.Close()

	payload := resp.Body
	if resp.Header.Get("Content-Encoding") == "gzip" {
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return fmt.Errorf("%s %s: decode gzip: %w", method, endpoint, err)
		}
		defer gz.Close()
		payload = gz
	}

	if resp.StatusCode == http.StatusConflict {
		var snap note.Snapshot
		if err := json.NewDecoder(payload).Decode(&snap); err != nil {
			return fmt.Errorf("%s %s: decode conflict body: %w", method, endpoint, err)
		}
		return &note.ConflictError{Latest: snap}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(payload, 4096))
		return fmt.Errorf("%s %s: status %d: %s", method, endpoint, resp.StatusCode, bytes.TrimSpace(raw))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(payload).Decode(out); err != nil {
		return fmt.Errorf("%s %s: decode response: %w", method, endpoint, err)
	}
	return nil
}

// Generate asks the server to (re)generate the document behind linkRef.
func (c *Client) Generate(ctx context.Context, sessionID, linkRef string, theme *lifecycle.ThemePayload) (lifecycle.GenerationResult, error) {
	body := struct {
		Theme *lifecycle.ThemePayload `json:"theme,omitempty"`
	}{Theme: theme}
	var result lifecycle.GenerationResult
	err := c.do(ctx, http.MethodPost, c.endpoint("api", "sessions", sessionID, "links", linkRef, "generate"), body, &result)
	return result, err
}

// ContentURL returns the address serving the generated document. cacheBust
// appends a timestamp so a refreshed document is not served from cache.
func (c *Client) ContentURL(sessionID, linkRef string, cacheBust bool) string {
	endpoint := c.endpoint("api", "sessions", sessionID, "links", linkRef, "content")
	if cacheBust {
		endpoint += "?t=" + strconv.FormatInt(time.Now().UnixNano(), 10)
	}
	return endpoint
}

// ReorderSessions persists the session order for a scope.
func (c *Client) ReorderSessions(ctx context.Context, scopeID string, orderedIDs []string) error {
	body := struct {
		Order []string `json:"order"`
	}{Order: orderedIDs}
	return c.do(ctx, http.MethodPut, c.endpoint("api", "scopes", scopeID, "order"), body, nil)
}

// GetNote fetches the authoritative note snapshot for a scope.
func (c *Client) GetNote(ctx context.Context, scopeID string) (note.Snapshot, error) {
	var snap note.Snapshot
	err := c.do(ctx, http.MethodGet, c.endpoint("api", "notes", scopeID), nil, &snap)
	return snap, err
}

// SetNote saves note content against an expected version. A version race
// returns *note.ConflictError carrying the server's snapshot.
func (c *Client) SetNote(ctx context.Context, scopeID, content string, expectedVersion int64) (note.Snapshot, error) {
	body := struct {
		Content         string `json:"content"`
		ExpectedVersion int64  `json:"expectedVersion"`
	}{Content: content, ExpectedVersion: expectedVersion}
	var snap note.Snapshot
	err := c.do(ctx, http.MethodPut, c.endpoint("api", "notes", scopeID), body, &snap)
	return snap, err
}

// Link is one externally generated document registered on a session.
type Link struct {
	URL   string `json:"url"`
	Ref   string `json:"ref"`
	Title string `json:"title"`

	RefreshOnView         bool `json:"refreshOnView"`
	RefreshOnViewActive   bool `json:"refreshOnViewActive"`
	RefreshOnViewInactive bool `json:"refreshOnViewInactive"`
}

// LinkPatch updates mutable link fields; nil fields are left untouched.
type LinkPatch struct {
	Title                 *string `json:"title,omitempty"`
	RefreshOnViewActive   *bool   `json:"refreshOnViewActive,omitempty"`
	RefreshOnViewInactive *bool   `json:"refreshOnViewInactive,omitempty"`
}

// Links lists the registered links of a session.
func (c *Client) Links(ctx context.Context, sessionID string) ([]Link, error) {
	var links []Link
	err := c.do(ctx, http.MethodGet, c.endpoint("api", "sessions", sessionID, "links"), nil, &links)
	return links, err
}

// AddLinks registers links on a session.
func (c *Client) AddLinks(ctx context.Context, sessionID string, links []Link) error {
	return c.do(ctx, http.MethodPost, c.endpoint("api", "sessions", sessionID, "links"), links, nil)
}

// UpdateLink patches the link registered under url.
func (c *Client) UpdateLink(ctx context.Context, sessionID, linkURL string, patch LinkPatch) error {
	endpoint := c.endpoint("api", "sessions", sessionID, "links") + "?url=" + url.QueryEscape(linkURL)
	return c.do(ctx, http.MethodPatch, endpoint, patch, nil)
}

// RemoveLink unregisters the link under url.
func (c *Client) RemoveLink(ctx context.Context, sessionID, linkURL string) error {
	endpoint := c.endpoint("api", "sessions", sessionID, "links") + "?url=" + url.QueryEscape(linkURL)
	return c.do(ctx, http.MethodDelete, endpoint, nil, nil)
}
