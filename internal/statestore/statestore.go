// Package statestore provides durable local key/value state backed by
// SQLite. Values are JSON-encoded; keys are opaque strings. A filesystem
// watcher lets other windows of the same profile react to external writes
// instead of polling.
package statestore

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS state (
	key        TEXT PRIMARY KEY,
	value      BLOB NOT NULL,
	updated_at TEXT NOT NULL
);
`

// Store is a SQLite-backed key/value store.
type Store struct {
	db   *sql.DB
	path string
}

// Open creates or opens the store at path, creating parent directories as
// needed.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create state directory: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("open state db: %w", err)
	}
	// Single writer; SQLite serializes anyway and this avoids SQLITE_BUSY
	// churn under rapid debounced writes.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init state schema: %w", err)
	}
	return &Store{db: db, path: path}, nil
}

// Path returns the database file path (for change watching).
func (s *Store) Path() string { return s.path }

// Get unmarshals the value for key into out. Returns false with no error
// when the key is absent.
func (s *Store) Get(key string, out any) (bool, error) {
	var raw []byte
	err := s.db.QueryRow(`SELECT value FROM state WHERE key = ?`, key).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read state key %q: %w", key, err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false, fmt.Errorf("decode state key %q: %w", key, err)
	}
	return true, nil
}

// Set upserts the JSON encoding of value under key.
func (s *Store) Set(key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode state key %q: %w", key, err)
	}
	_, err = s.db.Exec(`
		INSERT INTO state (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, raw, time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("write state key %q: %w", key, err)
	}
	return nil
}

// Delete removes a key. Deleting an absent key is not an error.
func (s *Store) Delete(key string) error {
	if _, err := s.db.Exec(`DELETE FROM state WHERE key = ?`, key); err != nil {
		return fmt.Errorf("delete state key %q: %w", key, err)
	}
	return nil
}

// Keys returns all stored keys, sorted.
func (s *Store) Keys() ([]string, error) {
	rows, err := s.db.Query(`SELECT key FROM state ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("list state keys: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
