// Package store provides durable session storage and in-memory track caches.
package store

import (
	"database/sql"
	"errors"
	"fmt"

	// SQLite driver for session storage
	_ "github.com/mattn/go-sqlite3"
)

// SessionStore is a small SQLite-backed key/value store holding the auth
// session values (verifier, token) across restarts.
type SessionStore struct {
	db *sql.DB
}

func OpenSessionStore(path string) (*SessionStore, error) {
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open session database: %w", err)
	}

	const schema = `CREATE TABLE IF NOT EXISTS session_values (
		name TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create session schema: %w", err)
	}

	return &SessionStore{db: db}, nil
}

func (s *SessionStore) Get(name string) (string, bool, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM session_values WHERE name = ?`, name).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read session value %q: %w", name, err)
	}
	return value, true, nil
}

func (s *SessionStore) Put(name, value string) error {
	_, err := s.db.Exec(
		`INSERT INTO session_values (name, value) VALUES (?, ?)
		 ON CONFLICT(name) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP`,
		name, value)
	if err != nil {
		return fmt.Errorf("failed to write session value %q: %w", name, err)
	}
	return nil
}

func (s *SessionStore) Delete(name string) error {
	if _, err := s.db.Exec(`DELETE FROM session_values WHERE name = ?`, name); err != nil {
		return fmt.Errorf("failed to delete session value %q: %w", name, err)
	}
	return nil
}

func (s *SessionStore) Close() error {
	return s.db.Close()
}
