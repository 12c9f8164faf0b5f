package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dvloznov/tax-tracker/internal/clock"
	_ "modernc.org/sqlite"
)

const schema = `CREATE TABLE IF NOT EXISTS app_state (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	updated_at TEXT NOT NULL
)`

// SQLiteStore keeps the state document in a single key/value row.
type SQLiteStore struct {
	db    *sql.DB
	clock clock.Clock
}

// OpenSQLite opens (or creates) the database at path and ensures the schema
// exists. Use ":memory:" for a throwaway database. clk stamps every write; nil
// selects the real clock.
func OpenSQLite(ctx context.Context, path string, clk clock.Clock) (*SQLiteStore, error) {
	if clk == nil {
		clk = clock.RealClock{}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("OpenSQLite: open db: %w", err)
	}
	// A single connection keeps ":memory:" databases alive and serializes writers.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("OpenSQLite: create schema: %w", err)
	}
	return &SQLiteStore{db: db, clock: clk}, nil
}

// Load implements Store.
func (s *SQLiteStore) Load(ctx context.Context) (*State, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM app_state WHERE key = ?`, StateKey).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return NewState(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("Load: query state: %w", err)
	}

	st := NewState()
	if err := json.Unmarshal([]byte(raw), st); err != nil {
		return nil, fmt.Errorf("Load: decode state: %w", err)
	}
	return st, nil
}

// Save implements Store.
func (s *SQLiteStore) Save(ctx context.Context, st *State) error {
	raw, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("Save: encode state: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO app_state (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		StateKey, string(raw), s.clock.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("Save: write state: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
