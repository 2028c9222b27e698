// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package emotion

import (
	"context"
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
CREATE TABLE IF NOT EXISTS state_updates (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	received_at  INTEGER NOT NULL,
	significance REAL,
	payload      TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_state_updates_received ON state_updates(received_at);
`

// SQLiteStore journals every state update to a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens or creates the journal at path.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create state directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open state journal: %w", err)
	}
	// single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) UpdateState(ctx context.Context, st State) error {
	if st.ReceivedAt.IsZero() {
		st.ReceivedAt = time.Now()
	}
	var sig sql.NullFloat64
	if st.Significance != nil {
		sig = sql.NullFloat64{Float64: *st.Significance, Valid: true}
	}
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO state_updates (received_at, significance, payload) VALUES (?, ?, ?)",
		st.ReceivedAt.UnixMilli(), sig, string(st.Payload))
	if err != nil {
		return fmt.Errorf("failed to record state update: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Latest(ctx context.Context) (State, bool, error) {
	rows, err := s.History(ctx, 1)
	if err != nil || len(rows) == 0 {
		return State{}, false, err
	}
	return rows[0], true, nil
}

// History returns up to limit updates, newest first.
func (s *SQLiteStore) History(ctx context.Context, limit int) ([]State, error) {
	if limit <= 0 {
		return nil, errors.New("limit must be positive")
	}
	rows, err := s.db.QueryContext(ctx,
		"SELECT received_at, significance, payload FROM state_updates ORDER BY id DESC LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query state updates: %w", err)
	}
	defer rows.Close()

	var out []State
	for rows.Next() {
		var (
			at      int64
			sig     sql.NullFloat64
			payload string
		)
		if err := rows.Scan(&at, &sig, &payload); err != nil {
			return nil, fmt.Errorf("failed to scan state update: %w", err)
		}
		st := State{Payload: json.RawMessage(payload), ReceivedAt: time.UnixMilli(at)}
		if sig.Valid {
			v := sig.Float64
			st.Significance = &v
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

// Close releases the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
