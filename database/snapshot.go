// Package database persists built datasets. Building the enriched dataset
// means downloading and scanning FIRDS reference files, so the result is
// saved as a snapshot and restarts load it instead of rebuilding.
package database

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"stsdash/normalization"
)

// ErrNoSnapshot is returned when the store holds no snapshot yet.
var ErrNoSnapshot = errors.New("no snapshot in store")

// SnapshotStore keeps enriched datasets in a sqlite file, one JSON blob per
// snapshot.
type SnapshotStore struct {
	conn *sql.DB
}

// Snapshot is one persisted dataset.
type Snapshot struct {
	ID      string
	BuiltAt time.Time
	Rows    []normalization.Row
}

const snapshotSchema = `
CREATE TABLE IF NOT EXISTS snapshots (
	id TEXT PRIMARY KEY,
	built_at TIMESTAMP NOT NULL,
	rows_json TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_snapshots_built_at ON snapshots(built_at);
`

// OpenSnapshotStore opens (creating if needed) the snapshot database at
// path and ensures the schema exists.
func OpenSnapshotStore(path string) (*SnapshotStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create snapshot dir: %w", err)
		}
	}
	conn, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open snapshot database: %w", err)
	}
	if _, err := conn.Exec(snapshotSchema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create snapshot schema: %w", err)
	}
	return &SnapshotStore{conn: conn}, nil
}

// Close releases the underlying connection.
func (s *SnapshotStore) Close() error {
	return s.conn.Close()
}

// Save stores rows as a new snapshot and returns its generated id.
func (s *SnapshotStore) Save(rows []normalization.Row) (string, error) {
	payload, err := json.Marshal(rows)
	if err != nil {
		return "", fmt.Errorf("failed to encode snapshot: %w", err)
	}
	id := uuid.NewString()
	_, err = s.conn.Exec(
		"INSERT INTO snapshots (id, built_at, rows_json) VALUES (?, ?, ?)",
		id, time.Now().UTC(), string(payload),
	)
	if err != nil {
		return "", fmt.Errorf("failed to save snapshot: %w", err)
	}
	return id, nil
}

// Latest loads the most recently built snapshot, or ErrNoSnapshot.
func (s *SnapshotStore) Latest() (*Snapshot, error) {
	row := s.conn.QueryRow(
		"SELECT id, built_at, rows_json FROM snapshots ORDER BY built_at DESC, id DESC LIMIT 1",
	)
	var snap Snapshot
	var payload string
	if err := row.Scan(&snap.ID, &snap.BuiltAt, &payload); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNoSnapshot
		}
		return nil, fmt.Errorf("failed to load snapshot: %w", err)
	}
	if err := json.Unmarshal([]byte(payload), &snap.Rows); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot %s: %w", snap.ID, err)
	}
	return &snap, nil
}

// Prune deletes all snapshots except the keep most recent ones.
func (s *SnapshotStore) Prune(keep int) error {
	if keep < 1 {
		keep = 1
	}
	_, err := s.conn.Exec(
		`DELETE FROM snapshots WHERE id NOT IN (
			SELECT id FROM snapshots ORDER BY built_at DESC, id DESC LIMIT ?
		)`, keep,
	)
	if err != nil {
		return fmt.Errorf("failed to prune snapshots: %w", err)
	}
	return nil
}
