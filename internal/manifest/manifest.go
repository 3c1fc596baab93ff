// Package manifest records capture progress in SQLite so an aborted
// recording run can resume without re-shooting frames already on disk.
package manifest

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite"
)

// Store is the capture manifest database.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

// Open creates or opens the manifest database at path.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create manifest directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open manifest database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	// Best effort; the manifest still works journaled the default way.
	_, _ = db.Exec("PRAGMA busy_timeout = 5000")
	_, _ = db.Exec("PRAGMA journal_mode = WAL")

	s := &Store{db: db}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id           TEXT PRIMARY KEY,
		viewer_url   TEXT NOT NULL,
		lower_bound  INTEGER NOT NULL,
		upper_bound  INTEGER NOT NULL,
		started_at   DATETIME DEFAULT CURRENT_TIMESTAMP,
		completed_at DATETIME
	);
	CREATE TABLE IF NOT EXISTS frames (
		frame_index INTEGER PRIMARY KEY,
		tag         TEXT NOT NULL,
		file        TEXT NOT NULL,
		run_id      TEXT NOT NULL REFERENCES runs(id),
		captured_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("initialize manifest schema: %w", err)
	}
	return nil
}

// BeginRun records a new capture run.
func (s *Store) BeginRun(id, viewerURL string, lower, upper int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(
		`INSERT INTO runs (id, viewer_url, lower_bound, upper_bound) VALUES (?, ?, ?, ?)`,
		id, viewerURL, lower, upper)
	if err != nil {
		return fmt.Errorf("record run %s: %w", id, err)
	}
	return nil
}

// CompleteRun marks a run finished.
func (s *Store) CompleteRun(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(`UPDATE runs SET completed_at = CURRENT_TIMESTAMP WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("complete run %s: %w", id, err)
	}
	return nil
}

// RecordFrame records one captured frame. Re-capturing a frame in a later
// run replaces the earlier record.
func (s *Store) RecordFrame(runID string, index int, tag, file string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(
		`INSERT OR REPLACE INTO frames (frame_index, tag, file, run_id) VALUES (?, ?, ?, ?)`,
		index, tag, file, runID)
	if err != nil {
		return fmt.Errorf("record frame %s: %w", tag, err)
	}
	return nil
}

// CapturedFrames returns every recorded frame index mapped to its file.
func (s *Store) CapturedFrames() (map[int]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(`SELECT frame_index, file FROM frames`)
	if err != nil {
		return nil, fmt.Errorf("query captured frames: %w", err)
	}
	defer rows.Close()

	captured := make(map[int]string)
	for rows.Next() {
		var index int
		var file string
		if err := rows.Scan(&index, &file); err != nil {
			return nil, fmt.Errorf("scan frame row: %w", err)
		}
		captured[index] = file
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read captured frames: %w", err)
	}
	return captured, nil
}

// Close releases the database.
func (s *Store) Close() error {
	return s.db.Close()
}
