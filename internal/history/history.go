// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package history keeps a local SQLite log of submission attempts. It
// records what was sent where and how it ended; file contents and
// passwords are never stored.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// DefaultPath is where the CLI keeps its history database.
const DefaultPath = ".docconv/history.db"

const defaultLimit = 50

// Status is the outcome of a submission attempt.
type Status string

const (
	StatusOK     Status = "ok"
	StatusFailed Status = "failed"
)

// Entry is one submission attempt.
type Entry struct {
	ID          string    `json:"id" yaml:"id"`
	Workflow    string    `json:"workflow" yaml:"workflow"`
	Endpoint    string    `json:"endpoint" yaml:"endpoint"`
	Files       []string  `json:"files" yaml:"files"`
	Bytes       int64     `json:"bytes" yaml:"bytes"`
	ResultBytes int64     `json:"result_bytes" yaml:"result_bytes"`
	Status      Status    `json:"status" yaml:"status"`
	Output      string    `json:"output,omitempty" yaml:"output,omitempty"`
	Error       string    `json:"error,omitempty" yaml:"error,omitempty"`
	StartedAt   time.Time `json:"started_at" yaml:"started_at"`
	FinishedAt  time.Time `json:"finished_at" yaml:"finished_at"`
}

// Duration returns how long the attempt took.
func (e Entry) Duration() time.Duration {
	return e.FinishedAt.Sub(e.StartedAt)
}

// Store manages the history database.
type Store struct {
	db *sql.DB
}

// Open opens or creates the history database at path, creating parent
// directories and the schema as needed.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating history directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS submissions (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT NOT NULL UNIQUE,
			workflow TEXT NOT NULL,
			endpoint TEXT NOT NULL,
			files TEXT NOT NULL,
			bytes INTEGER NOT NULL,
			result_bytes INTEGER NOT NULL,
			status TEXT NOT NULL,
			output TEXT,
			error TEXT,
			started_at TEXT NOT NULL,
			finished_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_submissions_workflow ON submissions(workflow)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Record stores e. An empty ID is filled with a new UUID, and the stored
// entry is returned.
func (s *Store) Record(ctx context.Context, e Entry) (Entry, error) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Files == nil {
		e.Files = []string{}
	}
	files, err := json.Marshal(e.Files)
	if err != nil {
		return e, fmt.Errorf("encoding file names: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO submissions
			(id, workflow, endpoint, files, bytes, result_bytes, status, output, error, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Workflow, e.Endpoint, string(files), e.Bytes, e.ResultBytes, string(e.Status),
		e.Output, e.Error,
		e.StartedAt.UTC().Format(time.RFC3339Nano), e.FinishedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return e, fmt.Errorf("recording submission %s: %w", e.ID, err)
	}
	return e, nil
}

// List returns the most recent entries first. An empty workflow matches
// all workflows; limit <= 0 uses a default of 50.
func (s *Store) List(ctx context.Context, workflow string, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = defaultLimit
	}

	query := `SELECT id, workflow, endpoint, files, bytes, result_bytes, status,
			COALESCE(output, ''), COALESCE(error, ''), started_at, finished_at
		FROM submissions`
	var args []any
	if workflow != "" {
		query += ` WHERE workflow = ?`
		args = append(args, workflow)
	}
	query += ` ORDER BY rowid DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying history: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e                 Entry
			files, status     string
			started, finished string
		)
		if err := rows.Scan(&e.ID, &e.Workflow, &e.Endpoint, &files, &e.Bytes, &e.ResultBytes,
			&status, &e.Output, &e.Error, &started, &finished); err != nil {
			return nil, fmt.Errorf("scanning history row: %w", err)
		}
		if err := json.Unmarshal([]byte(files), &e.Files); err != nil {
			return nil, fmt.Errorf("decoding file names for %s: %w", e.ID, err)
		}
		e.Status = Status(status)
		e.StartedAt, _ = time.Parse(time.RFC3339Nano, started)
		e.FinishedAt, _ = time.Parse(time.RFC3339Nano, finished)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
