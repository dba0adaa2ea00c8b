// Package history keeps a session log of observed literal edits for the
// watch tool: which file, which ordinal, what the value was and became.
// It is an observation log for the human, never an input to the engine;
// the source file stays the only store of truth for values.
package history

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"retune/internal/cerrors"
)

const driverName = "sqlite"

type Change struct {
	RunID    string
	Time     time.Time
	File     string
	Ordinal  int
	Line     int
	Kind     string
	OldValue string
	NewValue string
}

type Store struct {
	path  string
	runID string
	db    *sql.DB
	mu    sync.Mutex
}

func Open(path string) (*Store, error) {
	cleanPath := strings.TrimSpace(path)
	if cleanPath == "" {
		return nil, cerrors.New(cerrors.CodeNotFound, "history path must not be empty")
	}
	if info, err := os.Stat(cleanPath); err == nil && info.IsDir() {
		return nil, cerrors.New(cerrors.CodeIOError, fmt.Sprintf("history path %q is a directory", cleanPath))
	}

	dir := filepath.Dir(cleanPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, cerrors.Wrap(err, cerrors.CodeIOError, "create history directory")
		}
	}

	// busy_timeout + WAL reduce lock conflicts during watch-mode churn.
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(2000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)", cleanPath)
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, cerrors.Wrap(err, cerrors.CodeIOError, "open history db")
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, cerrors.Wrap(err, cerrors.CodeIOError, "ping history db")
	}
	if err := EnsureSchema(db); err != nil {
		_ = db.Close()
		return nil, cerrors.Wrap(err, cerrors.CodeIOError, "initialize history schema")
	}

	return &Store{path: cleanPath, db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// BeginRun opens a new observation session and returns its id. All
// subsequent RecordChange calls attach to it.
func (s *Store) BeginRun(root string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := uuid.NewString()
	_, err := s.db.Exec(
		`INSERT INTO runs (run_id, started_at, root) VALUES (?, ?, ?)`,
		id, time.Now().UTC().Format(time.RFC3339Nano), root,
	)
	if err != nil {
		return "", cerrors.Wrap(err, cerrors.CodeIOError, "begin history run")
	}
	s.runID = id
	return id, nil
}

func (s *Store) RecordChange(c Change) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c.RunID == "" {
		c.RunID = s.runID
	}
	if c.RunID == "" {
		return cerrors.New(cerrors.CodeNotFound, "no active history run")
	}
	if c.Time.IsZero() {
		c.Time = time.Now().UTC()
	}

	_, err := s.db.Exec(
		`INSERT INTO changes (run_id, ts_utc, file, ordinal, line, kind, old_value, new_value)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		c.RunID, c.Time.UTC().Format(time.RFC3339Nano),
		c.File, c.Ordinal, c.Line, c.Kind, c.OldValue, c.NewValue,
	)
	if err != nil {
		return cerrors.Wrap(err, cerrors.CodeIOError, "record change")
	}
	return nil
}

// RecentChanges returns up to limit changes across all runs, newest
// first.
func (s *Store) RecentChanges(limit int) ([]Change, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(
		`SELECT run_id, ts_utc, file, ordinal, line, kind, old_value, new_value
		 FROM changes ORDER BY id DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, cerrors.Wrap(err, cerrors.CodeIOError, "query changes")
	}
	defer rows.Close()

	var out []Change
	for rows.Next() {
		var c Change
		var ts string
		if err := rows.Scan(&c.RunID, &ts, &c.File, &c.Ordinal, &c.Line, &c.Kind, &c.OldValue, &c.NewValue); err != nil {
			return nil, cerrors.Wrap(err, cerrors.CodeIOError, "scan change row")
		}
		if parsed, parseErr := time.Parse(time.RFC3339Nano, ts); parseErr == nil {
			c.Time = parsed
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
