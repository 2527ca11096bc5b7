// Package store persists named snapshots and run history in SQLite.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/chazu/arghonaut/snapshot"
	"github.com/google/uuid"
	"github.com/tliron/commonlog"
	_ "modernc.org/sqlite"
)

// ErrSnapshotNotFound indicates the requested snapshot doesn't exist.
var ErrSnapshotNotFound = errors.New("snapshot not found")

var log = commonlog.GetLogger("argh.store")

const schema = `
CREATE TABLE IF NOT EXISTS snapshots (
	name    TEXT PRIMARY KEY,
	hash    TEXT NOT NULL,
	data    BLOB NOT NULL,
	created INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS runs (
	id           TEXT PRIMARY KEY,
	program_hash TEXT NOT NULL,
	status       TEXT NOT NULL,
	stdout       TEXT NOT NULL,
	error        TEXT NOT NULL,
	steps        INTEGER NOT NULL,
	created      INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS runs_created ON runs (created);
`

// Store is a SQLite-backed snapshot and run store. It is safe for
// concurrent use.
type Store struct {
	db   *sql.DB
	path string
	mu   sync.Mutex
}

// SnapshotInfo describes a stored snapshot without its payload.
type SnapshotInfo struct {
	Name    string
	Hash    string
	Created time.Time
}

// Run is one recorded program execution.
type Run struct {
	ID          string
	ProgramHash string
	Status      string
	Stdout      string
	Error       string
	Steps       int
	Created     time.Time
}

// Open opens (creating if needed) the database at path.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("creating database directory: %w", err)
			}
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// A single connection keeps ":memory:" databases coherent.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating tables: %w", err)
	}

	log.Debugf("opened store %s", path)
	return &Store{db: db, path: path}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Path returns the database path the store was opened with.
func (s *Store) Path() string {
	return s.path
}

// SaveSnapshot stores snap under name, replacing any previous snapshot with
// that name. It returns the snapshot hash.
func (s *Store) SaveSnapshot(ctx context.Context, name string, snap *snapshot.Snapshot) (string, error) {
	if name == "" {
		return "", errors.New("saving snapshot: empty name")
	}
	data, err := snapshot.Marshal(snap)
	if err != nil {
		return "", fmt.Errorf("encoding snapshot: %w", err)
	}
	hash, err := snapshot.Hash(snap)
	if err != nil {
		return "", fmt.Errorf("hashing snapshot: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err = s.db.ExecContext(ctx,
		"INSERT OR REPLACE INTO snapshots (name, hash, data, created) VALUES (?, ?, ?, ?)",
		name, hash, data, time.Now().UnixNano(),
	)
	if err != nil {
		return "", fmt.Errorf("saving snapshot: %w", err)
	}
	log.Infof("saved snapshot %q (%s)", name, hash[:12])
	return hash, nil
}

// LoadSnapshot retrieves the snapshot stored under name.
func (s *Store) LoadSnapshot(ctx context.Context, name string) (*snapshot.Snapshot, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx, "SELECT data FROM snapshots WHERE name = ?", name).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %q", ErrSnapshotNotFound, name)
		}
		return nil, fmt.Errorf("querying snapshot: %w", err)
	}
	snap, err := snapshot.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("decoding snapshot %q: %w", name, err)
	}
	return snap, nil
}

// ListSnapshots returns every stored snapshot, ordered by name.
func (s *Store) ListSnapshots(ctx context.Context) ([]SnapshotInfo, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT name, hash, created FROM snapshots ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("listing snapshots: %w", err)
	}
	defer rows.Close()

	var out []SnapshotInfo
	for rows.Next() {
		var info SnapshotInfo
		var created int64
		if err := rows.Scan(&info.Name, &info.Hash, &created); err != nil {
			return nil, fmt.Errorf("scanning snapshot: %w", err)
		}
		info.Created = time.Unix(0, created)
		out = append(out, info)
	}
	return out, rows.Err()
}

// DeleteSnapshot removes the snapshot stored under name.
func (s *Store) DeleteSnapshot(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, "DELETE FROM snapshots WHERE name = ?", name)
	if err != nil {
		return fmt.Errorf("deleting snapshot: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %q", ErrSnapshotNotFound, name)
	}
	return nil
}

// RecordRun stores a run record. An empty ID is replaced by a fresh UUID and
// a zero Created time by the current time. The stored record is returned.
func (s *Store) RecordRun(ctx context.Context, r Run) (Run, error) {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	if r.Created.IsZero() {
		r.Created = time.Now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, program_hash, status, stdout, error, steps, created)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.ProgramHash, r.Status, r.Stdout, r.Error, r.Steps, r.Created.UnixNano(),
	)
	if err != nil {
		return Run{}, fmt.Errorf("recording run: %w", err)
	}
	log.Debugf("recorded run %s (%s, %d steps)", r.ID, r.Status, r.Steps)
	return r, nil
}

// Runs returns the most recent runs, newest first. A limit of zero or less
// returns all runs.
func (s *Store) Runs(ctx context.Context, limit int) ([]Run, error) {
	query := "SELECT id, program_hash, status, stdout, error, steps, created FROM runs ORDER BY created DESC"
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var r Run
		var created int64
		if err := rows.Scan(&r.ID, &r.ProgramHash, &r.Status, &r.Stdout, &r.Error, &r.Steps, &created); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		r.Created = time.Unix(0, created)
		out = append(out, r)
	}
	return out, rows.Err()
}
