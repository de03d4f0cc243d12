// Package storage provides the relational session store backing sessions,
// messages, and task state across restarts.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	_ "modernc.org/sqlite"
)

var ErrNotFound = errors.New("not found")

const schema = `
CREATE TABLE IF NOT EXISTS entries (
	path       TEXT PRIMARY KEY,
	depth      INTEGER NOT NULL,
	data       TEXT NOT NULL,
	updated_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_entries_depth ON entries(depth);
`

// Storage is the SQLite-backed record store for anvil's durable state:
// sessions, messages, parts, and task/todo blobs, all addressed by a
// hierarchical path (e.g. []string{"session", projectID, sessionID}).
// Paths are flattened into a single "/"-joined key so the same table and
// query shape serves every record kind; callers don't see the schema.
type Storage struct {
	db   *sql.DB
	lock *InstanceLock
	mu   sync.Mutex
}

// New opens (creating if needed) the SQLite database rooted at basePath and
// returns a ready Storage. basePath is a directory; the database file lives
// at basePath/anvil.db.
func New(basePath string) *Storage {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		// Matches the teacher's lazy-create-on-first-write posture: defer
		// the error to the first real operation rather than panicking here,
		// since New has no error return in any call site.
		return &Storage{}
	}

	dbPath := filepath.Join(basePath, "anvil.db")
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return &Storage{}
	}
	db.SetMaxOpenConns(1) // modernc.org/sqlite's single-writer constraint

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return &Storage{}
	}

	return &Storage{
		db:   db,
		lock: NewInstanceLock(filepath.Join(basePath, "anvil.lock")),
	}
}

func keyOf(path []string) string {
	return strings.Join(path, "/")
}

// Get retrieves a value from storage.
func (s *Storage) Get(ctx context.Context, path []string, v any) error {
	if s.db == nil {
		return fmt.Errorf("storage not initialized")
	}

	var data string
	err := s.db.QueryRowContext(ctx, `SELECT data FROM entries WHERE path = ?`, keyOf(path)).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to read entry: %w", err)
	}

	if err := json.Unmarshal([]byte(data), v); err != nil {
		return fmt.Errorf("failed to unmarshal: %w", err)
	}

	return nil
}

// Put stores a value in storage, creating or overwriting the entry at path.
func (s *Storage) Put(ctx context.Context, path []string, v any) error {
	if s.db == nil {
		return fmt.Errorf("storage not initialized")
	}

	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal: %w", err)
	}

	key := keyOf(path)
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO entries (path, depth, data, updated_at)
		VALUES (?, ?, ?, unixepoch())
		ON CONFLICT(path) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at
	`, key, len(path), string(data))
	if err != nil {
		return fmt.Errorf("failed to write entry: %w", err)
	}

	return nil
}

// Delete removes a value from storage.
func (s *Storage) Delete(ctx context.Context, path []string) error {
	if s.db == nil {
		return fmt.Errorf("storage not initialized")
	}

	if _, err := s.db.ExecContext(ctx, `DELETE FROM entries WHERE path = ?`, keyOf(path)); err != nil {
		return fmt.Errorf("failed to delete entry: %w", err)
	}

	return nil
}

// List returns the immediate child names under path, whether they are
// terminal records or the root of deeper records (matching the teacher's
// directory-listing semantics over a now-flattened key space).
func (s *Storage) List(ctx context.Context, path []string) ([]string, error) {
	if s.db == nil {
		return nil, fmt.Errorf("storage not initialized")
	}

	prefix := keyOf(path)
	rows, err := s.db.QueryContext(ctx, `SELECT path FROM entries WHERE path LIKE ? ESCAPE '\'`, escapeLike(prefix)+"/%")
	if err != nil {
		return nil, fmt.Errorf("failed to list entries: %w", err)
	}
	defer rows.Close()

	seen := make(map[string]bool)
	var items []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("failed to scan path: %w", err)
		}
		rest := strings.TrimPrefix(p, prefix+"/")
		child := rest
		if idx := strings.Index(rest, "/"); idx >= 0 {
			child = rest[:idx]
		}
		if child != "" && !seen[child] {
			seen[child] = true
			items = append(items, child)
		}
	}

	return items, rows.Err()
}

// Scan iterates over the leaf records directly under path (not deeper
// descendants), matching the teacher's file-not-directory traversal.
func (s *Storage) Scan(ctx context.Context, path []string, fn func(key string, data json.RawMessage) error) error {
	if s.db == nil {
		return fmt.Errorf("storage not initialized")
	}

	prefix := keyOf(path)
	rows, err := s.db.QueryContext(ctx, `
		SELECT path, data FROM entries WHERE path LIKE ? ESCAPE '\' AND depth = ?
	`, escapeLike(prefix)+"/%", len(path)+1)
	if err != nil {
		return fmt.Errorf("failed to scan entries: %w", err)
	}
	defer rows.Close()

	type row struct {
		key  string
		data string
	}
	var batch []row
	for rows.Next() {
		var p, data string
		if err := rows.Scan(&p, &data); err != nil {
			return fmt.Errorf("failed to scan row: %w", err)
		}
		batch = append(batch, row{key: strings.TrimPrefix(p, prefix+"/"), data: data})
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for _, r := range batch {
		if err := fn(r.key, json.RawMessage(r.data)); err != nil {
			return err
		}
	}

	return nil
}

// Exists checks if a path exists.
func (s *Storage) Exists(ctx context.Context, path []string) bool {
	if s.db == nil {
		return false
	}

	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM entries WHERE path = ?`, keyOf(path)).Scan(&one)
	return err == nil
}

// Close releases the underlying database handle.
func (s *Storage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// escapeLike escapes SQLite LIKE metacharacters in a path prefix so session
// or project IDs containing "%" or "_" can't be mistaken for wildcards.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
