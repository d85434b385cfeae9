package audit

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver registration
)

// defaultBusyTimeout is the SQLite busy handler timeout in milliseconds.
const defaultBusyTimeout = 5000

const schema = `
CREATE TABLE IF NOT EXISTS audit_events (
	id        INTEGER PRIMARY KEY AUTOINCREMENT,
	ts        INTEGER NOT NULL,
	type      TEXT    NOT NULL,
	tool_name TEXT    NOT NULL DEFAULT '',
	detail    TEXT    NOT NULL DEFAULT '',
	metadata  TEXT    NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_audit_events_ts ON audit_events(ts);
CREATE INDEX IF NOT EXISTS idx_audit_events_type ON audit_events(type);
`

// Store persists audit events to SQLite. The database is opened with
// WAL mode, a 5 s busy timeout, and a single connection (SQLite
// serialises writes). The schema is migrated automatically.
type Store struct {
	db *sql.DB
}

// OpenStore opens (creating if needed) the audit database at path.
func OpenStore(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("audit: create directory %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("audit: open %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("audit: enable WAL: %w", err)
	}
	if _, err := db.Exec(fmt.Sprintf("PRAGMA busy_timeout=%d", defaultBusyTimeout)); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("audit: set busy_timeout: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("audit: migrate schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error { return s.db.Close() }

// Insert persists one event.
func (s *Store) Insert(e Event) error {
	meta := ""
	if len(e.Metadata) > 0 {
		raw, err := json.Marshal(e.Metadata)
		if err != nil {
			return fmt.Errorf("audit: encoding metadata: %w", err)
		}
		meta = string(raw)
	}
	_, err := s.db.Exec(
		"INSERT INTO audit_events (ts, type, tool_name, detail, metadata) VALUES (?, ?, ?, ?, ?)",
		e.Timestamp.UnixMicro(), string(e.Type), e.ToolName, e.Detail, meta,
	)
	if err != nil {
		return fmt.Errorf("audit: inserting event: %w", err)
	}
	return nil
}

// Recent returns up to limit events, newest first, optionally filtered
// by type.
func (s *Store) Recent(limit int, typ EventType) ([]Event, error) {
	if limit <= 0 {
		limit = 100
	}

	query := "SELECT ts, type, tool_name, detail, metadata FROM audit_events"
	args := []any{}
	if typ != "" {
		query += " WHERE type = ?"
		args = append(args, string(typ))
	}
	query += " ORDER BY ts DESC, id DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("audit: querying events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var (
			ts   int64
			e    Event
			meta string
		)
		if err := rows.Scan(&ts, &e.Type, &e.ToolName, &e.Detail, &meta); err != nil {
			return nil, fmt.Errorf("audit: scanning event: %w", err)
		}
		e.Timestamp = time.UnixMicro(ts)
		if meta != "" {
			if err := json.Unmarshal([]byte(meta), &e.Metadata); err != nil {
				return nil, fmt.Errorf("audit: decoding metadata: %w", err)
			}
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// Prune deletes events older than the retention window. A zero
// retention disables pruning.
func (s *Store) Prune(retention time.Duration) (int64, error) {
	if retention <= 0 {
		return 0, nil
	}
	cutoff := time.Now().Add(-retention).UnixMicro()
	res, err := s.db.Exec("DELETE FROM audit_events WHERE ts < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("audit: pruning events: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}
