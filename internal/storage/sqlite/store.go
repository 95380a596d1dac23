// Package sqlite provides a SQLite-backed event journal.
package sqlite

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/cardsdown/cardsdown/internal/event"
)

const schema = `
CREATE TABLE IF NOT EXISTS room_events (
	room_id    TEXT    NOT NULL,
	seq        INTEGER NOT NULL,
	command_id TEXT    NOT NULL,
	name       TEXT    NOT NULL,
	payload    TEXT    NOT NULL,
	timestamp  INTEGER NOT NULL,
	PRIMARY KEY (room_id, seq)
);

CREATE TABLE IF NOT EXISTS room_event_seq (
	room_id  TEXT    PRIMARY KEY,
	next_seq INTEGER NOT NULL
);
`

// Store provides a SQLite-backed event journal.
type Store struct {
	sqlDB    *sql.DB
	registry *event.Registry
}

// Open opens a SQLite event journal at the provided path. Events are
// validated against the registry before append.
func Open(path string, registry *event.Registry) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	if registry == nil {
		return nil, fmt.Errorf("event registry is required")
	}

	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open storage db: %w", err)
	}
	// The driver serializes writers; a single connection keeps transactions
	// from tripping over SQLITE_BUSY.
	sqlDB.SetMaxOpenConns(1)

	if _, err := sqlDB.Exec(schema); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Store{sqlDB: sqlDB, registry: registry}, nil
}

// Close closes the underlying SQLite database.
//
// Close is nil-safe so callers can defer it in all startup paths.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}
