// Package journal persists engine events to SQLite so a session's timer
// activity can be inspected after the fact.
package journal

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver registration

	"github.com/lull-sh/lull/internal/engine"
)

// Entry is one persisted engine event.
type Entry struct {
	ID      int64
	Session string
	Type    string
	Timer   int
	IdleMS  int64
	At      time.Time
}

// Store appends engine events to a SQLite database, one row per event,
// tagged with a per-process session ID. It implements engine.Recorder.
type Store struct {
	db      *sql.DB
	mu      sync.Mutex
	session string
}

// Open opens or creates a journal at the given path and starts a new
// session.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening journal: %w", err)
	}
	if err := createTables(db); err != nil {
		db.Close()
		return nil, err
	}
	store := &Store{db: db, session: uuid.NewString()}
	if err := store.append("session_start", -1, 0, time.Now()); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

func createTables(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS events (
			id      INTEGER PRIMARY KEY AUTOINCREMENT,
			session TEXT NOT NULL,
			ts      TEXT NOT NULL,
			type    TEXT NOT NULL,
			timer   INTEGER NOT NULL,
			idle_ms INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_events_session ON events(session);
		CREATE INDEX IF NOT EXISTS idx_events_ts ON events(ts);
	`)
	if err != nil {
		return fmt.Errorf("creating journal tables: %w", err)
	}
	return nil
}

// Session returns this process's session ID.
func (s *Store) Session() string { return s.session }

// Record implements engine.Recorder.
func (s *Store) Record(event engine.Event) error {
	return s.append(string(event.Type), event.Timer, event.Idle.Milliseconds(), event.At)
}

func (s *Store) append(eventType string, timerIndex int, idleMS int64, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(`
		INSERT INTO events (session, ts, type, timer, idle_ms)
		VALUES (?, ?, ?, ?, ?)
	`, s.session, at.UTC().Format(time.RFC3339Nano), eventType, timerIndex, idleMS)
	if err != nil {
		return fmt.Errorf("appending journal event: %w", err)
	}
	return nil
}

// Events returns all events of the given session in append order. An empty
// session means the store's own session.
func (s *Store) Events(session string) ([]Entry, error) {
	if session == "" {
		session = s.session
	}
	rows, err := s.db.Query(`
		SELECT id, session, ts, type, timer, idle_ms
		FROM events WHERE session = ? ORDER BY id
	`, session)
	if err != nil {
		return nil, fmt.Errorf("querying journal: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var entry Entry
		var ts string
		if err := rows.Scan(&entry.ID, &entry.Session, &ts, &entry.Type, &entry.Timer, &entry.IdleMS); err != nil {
			return nil, err
		}
		entry.At, _ = time.Parse(time.RFC3339Nano, ts)
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// Close records the session end and closes the database.
func (s *Store) Close() error {
	if err := s.append("session_stop", -1, 0, time.Now()); err != nil {
		s.db.Close()
		return err
	}
	return s.db.Close()
}
