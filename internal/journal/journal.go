// Package journal persists monitoring sessions and engine events to an
// embedded SQLite database. Journal failures never fail a tick; callers
// log and continue.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	lookout "quest-lookout/internal/lookout/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	id          TEXT PRIMARY KEY,
	started_at  TEXT NOT NULL,
	ended_at    TEXT
);

CREATE TABLE IF NOT EXISTS events (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id  TEXT NOT NULL,
	rule_idx    INTEGER NOT NULL,
	type        TEXT NOT NULL,
	at          TEXT NOT NULL,
	dyaw        REAL NOT NULL,
	dpitch      REAL NOT NULL,
	FOREIGN KEY (session_id) REFERENCES sessions(id)
);

CREATE INDEX IF NOT EXISTS idx_events_session ON events(session_id, id);
`

// Session is one monitoring run from engine start to shutdown.
type Session struct {
	ID        string
	StartedAt time.Time
	EndedAt   time.Time
}

// EventRecord is a journaled engine event.
type EventRecord struct {
	SessionID string
	RuleIndex int
	Type      string
	At        time.Time
	DYaw      float64
	DPitch    float64
}

// Journal stores sessions and events in SQLite.
type Journal struct {
	db *sql.DB
}

// Open opens (creating if needed) the journal database and runs the
// schema migration.
func Open(path string) (*Journal, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("journal: open db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("journal: pragma: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("journal: migrate: %w", err)
	}
	return &Journal{db: db}, nil
}

// Close closes the underlying database.
func (j *Journal) Close() error {
	return j.db.Close()
}

// StartSession creates a new session row and returns its id.
func (j *Journal) StartSession(startedAt time.Time) (string, error) {
	id := uuid.NewString()
	_, err := j.db.Exec(
		"INSERT INTO sessions (id, started_at) VALUES (?, ?)",
		id, startedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return "", fmt.Errorf("journal: start session: %w", err)
	}
	return id, nil
}

// EndSession stamps a session's end time.
func (j *Journal) EndSession(id string, endedAt time.Time) error {
	_, err := j.db.Exec(
		"UPDATE sessions SET ended_at = ? WHERE id = ?",
		endedAt.UTC().Format(time.RFC3339Nano), id,
	)
	if err != nil {
		return fmt.Errorf("journal: end session: %w", err)
	}
	return nil
}

// GetSession loads one session.
func (j *Journal) GetSession(id string) (*Session, error) {
	row := j.db.QueryRow("SELECT id, started_at, ended_at FROM sessions WHERE id = ?", id)
	var s Session
	var started string
	var ended sql.NullString
	if err := row.Scan(&s.ID, &started, &ended); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("journal: get session: %w", err)
	}
	var err error
	s.StartedAt, err = time.Parse(time.RFC3339Nano, started)
	if err != nil {
		return nil, fmt.Errorf("journal: parse started_at: %w", err)
	}
	if ended.Valid {
		s.EndedAt, err = time.Parse(time.RFC3339Nano, ended.String)
		if err != nil {
			return nil, fmt.Errorf("journal: parse ended_at: %w", err)
		}
	}
	return &s, nil
}

// Record appends one event to a session.
func (j *Journal) Record(sessionID string, ev lookout.Event) error {
	_, err := j.db.Exec(
		"INSERT INTO events (session_id, rule_idx, type, at, dyaw, dpitch) VALUES (?, ?, ?, ?, ?, ?)",
		sessionID, ev.RuleIndex, ev.Type, ev.At.UTC().Format(time.RFC3339Nano), ev.DYaw, ev.DPitch,
	)
	if err != nil {
		return fmt.Errorf("journal: record event: %w", err)
	}
	return nil
}

// ListEvents returns a session's events in insertion order.
func (j *Journal) ListEvents(sessionID string) ([]EventRecord, error) {
	rows, err := j.db.Query(
		"SELECT rule_idx, type, at, dyaw, dpitch FROM events WHERE session_id = ? ORDER BY id",
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("journal: list events: %w", err)
	}
	defer rows.Close()

	var events []EventRecord
	for rows.Next() {
		rec := EventRecord{SessionID: sessionID}
		var at string
		if err := rows.Scan(&rec.RuleIndex, &rec.Type, &at, &rec.DYaw, &rec.DPitch); err != nil {
			return nil, fmt.Errorf("journal: scan event: %w", err)
		}
		rec.At, err = time.Parse(time.RFC3339Nano, at)
		if err != nil {
			return nil, fmt.Errorf("journal: parse event time: %w", err)
		}
		events = append(events, rec)
	}
	return events, rows.Err()
}

// Recorder adapts a journal session to the engine's notifier contract.
type Recorder struct {
	journal   *Journal
	sessionID string
	logf      func(format string, v ...any)
}

// NewRecorder constructs a notifier recording into the given session.
func NewRecorder(j *Journal, sessionID string, logf func(format string, v ...any)) *Recorder {
	if logf == nil {
		logf = func(string, ...any) {}
	}
	return &Recorder{journal: j, sessionID: sessionID, logf: logf}
}

// Notify implements the engine notifier contract; failures are logged,
// never propagated.
func (r *Recorder) Notify(_ context.Context, ev lookout.Event) {
	if r == nil || r.journal == nil {
		return
	}
	if err := r.journal.Record(r.sessionID, ev); err != nil {
		r.logf("journal: %v", err)
	}
}
