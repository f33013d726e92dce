package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/roach88/pokepad/internal/engine"
	"github.com/roach88/pokepad/internal/report"
)

// ErrSessionNotFound is returned when a session ID has no row.
var ErrSessionNotFound = errors.New("session not found")

// EventKind distinguishes log entries.
type EventKind string

const (
	EventActivate EventKind = "activate"
	EventComplete EventKind = "complete"
	EventReport   EventKind = "report"
)

// Session is one recorded engine run.
type Session struct {
	ID        string
	Label     string
	StartedAt time.Time
}

// Event is one row of the session log.
type Event struct {
	SessionID string
	Seq       int64
	AtMS      int64
	Kind      EventKind
	Task      string
	Args      Args
	Report    string
}

// Args holds the activation parameters stored with an activate event.
type Args struct {
	Delta  engine.DateDelta `json:"delta,omitzero"`
	Manual string           `json:"manual,omitempty"`
}

// ArgsFor extracts the stored parameters of an activation.
func ArgsFor(a engine.Activation) Args {
	args := Args{Delta: a.Delta}
	if a.Manual != nil {
		args.Manual = a.Manual.String()
	}
	return args
}

// Activation rebuilds the activation an activate event recorded.
func (e Event) Activation() (engine.Activation, error) {
	a := engine.Activation{Task: engine.Task(e.Task), Delta: e.Args.Delta}
	if e.Args.Manual != "" {
		r, err := report.ParseSerial(e.Args.Manual)
		if err != nil {
			return engine.Activation{}, fmt.Errorf("event %d: %w", e.Seq, err)
		}
		a.Manual = &r
	}
	return a, nil
}

// CreateSession inserts a session row.
// Uses ON CONFLICT(id) DO NOTHING for idempotency.
func (s *Store) CreateSession(ctx context.Context, sess Session) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, label, started_at)
		VALUES (?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, sess.ID, sess.Label, sess.StartedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

// WriteEvent appends an event. Duplicate (session_id, seq) pairs are
// silently ignored.
func (s *Store) WriteEvent(ctx context.Context, ev Event) error {
	args, err := json.Marshal(ev.Args)
	if err != nil {
		return fmt.Errorf("write event: marshal args: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO events (session_id, seq, at_ms, kind, task, args, report)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(session_id, seq) DO NOTHING
	`, ev.SessionID, ev.Seq, ev.AtMS, string(ev.Kind), ev.Task, string(args), ev.Report)
	if err != nil {
		return fmt.Errorf("write event: %w", err)
	}
	return nil
}

// ReadSession returns one session.
func (s *Store) ReadSession(ctx context.Context, id string) (Session, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, label, started_at FROM sessions WHERE id = ?
	`, id)
	sess, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Session{}, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return sess, err
}

// ListSessions returns every session ordered by ID. UUIDv7 IDs sort by
// start time.
func (s *Store) ListSessions(ctx context.Context) ([]Session, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, label, started_at FROM sessions
		ORDER BY id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	sessions := []Session{}
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return sessions, nil
}

// ReadEvents returns a session's events ordered by seq.
// Returns an empty slice (not nil) if the session has no events.
func (s *Store) ReadEvents(ctx context.Context, sessionID string) ([]Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT session_id, seq, at_ms, kind, task, args, report
		FROM events
		WHERE session_id = ?
		ORDER BY seq ASC
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	events := []Event{}
	for rows.Next() {
		var (
			ev   Event
			kind string
			args string
		)
		if err := rows.Scan(&ev.SessionID, &ev.Seq, &ev.AtMS, &kind, &ev.Task, &args, &ev.Report); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		ev.Kind = EventKind(kind)
		if err := json.Unmarshal([]byte(args), &ev.Args); err != nil {
			return nil, fmt.Errorf("event %d: unmarshal args: %w", ev.Seq, err)
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return events, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (Session, error) {
	var (
		sess    Session
		started string
	)
	if err := row.Scan(&sess.ID, &sess.Label, &started); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Session{}, err
		}
		return Session{}, fmt.Errorf("scan session: %w", err)
	}
	t, err := time.Parse(time.RFC3339Nano, started)
	if err != nil {
		return Session{}, fmt.Errorf("session %s: parse started_at: %w", sess.ID, err)
	}
	sess.StartedAt = t
	return sess, nil
}
