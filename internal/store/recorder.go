package store

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/roach88/pokepad/internal/engine"
	"github.com/roach88/pokepad/internal/report"
)

// Recorder logs an engine run into a session. It is both an
// engine.Transport (report changes, forwarded to the next transport) and
// an engine.Observer (activations and completions).
//
// Store failures never reach the engine: they are logged and counted.
type Recorder struct {
	store     *Store
	sessionID string
	next      engine.Transport

	mu       sync.Mutex
	ctx      context.Context
	seq      int64
	seen     bool
	last     report.Report
	failures int
}

// NewRecorder creates a session row and returns a recorder for it.
// next receives every report; pass engine.Discard to record only.
//
// Event writes outlive cancellation of ctx, so the activations and the
// neutral release applied after a signal still reach the log.
func NewRecorder(ctx context.Context, s *Store, gen engine.SessionIDGenerator, label string, next engine.Transport) (*Recorder, error) {
	id := gen.Generate()
	if err := s.CreateSession(ctx, Session{ID: id, Label: label, StartedAt: time.Now()}); err != nil {
		return nil, fmt.Errorf("start session: %w", err)
	}
	if next == nil {
		next = engine.Discard
	}
	slog.Info("session started", "session", id, "label", label)
	return &Recorder{store: s, sessionID: id, next: next, ctx: context.WithoutCancel(ctx)}, nil
}

// SessionID returns the recorded session's ID.
func (r *Recorder) SessionID() string { return r.sessionID }

// Failures counts events that could not be written.
func (r *Recorder) Failures() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.failures
}

// Send records a report change and forwards r downstream.
func (r *Recorder) Send(at time.Duration, rep report.Report) error {
	r.mu.Lock()
	if !r.seen || r.last != rep {
		r.seen, r.last = true, rep
		r.writeLocked(Event{AtMS: at.Milliseconds(), Kind: EventReport, Report: rep.String()})
	}
	r.mu.Unlock()
	return r.next.Send(at, rep)
}

// TaskActivated implements engine.Observer.
func (r *Recorder) TaskActivated(a engine.Activation, at time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.writeLocked(Event{AtMS: at.Milliseconds(), Kind: EventActivate, Task: string(a.Task), Args: ArgsFor(a)})
}

// TaskCompleted implements engine.Observer.
func (r *Recorder) TaskCompleted(t engine.Task, at time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.writeLocked(Event{AtMS: at.Milliseconds(), Kind: EventComplete, Task: string(t)})
}

func (r *Recorder) writeLocked(ev Event) {
	r.seq++
	ev.SessionID = r.sessionID
	ev.Seq = r.seq
	if err := r.store.WriteEvent(r.ctx, ev); err != nil {
		r.failures++
		slog.Warn("session event dropped",
			"session", r.sessionID,
			"seq", ev.Seq,
			"kind", ev.Kind,
			"error", err,
		)
	}
}
