package store

import (
	"context"
	"fmt"
	"time"

	"github.com/roach88/pokepad/internal/engine"
	"github.com/roach88/pokepad/internal/transport"
)

// Recording is a session read back for replay: the activations in the
// order they were applied and the report changes they produced.
type Recording struct {
	Session  Session
	Schedule []engine.Scheduled
	Changes  []transport.Record

	// End is the time of the last event.
	End time.Duration
}

// ReadRecording loads a session as a replay schedule.
func (s *Store) ReadRecording(ctx context.Context, sessionID string) (*Recording, error) {
	sess, err := s.ReadSession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("read recording: %w", err)
	}
	events, err := s.ReadEvents(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("read recording: %w", err)
	}

	rec := &Recording{Session: sess}
	for _, ev := range events {
		at := time.Duration(ev.AtMS) * time.Millisecond
		rec.End = max(rec.End, at)
		switch ev.Kind {
		case EventActivate:
			a, err := ev.Activation()
			if err != nil {
				return nil, fmt.Errorf("read recording: %w", err)
			}
			rec.Schedule = append(rec.Schedule, engine.Scheduled{At: at, Activation: a})
		case EventReport:
			rec.Changes = append(rec.Changes, transport.Record{AtMS: ev.AtMS, Report: ev.Report})
		}
	}
	return rec, nil
}
