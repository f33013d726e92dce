package store

import (
	"context"
	"fmt"

	"github.com/roach88/pokepad/internal/engine"
)

// Summary describes a recorded session for listing and inspection.
type Summary struct {
	Session     Session
	Activations int
	Completions int
	Reports     int
	LastSeq     int64
	LastAtMS    int64

	// LastTask is the most recently activated task; Finished is true when
	// it ran to completion (or was idle).
	LastTask string
	Finished bool
}

// Summarize reads a session and its events and tallies them.
func (s *Store) Summarize(ctx context.Context, sessionID string) (Summary, error) {
	sess, err := s.ReadSession(ctx, sessionID)
	if err != nil {
		return Summary{}, fmt.Errorf("summarize: %w", err)
	}
	events, err := s.ReadEvents(ctx, sessionID)
	if err != nil {
		return Summary{}, fmt.Errorf("summarize: %w", err)
	}

	sum := Summary{Session: sess, Finished: true}
	for _, ev := range events {
		sum.LastSeq = ev.Seq
		sum.LastAtMS = ev.AtMS
		switch ev.Kind {
		case EventActivate:
			sum.Activations++
			sum.LastTask = ev.Task
			sum.Finished = ev.Task == "" || ev.Task == string(engine.TaskIdle)
		case EventComplete:
			sum.Completions++
			if ev.Task == sum.LastTask {
				sum.Finished = true
			}
		case EventReport:
			sum.Reports++
		}
	}
	return sum, nil
}
