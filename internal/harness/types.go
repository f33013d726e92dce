package harness

import (
	"github.com/roach88/pokepad/internal/store"
)

// Trace event types.
const (
	EventActivate = "activate"
	EventComplete = "complete"
	EventReport   = "report"
)

// TraceEvent is one entry of the recorded session: an activation, a
// completion or a report change.
type TraceEvent struct {
	Type   string `json:"type"`
	AtMS   int64  `json:"at_ms"`
	Task   string `json:"task,omitempty"`
	Delta  string `json:"delta,omitempty"`
	Report string `json:"report,omitempty"`
}

// traceFrom converts stored session events in seq order.
func traceFrom(events []store.Event) []TraceEvent {
	trace := make([]TraceEvent, 0, len(events))
	for _, ev := range events {
		te := TraceEvent{Type: string(ev.Kind), AtMS: ev.AtMS, Task: ev.Task, Report: ev.Report}
		if ev.Kind == store.EventActivate {
			if !ev.Args.Delta.IsZero() {
				te.Delta = ev.Args.Delta.String()
			}
			te.Report = ev.Args.Manual
		}
		trace = append(trace, te)
	}
	return trace
}

// Result is the outcome of a test scenario execution.
type Result struct {
	// Pass is true when every step behaved as declared and every
	// assertion held.
	Pass bool `json:"pass"`

	// Trace contains the recorded session in order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Summary tallies the recorded session.
	Summary store.Summary `json:"-"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
