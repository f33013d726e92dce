package engine

import (
	"fmt"
	"time"

	"github.com/roach88/pokepad/internal/report"
)

// Task names a selectable automation. Built-in tasks share their names
// with the sequences in the sequence catalog.
type Task string

// TaskIdle is the pass-through task: the engine re-sends the current
// report and plays nothing.
const TaskIdle Task = "idle"

// MaxYears bounds a single year change in either direction.
const MaxYears = 60

// DateDelta is the signed amount a date or year task moves each field.
type DateDelta struct {
	Years  int `json:"years,omitempty"`
	Months int `json:"months,omitempty"`
	Days   int `json:"days,omitempty"`
}

// IsZero reports whether no field moves.
func (d DateDelta) IsZero() bool {
	return d == DateDelta{}
}

func (d DateDelta) String() string {
	return fmt.Sprintf("%d/%d/%d", d.Years, d.Months, d.Days)
}

// Activation is an external task-selection event.
type Activation struct {
	Task  Task      `json:"task"`
	Delta DateDelta `json:"delta,omitzero"`

	// Manual, when set on an idle activation, replaces the idle report
	// (raw pass-through reports).
	Manual *report.Report `json:"manual,omitempty"`
}

func (a Activation) String() string {
	switch {
	case a.Manual != nil:
		return fmt.Sprintf("%s manual=%q", a.Task, a.Manual.String())
	case !a.Delta.IsZero():
		return fmt.Sprintf("%s delta=%s", a.Task, a.Delta)
	}
	return string(a.Task)
}

// Observer is notified of task boundaries. Calls happen on the engine
// goroutine and must not block.
type Observer interface {
	TaskActivated(a Activation, at time.Duration)
	TaskCompleted(t Task, at time.Duration)
}

func clampYears(n int) int {
	if n > MaxYears {
		return MaxYears
	}
	if n < -MaxYears {
		return -MaxYears
	}
	return n
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
