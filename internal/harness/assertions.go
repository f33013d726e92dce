package harness

import (
	"fmt"
	"strings"
	"time"

	"github.com/roach88/pokepad/internal/engine"
	"github.com/roach88/pokepad/internal/report"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for i, event := range e.Trace {
			switch event.Type {
			case EventReport:
				fmt.Fprintf(&buf, "  [%d] %6dms %s\n", i+1, event.AtMS, event.Report)
			default:
				fmt.Fprintf(&buf, "  [%d] %6dms %s %s\n", i+1, event.AtMS, event.Type, event.Task)
			}
		}
	}

	return buf.String()
}

// reportAt returns the report in effect at time at: the last report
// change at or before it, or Neutral before the first one.
func reportAt(trace []TraceEvent, at time.Duration) (report.Report, error) {
	r := report.Neutral()
	for _, ev := range trace {
		if ev.AtMS > at.Milliseconds() {
			break
		}
		if ev.Type != EventReport {
			continue
		}
		parsed, err := report.ParseSerial(ev.Report)
		if err != nil {
			return report.Report{}, err
		}
		r = parsed
	}
	return r, nil
}

// activeAt returns the task selected at time at.
func activeAt(trace []TraceEvent, at time.Duration) string {
	task := string(engine.TaskIdle)
	for _, ev := range trace {
		if ev.AtMS > at.Milliseconds() {
			break
		}
		switch ev.Type {
		case EventActivate:
			task = ev.Task
		case EventComplete:
			task = string(engine.TaskIdle)
		}
	}
	return task
}

// assertPressCount counts the report changes where the command goes from
// inactive to active inside the window.
func assertPressCount(trace []TraceEvent, a Assertion) error {
	cmd, err := report.ParseCommand(a.Command)
	if err != nil {
		return err
	}

	count := 0
	prev := report.Neutral()
	for _, ev := range trace {
		if ev.Type != EventReport {
			continue
		}
		cur, err := report.ParseSerial(ev.Report)
		if err != nil {
			return err
		}
		inWindow := ev.AtMS >= a.From.Milliseconds() && (a.To == 0 || ev.AtMS <= a.To.Milliseconds())
		if inWindow && cmd.ActiveIn(cur) && !cmd.ActiveIn(prev) {
			count++
		}
		prev = cur
	}

	if count != a.Count {
		return &AssertionError{
			Type:     AssertPressCount,
			Expected: fmt.Sprintf("%d presses of %s", a.Count, a.Command),
			Actual:   fmt.Sprintf("%d presses", count),
			Trace:    trace,
		}
	}
	return nil
}

// assertCompleted checks that the task ran to completion.
func assertCompleted(trace []TraceEvent, a Assertion) error {
	count := 0
	for _, ev := range trace {
		if ev.Type == EventComplete && ev.Task == a.Task {
			count++
		}
	}

	switch {
	case a.Count > 0 && count != a.Count:
		return &AssertionError{
			Type:     AssertCompleted,
			Expected: fmt.Sprintf("%s completed %d time(s)", a.Task, a.Count),
			Actual:   fmt.Sprintf("completed %d time(s)", count),
			Trace:    trace,
		}
	case a.Count == 0 && count == 0:
		return &AssertionError{
			Type:     AssertCompleted,
			Expected: fmt.Sprintf("%s completed", a.Task),
			Actual:   "no completion in trace",
			Trace:    trace,
		}
	}
	return nil
}

func assertNeutralAt(trace []TraceEvent, a Assertion) error {
	r, err := reportAt(trace, a.At)
	if err != nil {
		return err
	}
	if !r.IsNeutral() {
		return &AssertionError{
			Type:     AssertNeutralAt,
			Expected: fmt.Sprintf("neutral report at %v", a.At),
			Actual:   r.String(),
			Trace:    trace,
		}
	}
	return nil
}

func assertReportAt(trace []TraceEvent, a Assertion) error {
	r, err := reportAt(trace, a.At)
	if err != nil {
		return err
	}

	if a.Report != "" {
		want, err := report.ParseSerial(a.Report)
		if err != nil {
			return err
		}
		if r != want {
			return &AssertionError{
				Type:     AssertReportAt,
				Expected: fmt.Sprintf("%s at %v", want, a.At),
				Actual:   r.String(),
				Trace:    trace,
			}
		}
		return nil
	}

	cmd, err := report.ParseCommand(a.Command)
	if err != nil {
		return err
	}
	if !cmd.ActiveIn(r) {
		return &AssertionError{
			Type:     AssertReportAt,
			Expected: fmt.Sprintf("%s active at %v", a.Command, a.At),
			Actual:   r.String(),
			Trace:    trace,
		}
	}
	return nil
}

func assertActiveAt(trace []TraceEvent, a Assertion) error {
	if got := activeAt(trace, a.At); got != a.Task {
		return &AssertionError{
			Type:     AssertActiveAt,
			Expected: fmt.Sprintf("task %s at %v", a.Task, a.At),
			Actual:   fmt.Sprintf("task %s", got),
			Trace:    trace,
		}
	}
	return nil
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertPressCount:
			err = assertPressCount(result.Trace, assertion)
		case AssertCompleted:
			err = assertCompleted(result.Trace, assertion)
		case AssertNeutralAt:
			err = assertNeutralAt(result.Trace, assertion)
		case AssertReportAt:
			err = assertReportAt(result.Trace, assertion)
		case AssertActiveAt:
			err = assertActiveAt(result.Trace, assertion)
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}
