// Package command turns human-readable text commands into engine
// activations.
//
// Accepted forms (case-insensitive, full-width characters folded):
//
//	end | stop | idle               switch to idle
//	<task>                          activate a registered task (mash_a, ...)
//	Date Y/M/D                      change the date by signed deltas
//	changethedate [Y/M/D]           same, deltas default to 0
//	Year N                          change the year by N (N != 0)
//	changetheyear [N]               same, N defaults to 0
//	0x0013 8 80 80 80 80            raw serial report, passed through
package command

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/text/width"

	"github.com/roach88/pokepad/internal/engine"
	"github.com/roach88/pokepad/internal/report"
	"github.com/roach88/pokepad/internal/sequence"
)

// ParseError describes a rejected command line.
type ParseError struct {
	Line   string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse command %q: %s", e.Line, e.Reason)
}

// Parser resolves task names against a fixed set of registered tasks.
type Parser struct {
	tasks map[string]engine.Task
}

// NewParser creates a parser that accepts the given task names.
func NewParser(tasks []engine.Task) *Parser {
	p := &Parser{tasks: make(map[string]engine.Task, len(tasks))}
	for _, t := range tasks {
		p.tasks[strings.ToLower(string(t))] = t
	}
	return p
}

// Normalize folds full-width characters to their ASCII forms and trims
// surrounding space.
func Normalize(line string) string {
	return strings.TrimSpace(width.Fold.String(line))
}

// Parse turns one line into an activation.
func (p *Parser) Parse(line string) (engine.Activation, error) {
	norm := Normalize(line)
	fields := strings.Fields(norm)
	if len(fields) == 0 {
		return engine.Activation{}, &ParseError{Line: line, Reason: "empty command"}
	}

	head := strings.ToLower(fields[0])
	args := fields[1:]

	switch head {
	case "end", "stop", "idle":
		if len(args) > 0 {
			return engine.Activation{}, &ParseError{Line: line, Reason: head + " takes no arguments"}
		}
		return engine.Activation{Task: engine.TaskIdle}, nil

	case "date", sequence.ChangeTheDate:
		if head == "date" && len(args) == 0 {
			return engine.Activation{}, &ParseError{Line: line, Reason: "Date needs Y/M/D"}
		}
		d, err := parseDate(args)
		if err != nil {
			return engine.Activation{}, &ParseError{Line: line, Reason: err.Error()}
		}
		return engine.Activation{Task: engine.Task(sequence.ChangeTheDate), Delta: d}, nil

	case "year", sequence.ChangeTheYear:
		n, err := parseYears(args)
		if err != nil {
			return engine.Activation{}, &ParseError{Line: line, Reason: err.Error()}
		}
		if head == "year" && n == 0 {
			return engine.Activation{}, &ParseError{Line: line, Reason: "Year needs a non-zero count"}
		}
		return engine.Activation{Task: engine.Task(sequence.ChangeTheYear), Delta: engine.DateDelta{Years: n}}, nil
	}

	if strings.HasPrefix(head, "0x") {
		r, err := report.ParseSerial(norm)
		if err != nil {
			return engine.Activation{}, &ParseError{Line: line, Reason: err.Error()}
		}
		return engine.Activation{Task: engine.TaskIdle, Manual: &r}, nil
	}

	if len(args) > 0 {
		return engine.Activation{}, &ParseError{Line: line, Reason: "unexpected arguments"}
	}
	task, ok := p.tasks[head]
	if !ok {
		return engine.Activation{}, &ParseError{Line: line, Reason: "unknown task"}
	}
	return engine.Activation{Task: task}, nil
}

func parseDate(args []string) (engine.DateDelta, error) {
	if len(args) == 0 {
		return engine.DateDelta{}, nil
	}
	parts := args
	if len(args) == 1 {
		parts = strings.Split(args[0], "/")
	}
	if len(parts) != 3 {
		return engine.DateDelta{}, fmt.Errorf("date delta must be Y/M/D")
	}
	var v [3]int
	for i, s := range parts {
		n, err := strconv.Atoi(s)
		if err != nil {
			return engine.DateDelta{}, fmt.Errorf("bad date field %q", s)
		}
		v[i] = n
	}
	return engine.DateDelta{Years: v[0], Months: v[1], Days: v[2]}, nil
}

func parseYears(args []string) (int, error) {
	switch len(args) {
	case 0:
		return 0, nil
	case 1:
		n, err := strconv.Atoi(args[0])
		if err != nil {
			return 0, fmt.Errorf("bad year count %q", args[0])
		}
		return max(-engine.MaxYears, min(n, engine.MaxYears)), nil
	}
	return 0, fmt.Errorf("year takes one count")
}
