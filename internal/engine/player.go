package engine

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/roach88/pokepad/internal/report"
	"github.com/roach88/pokepad/internal/sequence"
)

// Phase is the player's position within the current step.
type Phase uint8

const (
	PhaseIdle Phase = iota
	PhaseHolding
	PhaseWaiting
	PhaseDone
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseHolding:
		return "holding"
	case PhaseWaiting:
		return "waiting"
	case PhaseDone:
		return "done"
	default:
		return fmt.Sprintf("Phase(%d)", uint8(p))
	}
}

// stepper decides where playback goes after a step finishes.
type stepper interface {
	// start returns the first index to play.
	start() (int, bool)
	// advance returns the index after i, and true once the task is complete.
	advance(i int) (int, bool)
	// reversed reports whether the adjust step at i plays mirrored.
	reversed(i int) bool
}

// Player is the three-phase playback state machine for one sequence.
// A fresh Player is built on every activation.
type Player struct {
	seq   *sequence.Sequence
	steps stepper

	index int
	phase Phase
	since time.Duration
	saved report.Report

	advances int
}

// NewPlayer builds a player for seq. delta feeds the date and year
// steppers and is ignored by loop sequences.
func NewPlayer(seq *sequence.Sequence, delta DateDelta) *Player {
	p := &Player{seq: seq}
	switch seq.Kind {
	case sequence.KindDate:
		p.steps = newDateStepper(seq, delta)
	case sequence.KindYear:
		p.steps = newYearStepper(seq, delta.Years)
	default:
		p.steps = loopStepper{n: seq.Len()}
	}
	if seq.Len() == 0 {
		return p
	}
	var done bool
	p.index, done = p.steps.start()
	if done {
		p.phase = PhaseDone
	}
	return p
}

// Sequence returns the sequence being played.
func (p *Player) Sequence() *sequence.Sequence { return p.seq }

// Index returns the current step index.
func (p *Player) Index() int { return p.index }

// Phase returns the current phase.
func (p *Player) Phase() Phase { return p.phase }

// Done reports whether the sequence has run to completion.
func (p *Player) Done() bool { return p.phase == PhaseDone }

// Advances counts completed steps since activation.
func (p *Player) Advances() int { return p.advances }

// Tick performs at most one phase transition against ec.Report and
// reports whether the player is done.
func (p *Player) Tick(ec *EngineContext) bool {
	n := p.seq.Len()
	if p.phase == PhaseDone || n == 0 {
		return p.phase == PhaseDone
	}
	if p.index >= n || p.index < 0 {
		slog.Debug("step index out of range, clamping",
			"sequence", p.seq.Name,
			"index", p.index,
			"len", n,
		)
		p.index = max(0, min(p.index, n-1))
	}

	step := p.seq.Steps[p.index]
	now := ec.Now()

	switch p.phase {
	case PhaseIdle:
		p.saved = ec.Report
		cmd := step.Cmd
		if step.Adjust && p.steps.reversed(p.index) {
			cmd = cmd.Mirror()
		}
		cmd.Apply(&ec.Report)
		p.since = now
		p.phase = PhaseHolding

	case PhaseHolding:
		if now-p.since < step.Hold {
			return false
		}
		ec.Report = p.saved
		p.since = now
		p.phase = PhaseWaiting

	case PhaseWaiting:
		if now-p.since < step.Wait {
			return false
		}
		next, done := p.steps.advance(p.index)
		p.index = next
		p.advances++
		if done {
			p.phase = PhaseDone
			return true
		}
		p.phase = PhaseIdle
	}
	return false
}

// loopStepper wraps to the first step and never completes.
type loopStepper struct {
	n int
}

func (s loopStepper) start() (int, bool) { return 0, false }

func (s loopStepper) advance(i int) (int, bool) {
	return (i + 1) % s.n, false
}

func (s loopStepper) reversed(int) bool { return false }
