// Package sequence holds the timed command tables that players replay.
//
// A Sequence is an ordered, immutable list of Steps. Sequences are built
// with a Builder so that control-flow positions used by the date and year
// players are named Segments computed during construction instead of
// literal indices:
//
//	b := sequence.NewBuilder("changethedate", sequence.KindDate)
//	b.Add(sequence.Tap(report.Press(report.ButtonHome), 1000))
//	b.Begin(sequence.SegmentYear)
//	b.Add(sequence.Adjust(report.HatPress(report.HatUp), 50, 50), sequence.Marker())
//	b.End()
//	seq, err := b.Build()
package sequence

import (
	"fmt"
	"time"

	"github.com/roach88/pokepad/internal/report"
)

// Kind selects how a sequence is played back.
type Kind string

const (
	// KindLoop wraps to index 0 at the end and runs until replaced.
	KindLoop Kind = "loop"
	// KindDate repeats the year/month/day segments and runs once.
	KindDate Kind = "date"
	// KindYear uses the repeat/detour/anchor double jump and runs once.
	KindYear Kind = "year"
)

// ValidKinds lists the accepted playback kinds.
var ValidKinds = map[Kind]bool{
	KindLoop: true,
	KindDate: true,
	KindYear: true,
}

// Segment names used by the date and year players.
const (
	SegmentYear  = "year"
	SegmentMonth = "month"
	SegmentDay   = "day"

	SegmentRepeat = "repeat"
	SegmentDetour = "detour"
	SegmentAnchor = "anchor"
)

// DefaultHold is the press duration used by Tap.
const DefaultHold = 50 * time.Millisecond

// Step is one timed command: apply Cmd, hold it for Hold, release, then
// wait Wait before the next step.
type Step struct {
	Cmd  report.Command `json:"cmd"`
	Hold time.Duration  `json:"hold"`
	Wait time.Duration  `json:"wait"`

	// Adjust marks the value-changing step of a date/year segment. The
	// player mirrors it when the requested delta is negative.
	Adjust bool `json:"adjust,omitempty"`
}

// Tap presses cmd for DefaultHold then waits waitMS milliseconds.
func Tap(cmd report.Command, waitMS int) Step {
	return Step{Cmd: cmd, Hold: DefaultHold, Wait: ms(waitMS)}
}

// Hold presses cmd for holdMS then waits waitMS milliseconds.
func Hold(cmd report.Command, holdMS, waitMS int) Step {
	return Step{Cmd: cmd, Hold: ms(holdMS), Wait: ms(waitMS)}
}

// Adjust is Hold with the Adjust flag set.
func Adjust(cmd report.Command, holdMS, waitMS int) Step {
	s := Hold(cmd, holdMS, waitMS)
	s.Adjust = true
	return s
}

// Marker is a zero-duration no-op used to close repeat segments.
func Marker() Step {
	return Step{Cmd: report.Nop()}
}

func ms(n int) time.Duration {
	return time.Duration(n) * time.Millisecond
}

// Segment is a named half-open index range [Start, End).
type Segment struct {
	Name  string `json:"name"`
	Start int    `json:"start"`
	End   int    `json:"end"`
}

// Len returns the number of steps in the segment.
func (s Segment) Len() int { return s.End - s.Start }

// Contains reports whether index i lies inside the segment.
func (s Segment) Contains(i int) bool { return i >= s.Start && i < s.End }

// Last returns the index of the segment's final step.
func (s Segment) Last() int { return s.End - 1 }

// Sequence is an immutable list of steps plus its named segments.
type Sequence struct {
	Name     string    `json:"name"`
	Kind     Kind      `json:"kind"`
	Steps    []Step    `json:"steps"`
	Segments []Segment `json:"segments,omitempty"`
}

// Len returns the number of steps.
func (s *Sequence) Len() int { return len(s.Steps) }

// Segment looks up a segment by name.
func (s *Sequence) Segment(name string) (Segment, bool) {
	for _, seg := range s.Segments {
		if seg.Name == name {
			return seg, true
		}
	}
	return Segment{}, false
}

// Duration returns the time one pass over the steps takes, ignoring
// tick granularity.
func (s *Sequence) Duration() time.Duration {
	var d time.Duration
	for _, st := range s.Steps {
		d += st.Hold + st.Wait
	}
	return d
}

// Validate checks the invariants the players rely on.
func (s *Sequence) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("sequence name is required")
	}
	if !ValidKinds[s.Kind] {
		return fmt.Errorf("sequence %s: unknown kind %q", s.Name, s.Kind)
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("sequence %s: no steps", s.Name)
	}
	for i, st := range s.Steps {
		if st.Hold < 0 || st.Wait < 0 {
			return fmt.Errorf("sequence %s: step %d: negative duration", s.Name, i)
		}
	}

	seen := make(map[string]bool)
	for _, seg := range s.Segments {
		if seen[seg.Name] {
			return fmt.Errorf("sequence %s: duplicate segment %q", s.Name, seg.Name)
		}
		seen[seg.Name] = true
		if seg.Start < 0 || seg.End > len(s.Steps) || seg.Start >= seg.End {
			return fmt.Errorf("sequence %s: segment %q has invalid range [%d,%d)", s.Name, seg.Name, seg.Start, seg.End)
		}
	}

	switch s.Kind {
	case KindDate:
		return s.validateDate()
	case KindYear:
		return s.validateYear()
	}
	return nil
}

func (s *Sequence) validateDate() error {
	var prev Segment
	for i, name := range []string{SegmentYear, SegmentMonth, SegmentDay} {
		seg, ok := s.Segment(name)
		if !ok {
			return fmt.Errorf("sequence %s: date sequence needs segment %q", s.Name, name)
		}
		if seg.Len() < 2 {
			return fmt.Errorf("sequence %s: segment %q needs a command and a repeat marker", s.Name, name)
		}
		if i > 0 && seg.Start < prev.End {
			return fmt.Errorf("sequence %s: segment %q overlaps %q", s.Name, name, prev.Name)
		}
		prev = seg
	}
	return nil
}

func (s *Sequence) validateYear() error {
	repeat, ok := s.Segment(SegmentRepeat)
	if !ok {
		return fmt.Errorf("sequence %s: year sequence needs segment %q", s.Name, SegmentRepeat)
	}
	detour, ok := s.Segment(SegmentDetour)
	if !ok {
		return fmt.Errorf("sequence %s: year sequence needs segment %q", s.Name, SegmentDetour)
	}
	anchor, ok := s.Segment(SegmentAnchor)
	if !ok {
		return fmt.Errorf("sequence %s: year sequence needs segment %q", s.Name, SegmentAnchor)
	}
	if repeat.End != detour.Start || detour.End != anchor.Start {
		return fmt.Errorf("sequence %s: segments %q, %q and %q must be adjacent and in order",
			s.Name, SegmentRepeat, SegmentDetour, SegmentAnchor)
	}
	if anchor.Len() != 1 {
		return fmt.Errorf("sequence %s: segment %q must be a single step", s.Name, SegmentAnchor)
	}
	return nil
}
