package engine

import "github.com/roach88/pokepad/internal/sequence"

// noAnchor marks that no resume anchor has been captured yet.
const noAnchor = -1

// yearStepper plays the repeat segment once per requested year.
//
// Reaching detour.Start with years remaining captures the resume anchor
// (first time only) and jumps to the anchor step. The anchor step consumes
// one year and jumps back to repeat.Start while years remain. Once the
// count reaches zero, playback clamps to resume-1 and completes there.
//
// With no years requested the detour is never taken: the sequence runs to
// its end and completes. Completion always resets the index to 0.
type yearStepper struct {
	n      int
	repeat sequence.Segment
	detour sequence.Segment
	anchor sequence.Segment

	remaining int
	resume    int
	reverse   bool

	// jumps counts detour.Start -> anchor jumps.
	jumps int
}

func newYearStepper(seq *sequence.Sequence, years int) *yearStepper {
	years = clampYears(years)
	s := &yearStepper{
		n:         seq.Len(),
		remaining: abs(years),
		resume:    noAnchor,
		reverse:   years < 0,
	}
	s.repeat, _ = seq.Segment(sequence.SegmentRepeat)
	s.detour, _ = seq.Segment(sequence.SegmentDetour)
	s.anchor, _ = seq.Segment(sequence.SegmentAnchor)
	return s
}

func (s *yearStepper) start() (int, bool) {
	return s.resolve(0)
}

func (s *yearStepper) advance(i int) (int, bool) {
	return s.resolve(i + 1)
}

func (s *yearStepper) resolve(i int) (int, bool) {
	for {
		if s.resume != noAnchor && s.remaining == 0 {
			if i > s.resume-1 {
				i = s.resume - 1
			}
			if i == s.resume-1 {
				s.resume = noAnchor
				return 0, true
			}
		}
		if i >= s.n {
			s.resume = noAnchor
			return 0, true
		}
		switch {
		case s.remaining > 0 && i == s.detour.Start && s.detour.Len() > 0:
			if s.resume == noAnchor {
				s.resume = i
			}
			s.jumps++
			i = s.anchor.Start
			continue
		case s.remaining > 0 && i == s.anchor.Start && s.anchor.Len() > 0:
			s.remaining--
			if s.remaining > 0 {
				i = s.repeat.Start
			} else {
				i = s.anchor.Start + 1
			}
			continue
		}
		return i, false
	}
}

func (s *yearStepper) reversed(i int) bool {
	return s.reverse && s.repeat.Contains(i)
}
