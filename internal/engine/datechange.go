package engine

import "github.com/roach88/pokepad/internal/sequence"

var dateSegments = [...]string{sequence.SegmentYear, sequence.SegmentMonth, sequence.SegmentDay}

// dateStepper repeats each of the year, month and day segments by the
// magnitude of its delta and runs the sequence once.
//
// Each segment is one adjust step followed by a repeat marker. Landing on a
// segment start counts one occurrence; leaving its last step jumps back to
// the start while occurrences are short of the target. A segment with a
// zero target is skipped entirely.
type dateStepper struct {
	n       int
	segs    [len(dateSegments)]sequence.Segment
	target  [len(dateSegments)]int
	done    [len(dateSegments)]int
	reverse [len(dateSegments)]bool
}

func newDateStepper(seq *sequence.Sequence, d DateDelta) *dateStepper {
	s := &dateStepper{n: seq.Len()}
	for k, name := range dateSegments {
		seg, ok := seq.Segment(name)
		if !ok {
			// Validate guarantees the segments; an empty range is inert.
			seg = sequence.Segment{Name: name, Start: -1, End: -1}
		}
		s.segs[k] = seg
	}
	for k, v := range [...]int{d.Years, d.Months, d.Days} {
		s.target[k] = abs(v)
		s.reverse[k] = v < 0
	}
	return s
}

func (s *dateStepper) start() (int, bool) {
	return s.land(0)
}

func (s *dateStepper) advance(i int) (int, bool) {
	for k, seg := range s.segs {
		if seg.Len() > 0 && i == seg.Last() && s.done[k] < s.target[k] {
			return s.land(seg.Start)
		}
	}
	return s.land(i + 1)
}

// land resolves index i, skipping zero-target segments and counting
// occurrences. Running off the end clamps to the last index and completes.
func (s *dateStepper) land(i int) (int, bool) {
	for {
		if i >= s.n {
			return s.n - 1, true
		}
		k := s.segmentStartingAt(i)
		if k < 0 {
			return i, false
		}
		if s.target[k] == 0 {
			i = s.segs[k].End
			continue
		}
		s.done[k]++
		return i, false
	}
}

func (s *dateStepper) segmentStartingAt(i int) int {
	for k, seg := range s.segs {
		if seg.Len() > 0 && seg.Start == i {
			return k
		}
	}
	return -1
}

func (s *dateStepper) reversed(i int) bool {
	for k, seg := range s.segs {
		if seg.Contains(i) {
			return s.reverse[k]
		}
	}
	return false
}

// Repeats returns how many times each of the year, month and day segments
// has been entered.
func (s *dateStepper) Repeats() (years, months, days int) {
	return s.done[0], s.done[1], s.done[2]
}
