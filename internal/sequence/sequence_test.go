package sequence

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/pokepad/internal/report"
)

func TestStepConstructors(t *testing.T) {
	tap := Tap(report.Press(report.ButtonA), 100)
	assert.Equal(t, DefaultHold, tap.Hold)
	assert.Equal(t, 100*time.Millisecond, tap.Wait)
	assert.False(t, tap.Adjust)

	adj := Adjust(report.HatPress(report.HatUp), 30, 40)
	assert.True(t, adj.Adjust)
	assert.Equal(t, 30*time.Millisecond, adj.Hold)
	assert.Equal(t, 40*time.Millisecond, adj.Wait)

	m := Marker()
	assert.Equal(t, report.KindNop, m.Cmd.Kind)
	assert.Zero(t, m.Hold)
	assert.Zero(t, m.Wait)
}

func TestSegment(t *testing.T) {
	s := Segment{Name: "x", Start: 3, End: 5}
	assert.Equal(t, 2, s.Len())
	assert.Equal(t, 4, s.Last())
	assert.True(t, s.Contains(3))
	assert.True(t, s.Contains(4))
	assert.False(t, s.Contains(5))
	assert.False(t, s.Contains(2))
}

func TestSequence_Duration(t *testing.T) {
	seq := &Sequence{Name: "d", Kind: KindLoop, Steps: []Step{
		Hold(report.Press(report.ButtonA), 20, 30),
		Hold(report.Press(report.ButtonB), 5, 0),
	}}
	assert.Equal(t, 55*time.Millisecond, seq.Duration())
}

func TestSequence_Validate(t *testing.T) {
	a := Hold(report.Press(report.ButtonA), 10, 10)

	tests := []struct {
		name    string
		seq     Sequence
		wantErr string
	}{
		{"no name", Sequence{Kind: KindLoop, Steps: []Step{a}}, "name is required"},
		{"bad kind", Sequence{Name: "s", Kind: "spin", Steps: []Step{a}}, "unknown kind"},
		{"no steps", Sequence{Name: "s", Kind: KindLoop}, "no steps"},
		{"negative", Sequence{Name: "s", Kind: KindLoop, Steps: []Step{{Hold: -1}}}, "negative duration"},
		{
			"duplicate segment",
			Sequence{Name: "s", Kind: KindLoop, Steps: []Step{a, a},
				Segments: []Segment{{Name: "x", Start: 0, End: 1}, {Name: "x", Start: 1, End: 2}}},
			"duplicate segment",
		},
		{
			"out of range",
			Sequence{Name: "s", Kind: KindLoop, Steps: []Step{a},
				Segments: []Segment{{Name: "x", Start: 0, End: 3}}},
			"invalid range",
		},
		{
			"date missing day",
			Sequence{Name: "s", Kind: KindDate, Steps: []Step{a, a, a, a},
				Segments: []Segment{{Name: SegmentYear, Start: 0, End: 2}, {Name: SegmentMonth, Start: 2, End: 4}}},
			`needs segment "day"`,
		},
		{
			"date short segment",
			Sequence{Name: "s", Kind: KindDate, Steps: []Step{a, a, a, a, a},
				Segments: []Segment{
					{Name: SegmentYear, Start: 0, End: 2},
					{Name: SegmentMonth, Start: 2, End: 4},
					{Name: SegmentDay, Start: 4, End: 5},
				}},
			"needs a command and a repeat marker",
		},
		{
			"year not adjacent",
			Sequence{Name: "s", Kind: KindYear, Steps: []Step{a, a, a, a},
				Segments: []Segment{
					{Name: SegmentRepeat, Start: 0, End: 1},
					{Name: SegmentDetour, Start: 2, End: 3},
					{Name: SegmentAnchor, Start: 3, End: 4},
				}},
			"must be adjacent",
		},
		{
			"year wide anchor",
			Sequence{Name: "s", Kind: KindYear, Steps: []Step{a, a, a, a},
				Segments: []Segment{
					{Name: SegmentRepeat, Start: 0, End: 1},
					{Name: SegmentDetour, Start: 1, End: 2},
					{Name: SegmentAnchor, Start: 2, End: 4},
				}},
			"single step",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.seq.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestCatalog(t *testing.T) {
	names := []string{MashA, AAABB, AutoLeague, InfWatt, PickupBerry, ChangeTheDate, ChangeTheYear}
	cat := Catalog()
	require.Len(t, cat, len(names))
	for i, name := range names {
		assert.Equal(t, name, cat[i].Name)
		require.NoError(t, cat[i].Validate())
	}

	seq, ok := Lookup(MashA)
	require.True(t, ok)
	require.Equal(t, 1, seq.Len())
	assert.Equal(t, 20*time.Millisecond, seq.Steps[0].Hold)
	assert.Equal(t, 20*time.Millisecond, seq.Steps[0].Wait)

	_, ok = Lookup("nope")
	assert.False(t, ok)
}

func TestCatalog_ReturnsCopy(t *testing.T) {
	cat := Catalog()
	cat[0] = nil
	assert.NotNil(t, Catalog()[0])
}

func TestCatalog_DateSegments(t *testing.T) {
	seq, ok := Lookup(ChangeTheDate)
	require.True(t, ok)
	assert.Equal(t, KindDate, seq.Kind)

	for _, name := range []string{SegmentYear, SegmentMonth, SegmentDay} {
		seg, ok := seq.Segment(name)
		require.True(t, ok, name)
		assert.Equal(t, 2, seg.Len())
		assert.True(t, seq.Steps[seg.Start].Adjust)
		assert.Equal(t, report.KindNop, seq.Steps[seg.Last()].Cmd.Kind)
	}
}

func TestCatalog_YearSegments(t *testing.T) {
	seq, ok := Lookup(ChangeTheYear)
	require.True(t, ok)
	assert.Equal(t, KindYear, seq.Kind)

	repeat, _ := seq.Segment(SegmentRepeat)
	detour, _ := seq.Segment(SegmentDetour)
	anchor, _ := seq.Segment(SegmentAnchor)
	assert.Equal(t, repeat.End, detour.Start)
	assert.Equal(t, detour.End, anchor.Start)
	assert.Less(t, anchor.Start, seq.Len()-1, "tail follows the anchor")

	assert.Equal(t, Segment{Name: SegmentRepeat, Start: 22, End: 30}, repeat)
	assert.Equal(t, Segment{Name: SegmentDetour, Start: 30, End: 38}, detour)
	assert.Equal(t, Segment{Name: SegmentAnchor, Start: 38, End: 39}, anchor)
	assert.Equal(t, 41, seq.Len())

	var adjusts int
	for i := repeat.Start; i < repeat.End; i++ {
		if seq.Steps[i].Adjust {
			adjusts++
		}
	}
	assert.Equal(t, 1, adjusts)
}
