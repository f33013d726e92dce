package compiler

import (
	"errors"
	"testing"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/pokepad/internal/engine"
	"github.com/roach88/pokepad/internal/report"
	"github.com/roach88/pokepad/internal/sequence"
	"github.com/roach88/pokepad/internal/testutil"
)

func compileNamed(t *testing.T, src, path string) (*sequence.Sequence, error) {
	t.Helper()
	ctx := cuecontext.New()
	v := ctx.CompileString(src, cue.Filename("test.cue"))
	require.NoError(t, v.Err())
	return CompileSequence(v.LookupPath(cue.ParsePath(path)))
}

func TestCompileSequenceBasic(t *testing.T) {
	seq, err := compileNamed(t, `
		sequence: walk: {
			steps: [
				{cmd: "LS_UP", hold: 2000},
				{cmd: "A", wait: 200, repeat: 3},
			]
		}
	`, "sequence.walk")
	require.NoError(t, err)

	assert.Equal(t, "walk", seq.Name)
	assert.Equal(t, sequence.KindLoop, seq.Kind)
	require.Equal(t, 4, seq.Len())
	assert.Equal(t, report.LeftStick(report.DirUp), seq.Steps[0].Cmd)
	assert.Equal(t, 2000*time.Millisecond, seq.Steps[0].Hold)
	assert.Zero(t, seq.Steps[0].Wait)
	for _, st := range seq.Steps[1:] {
		assert.Equal(t, report.Press(report.ButtonA), st.Cmd)
		assert.Equal(t, sequence.DefaultHold, st.Hold)
		assert.Equal(t, 200*time.Millisecond, st.Wait)
	}
	assert.Empty(t, seq.Segments)
}

func TestCompileSequenceSegments(t *testing.T) {
	seq, err := compileNamed(t, `
		sequence: "quick-date": {
			kind: "date"
			steps: [
				{cmd: "A", wait: 500},
				{cmd: "HAT_UP", adjust: true, segment: "year"},
				{cmd: "NOP", hold: 0, segment: "year"},
				{cmd: "HAT_UP", adjust: true, segment: "month"},
				{cmd: "NOP", hold: 0, segment: "month"},
				{cmd: "HAT_RIGHT"},
				{cmd: "HAT_UP", adjust: true, segment: "day"},
				{cmd: "NOP", hold: 0, segment: "day"},
			]
		}
	`, `sequence."quick-date"`)
	require.NoError(t, err)

	assert.Equal(t, "quick-date", seq.Name)
	assert.Equal(t, sequence.KindDate, seq.Kind)
	assert.Equal(t, []sequence.Segment{
		{Name: "year", Start: 1, End: 3},
		{Name: "month", Start: 3, End: 5},
		{Name: "day", Start: 6, End: 8},
	}, seq.Segments)
	assert.True(t, seq.Steps[1].Adjust)
	assert.False(t, seq.Steps[2].Adjust)
	assert.Zero(t, seq.Steps[2].Hold)
}

func TestCompileSequenceErrors(t *testing.T) {
	tests := []struct {
		name  string
		src   string
		field string
		msg   string
	}{
		{
			name:  "unknown command",
			src:   `sequence: s: steps: [{cmd: "A"}, {cmd: "JUMP"}]`,
			field: "steps[1].cmd",
			msg:   "unknown command",
		},
		{
			name:  "unknown field",
			src:   `sequence: s: steps: [{cmd: "A", press: 10}]`,
			field: "cue",
			msg:   "not allowed",
		},
		{
			name:  "float hold",
			src:   `sequence: s: steps: [{cmd: "A", hold: 1.5}]`,
			field: "cue",
		},
		{
			name:  "negative wait",
			src:   `sequence: s: steps: [{cmd: "A", wait: -1}]`,
			field: "cue",
		},
		{
			name:  "empty steps",
			src:   `sequence: s: steps: []`,
			field: "cue",
		},
		{
			name:  "bad kind",
			src:   `sequence: s: {kind: "spiral", steps: [{cmd: "A"}]}`,
			field: "cue",
		},
		{
			name:  "year without segments",
			src:   `sequence: s: {kind: "year", steps: [{cmd: "HAT_UP"}]}`,
			field: "sequence",
			msg:   "needs segment",
		},
		{
			name: "segment reopened",
			src: `sequence: s: {steps: [
				{cmd: "A", segment: "x"},
				{cmd: "B"},
				{cmd: "A", segment: "x"},
			]}`,
			field: "sequence",
			msg:   "duplicate segment",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := compileNamed(t, tt.src, "sequence.s")
			require.Error(t, err)

			var ce *CompileError
			require.True(t, errors.As(err, &ce), "want *CompileError, got %T: %v", err, err)
			assert.Equal(t, tt.field, ce.Field)
			if tt.msg != "" {
				assert.Contains(t, ce.Message, tt.msg)
			}
		})
	}
}

func TestCompileErrorPosition(t *testing.T) {
	_, err := compileNamed(t, "sequence: s: steps: [\n\t{cmd: \"JUMP\"},\n]", "sequence.s")
	require.Error(t, err)
	var ce *CompileError
	require.True(t, errors.As(err, &ce))
	assert.True(t, ce.Pos.IsValid())
	assert.Contains(t, err.Error(), "steps[0].cmd")
}

func TestCompileErrorFormat(t *testing.T) {
	err := &CompileError{Field: "steps[0].cmd", Message: "boom"}
	assert.Equal(t, "steps[0].cmd: boom", err.Error())
}

func TestSchemaCompiles(t *testing.T) {
	v, err := Schema(cuecontext.New())
	require.NoError(t, err)
	assert.True(t, v.LookupPath(cue.ParsePath("#Sequence")).Exists())
	assert.True(t, v.LookupPath(cue.ParsePath("#Step")).Exists())
}

// A compiled date sequence plays through the engine like the built-in one.
func TestCompiledDateSequencePlays(t *testing.T) {
	result, errs := Load("testdata/sequences", LoadModeFailFast)
	require.Empty(t, errs)

	var quick *sequence.Sequence
	for _, seq := range result.Sequences {
		if seq.Name == "quick_date" {
			quick = seq
		}
	}
	require.NotNil(t, quick)

	var ups int
	var prev report.Report
	clock := testutil.NewManualClock()
	e := engine.New(
		engine.WithClock(clock),
		engine.WithSequence(quick),
		engine.WithTransport(engine.TransportFunc(func(_ time.Duration, r report.Report) error {
			if r.Hat == report.HatUp && prev.Hat != report.HatUp {
				ups++
			}
			prev = r
			return nil
		})),
	)
	require.NoError(t, e.Activate(engine.Activation{
		Task:  "quick_date",
		Delta: engine.DateDelta{Years: 1, Days: 2},
	}))
	for i := 0; i < 10000 && e.Active() != engine.TaskIdle; i++ {
		e.Tick()
		clock.Advance(10 * time.Millisecond)
	}

	assert.Equal(t, engine.TaskIdle, e.Active())
	assert.Equal(t, 3, ups)
}
