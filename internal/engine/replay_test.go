package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/pokepad/internal/report"
	"github.com/roach88/pokepad/internal/sequence"
	"github.com/roach88/pokepad/internal/testutil"
)

// changes reduces a send log to the report changes.
func changes(sent []sentReport) []sentReport {
	var out []sentReport
	for i, s := range sent {
		if i == 0 || s.report != sent[i-1].report {
			out = append(out, s)
		}
	}
	return out
}

func TestReplay_MashAThenEnd(t *testing.T) {
	e, clock, tr, obs := newTestEngine()

	schedule := []Scheduled{
		{At: 0, Activation: Activation{Task: sequence.MashA}},
		{At: 100 * time.Millisecond, Activation: Activation{Task: TaskIdle}},
	}
	require.NoError(t, e.Replay(clock, schedule, 120*time.Millisecond))

	assert.Equal(t, []Activation{{Task: sequence.MashA}, {Task: TaskIdle}}, obs.activated)
	assert.Equal(t, TaskIdle, e.Active())
	assert.Equal(t, 120*time.Millisecond, clock.Now())

	var at []time.Duration
	for _, c := range changes(tr.sent) {
		at = append(at, c.at)
	}
	ms := time.Millisecond
	assert.Equal(t, []time.Duration{0, 0, 20 * ms, 41 * ms, 61 * ms, 82 * ms, 100 * ms}, at)
	assert.True(t, tr.last().IsNeutral())
}

func TestReplay_Deterministic(t *testing.T) {
	schedule := []Scheduled{
		{At: 0, Activation: Activation{Task: sequence.ChangeTheDate, Delta: DateDelta{Months: -1, Days: 2}}},
		{At: 3 * time.Second, Activation: Activation{Task: TaskIdle, Manual: &report.Report{Hat: report.HatCenter, LX: 128, LY: 128, RX: 128, RY: 128, Buttons: report.ButtonX}}},
		{At: 3 * time.Second, Activation: Activation{Task: sequence.MashA}},
	}

	run := func() []sentReport {
		e, clock, tr, _ := newTestEngine(WithTick(2 * time.Millisecond))
		require.NoError(t, e.Replay(clock, schedule, 4*time.Second))
		return tr.sent
	}
	assert.Equal(t, run(), run())
}

func TestReplay_Errors(t *testing.T) {
	e, clock, _, _ := newTestEngine()

	err := e.Replay(testutil.NewManualClock(), nil, time.Millisecond)
	assert.ErrorContains(t, err, "engine clock")

	err = e.Replay(clock, []Scheduled{
		{At: 10 * time.Millisecond, Activation: Activation{Task: sequence.MashA}},
		{At: 5 * time.Millisecond, Activation: Activation{Task: TaskIdle}},
	}, time.Second)
	assert.ErrorContains(t, err, "is before")

	advanced := testutil.NewManualClock()
	advanced.Set(7 * time.Millisecond)
	moved := New(WithClock(advanced), WithTransport(&captureTransport{}))
	err = moved.Replay(advanced, nil, time.Millisecond)
	assert.ErrorContains(t, err, "already at 7ms")

	// Unknown tasks do not stop the replay.
	err = e.Replay(clock, []Scheduled{
		{At: 0, Activation: Activation{Task: "jump"}},
		{At: 0, Activation: Activation{Task: sequence.MashA}},
	}, 10*time.Millisecond)
	require.Error(t, err)
	assert.True(t, IsUnknownTaskError(err))
	assert.Equal(t, Task(sequence.MashA), e.Active())
}
