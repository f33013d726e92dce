package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/pokepad/internal/report"
	"github.com/roach88/pokepad/internal/sequence"
	"github.com/roach88/pokepad/internal/testutil"
)

type sentReport struct {
	at     time.Duration
	report report.Report
}

type captureTransport struct {
	sent []sentReport
	err  error
}

func (c *captureTransport) Send(at time.Duration, r report.Report) error {
	if c.err != nil {
		return c.err
	}
	c.sent = append(c.sent, sentReport{at: at, report: r})
	return nil
}

func (c *captureTransport) last() report.Report {
	return c.sent[len(c.sent)-1].report
}

type recordingObserver struct {
	activated []Activation
	completed []Task
	notify    chan Activation
}

func (o *recordingObserver) TaskActivated(a Activation, _ time.Duration) {
	o.activated = append(o.activated, a)
	if o.notify != nil {
		o.notify <- a
	}
}

func (o *recordingObserver) TaskCompleted(t Task, _ time.Duration) {
	o.completed = append(o.completed, t)
}

func newTestEngine(opts ...Option) (*Engine, *testutil.ManualClock, *captureTransport, *recordingObserver) {
	clock := testutil.NewManualClock()
	tr := &captureTransport{}
	obs := &recordingObserver{}
	base := []Option{WithClock(clock), WithTransport(tr), WithObserver(obs)}
	return New(append(base, opts...)...), clock, tr, obs
}

func TestEngine_New(t *testing.T) {
	e, _, _, _ := newTestEngine()

	assert.Equal(t, TaskIdle, e.Active())
	assert.Nil(t, e.Player())
	assert.True(t, e.Report().IsNeutral())

	tasks := e.Tasks()
	for _, seq := range sequence.Catalog() {
		assert.Contains(t, tasks, Task(seq.Name))
	}
	assert.NotContains(t, tasks, TaskIdle)
}

func TestEngine_IdleResendsReport(t *testing.T) {
	e, clock, tr, _ := newTestEngine()
	for i := 0; i < 3; i++ {
		e.Tick()
		clock.Advance(time.Millisecond)
	}
	require.Len(t, tr.sent, 3)
	for _, s := range tr.sent {
		assert.True(t, s.report.IsNeutral())
	}
	assert.Equal(t, 3, e.Context().Sent)
}

func TestEngine_ActivateForcesNeutral(t *testing.T) {
	e, clock, tr, obs := newTestEngine()

	require.NoError(t, e.Activate(Activation{Task: Task(sequence.MashA)}))
	e.Tick()
	require.Equal(t, report.ButtonA, tr.last().Buttons)

	// Switch mid-hold: the A press is abandoned and a neutral report goes out.
	clock.Advance(5 * time.Millisecond)
	require.NoError(t, e.Activate(Activation{Task: Task(sequence.PickupBerry)}))
	assert.True(t, tr.last().IsNeutral())
	assert.Equal(t, Task(sequence.PickupBerry), e.Active())
	assert.Equal(t, 0, e.Player().Index())
	assert.Equal(t, PhaseIdle, e.Player().Phase())

	require.Len(t, obs.activated, 2)
	assert.Equal(t, Task(sequence.MashA), obs.activated[0].Task)
}

func TestEngine_ReactivationResetsCounters(t *testing.T) {
	e, clock, _, _ := newTestEngine()

	require.NoError(t, e.Activate(Activation{Task: Task(sequence.ChangeTheYear), Delta: DateDelta{Years: 4}}))
	for i := 0; i < 800; i++ {
		e.Tick()
		clock.Advance(10 * time.Millisecond)
	}
	first := e.Player()
	require.NotNil(t, first)

	require.NoError(t, e.Activate(Activation{Task: Task(sequence.ChangeTheYear), Delta: DateDelta{Years: 4}}))
	ys := e.Player().steps.(*yearStepper)
	assert.NotSame(t, first, e.Player())
	assert.Equal(t, 4, ys.remaining)
	assert.Equal(t, noAnchor, ys.resume)
	assert.Equal(t, 0, e.Player().Index())
}

func TestEngine_UnknownTaskFallsBackToIdle(t *testing.T) {
	e, _, tr, obs := newTestEngine()
	require.NoError(t, e.Activate(Activation{Task: Task(sequence.MashA)}))
	e.Tick()

	err := e.Activate(Activation{Task: "spin_to_win"})
	require.Error(t, err)
	assert.True(t, IsUnknownTaskError(err))
	assert.Equal(t, TaskIdle, e.Active())
	assert.Nil(t, e.Player())
	assert.True(t, tr.last().IsNeutral())
	assert.Equal(t, TaskIdle, obs.activated[len(obs.activated)-1].Task)
}

func TestEngine_ManualPassThrough(t *testing.T) {
	e, _, tr, _ := newTestEngine()

	r1 := report.Neutral()
	report.Press(report.ButtonX).Apply(&r1)
	require.NoError(t, e.Activate(Activation{Task: TaskIdle, Manual: &r1}))
	sentAfterFirst := len(tr.sent)
	e.Tick()
	assert.Equal(t, r1, tr.last())

	r2 := report.Neutral()
	report.LeftStick(report.DirUp).Apply(&r2)
	require.NoError(t, e.Activate(Activation{Task: TaskIdle, Manual: &r2}))
	assert.Equal(t, sentAfterFirst+1, len(tr.sent), "no neutral between manual reports")
	e.Tick()
	assert.Equal(t, r2, tr.last())
}

func TestEngine_CompletionReturnsToIdle(t *testing.T) {
	e, clock, tr, obs := newTestEngine()
	require.NoError(t, e.Activate(Activation{Task: Task(sequence.ChangeTheDate), Delta: DateDelta{Days: 1}}))

	for i := 0; i < 10000 && e.Active() != TaskIdle; i++ {
		e.Tick()
		clock.Advance(10 * time.Millisecond)
	}
	assert.Equal(t, TaskIdle, e.Active())
	assert.Nil(t, e.Player())
	assert.Equal(t, []Task{Task(sequence.ChangeTheDate)}, obs.completed)
	assert.True(t, tr.last().IsNeutral())
}

func TestEngine_EnqueueAppliedOnTick(t *testing.T) {
	e, _, tr, _ := newTestEngine()

	assert.True(t, e.Enqueue(Activation{Task: Task(sequence.AAABB)}))
	assert.Equal(t, 1, e.QueueLen())
	assert.Equal(t, TaskIdle, e.Active())

	e.Tick()
	assert.Equal(t, 0, e.QueueLen())
	assert.Equal(t, Task(sequence.AAABB), e.Active())
	assert.Equal(t, report.ButtonA, tr.last().Buttons)
}

func TestEngine_SendsPerTick(t *testing.T) {
	e, clock, tr, _ := newTestEngine()

	e.Tick()
	assert.Len(t, tr.sent, 1)

	// Applying an activation adds its neutral send ahead of the tick's.
	e.Enqueue(Activation{Task: sequence.MashA})
	clock.Set(time.Millisecond)
	e.Tick()
	require.Len(t, tr.sent, 3)
	assert.True(t, tr.sent[1].report.IsNeutral())
	assert.Equal(t, report.ButtonA, tr.sent[2].report.Buttons)

	clock.Set(2 * time.Millisecond)
	e.Tick()
	assert.Len(t, tr.sent, 4)
}

func TestEngine_TransportFailuresDropped(t *testing.T) {
	e, _, tr, _ := newTestEngine()
	tr.err = ErrNotReady

	require.NoError(t, e.Activate(Activation{Task: Task(sequence.MashA)}))
	assert.NotPanics(t, func() {
		for i := 0; i < 3; i++ {
			e.Tick()
		}
	})
	assert.Equal(t, 4, e.Context().Dropped)
	assert.Zero(t, e.Context().Sent)

	tr.err = errors.New("cable unplugged")
	e.Tick()
	assert.Equal(t, 5, e.Context().Dropped)

	tr.err = nil
	e.Tick()
	assert.Equal(t, 1, e.Context().Sent)
}

func TestEngine_Register(t *testing.T) {
	e, _, _, _ := newTestEngine()

	custom := sequence.NewBuilder("spin", sequence.KindLoop).
		Add(sequence.Hold(report.RightStick(report.DirRight), 100, 0)).
		MustBuild()
	require.NoError(t, e.Register(custom))
	assert.Contains(t, e.Tasks(), Task("spin"))

	err := e.Register(&sequence.Sequence{Name: "idle", Kind: sequence.KindLoop, Steps: custom.Steps})
	assert.True(t, IsInvalidSequenceError(err))

	err = e.Register(&sequence.Sequence{Name: "broken", Kind: sequence.KindDate, Steps: custom.Steps})
	require.Error(t, err)
	assert.True(t, IsInvalidSequenceError(err))
	assert.Contains(t, err.Error(), "INVALID_SEQUENCE")

	assert.Error(t, e.Register(nil))
}

func TestEngine_WithSequence(t *testing.T) {
	custom := sequence.NewBuilder("hold_l", sequence.KindLoop).
		Add(sequence.Hold(report.Press(report.ButtonL), 500, 0)).
		MustBuild()
	e, _, tr, _ := newTestEngine(WithSequence(custom), WithSequence(&sequence.Sequence{}))

	require.NoError(t, e.Activate(Activation{Task: "hold_l"}))
	e.Tick()
	assert.Equal(t, report.ButtonL, tr.last().Buttons)
}

// Scenario: mash_a at 20ms/20ms ticked every millisecond for 100ms.
func TestEngine_MashAScenario(t *testing.T) {
	e, clock, tr, _ := newTestEngine()
	require.NoError(t, e.Activate(Activation{Task: Task(sequence.MashA)}))
	require.True(t, tr.last().IsNeutral(), "neutral at t=0 before the first press")

	for ms := 0; ms <= 100; ms++ {
		clock.Set(time.Duration(ms) * time.Millisecond)
		e.Tick()
		if e.Player().Phase() == PhaseWaiting {
			assert.True(t, tr.last().IsNeutral(), "t=%dms", ms)
		}
	}

	var presses, releases int
	pressed := false
	for _, s := range tr.sent {
		on := report.Press(report.ButtonA).ActiveIn(s.report)
		if on && !pressed {
			presses++
		}
		if !on && pressed {
			releases++
		}
		pressed = on
	}
	assert.GreaterOrEqual(t, presses, 2)
	assert.GreaterOrEqual(t, releases, 2)
	assert.Equal(t, 3, presses)
}

// Scenario: changetheyear with a zero delta completes without the jump.
func TestEngine_YearZeroScenario(t *testing.T) {
	e, clock, _, obs := newTestEngine()
	require.NoError(t, e.Activate(Activation{Task: Task(sequence.ChangeTheYear)}))
	ys := e.Player().steps.(*yearStepper)

	for i := 0; i < 20000 && e.Active() != TaskIdle; i++ {
		e.Tick()
		clock.Advance(10 * time.Millisecond)
	}
	assert.Equal(t, []Task{Task(sequence.ChangeTheYear)}, obs.completed)
	assert.Zero(t, ys.jumps)
}

func TestEngine_RunStopsOnCancel(t *testing.T) {
	obs := &recordingObserver{notify: make(chan Activation, 4)}
	e := New(WithTick(time.Millisecond), WithObserver(obs))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- e.Run(ctx) }()

	require.True(t, e.Enqueue(Activation{Task: Task(sequence.MashA)}))
	select {
	case a := <-obs.notify:
		assert.Equal(t, Task(sequence.MashA), a.Task)
	case <-time.After(2 * time.Second):
		t.Fatal("activation not applied")
	}

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return")
	}
	assert.False(t, e.Enqueue(Activation{Task: TaskIdle}))
}

func TestEngine_RunStopsOnStop(t *testing.T) {
	e := New(WithTick(time.Millisecond))

	done := make(chan error, 1)
	go func() { done <- e.Run(context.Background()) }()
	e.Stop()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return")
	}
}
