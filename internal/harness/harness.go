package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/roach88/pokepad/internal/command"
	"github.com/roach88/pokepad/internal/compiler"
	"github.com/roach88/pokepad/internal/engine"
	"github.com/roach88/pokepad/internal/store"
	"github.com/roach88/pokepad/internal/testutil"
)

// SessionID is the fixed session ID every scenario records under.
const SessionID = "harness-session"

// Harness drives one scenario: a real engine on a manual clock, recording
// into a fresh in-memory session log.
type Harness struct {
	store    *store.Store
	engine   *engine.Engine
	clock    *testutil.ManualClock
	parser   *command.Parser
	recorder *store.Recorder
	logger   *slog.Logger
}

// Run executes a test scenario and returns the result.
//
// Execution flow:
// 1. Create fresh in-memory database and session recorder
// 2. Compile and register the scenario's CUE sequences
// 3. Tick the engine from 0 to Duration, applying steps as they come due
// 4. Read the recorded session back as the trace
// 5. Evaluate assertions
//
// Step failures and assertion failures are reported in the Result; the
// returned error is reserved for setup problems.
func Run(scenario *Scenario) (*Result, error) {
	ctx := context.Background()

	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	rec, err := store.NewRecorder(ctx, st, engine.NewFixedGenerator(SessionID), scenario.Name, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to start session: %w", err)
	}

	clock := testutil.NewManualClock()
	opts := []engine.Option{
		engine.WithClock(clock),
		engine.WithTransport(rec),
		engine.WithObserver(rec),
	}
	for _, dir := range scenario.Sequences {
		loaded, errs := compiler.Load(dir, compiler.LoadModeFailFast)
		if len(errs) > 0 {
			return nil, fmt.Errorf("failed to load sequences from %s: %w", dir, errs[0])
		}
		for _, seq := range loaded.Sequences {
			opts = append(opts, engine.WithSequence(seq))
		}
	}
	eng := engine.New(opts...)

	h := &Harness{
		store:    st,
		engine:   eng,
		clock:    clock,
		parser:   command.NewParser(eng.Tasks()),
		recorder: rec,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)), // Suppress logs in tests
	}

	result := NewResult()
	h.play(scenario, result)

	events, err := st.ReadEvents(ctx, rec.SessionID())
	if err != nil {
		return nil, fmt.Errorf("failed to read trace: %w", err)
	}
	result.Trace = traceFrom(events)

	result.Summary, err = st.Summarize(ctx, rec.SessionID())
	if err != nil {
		return nil, fmt.Errorf("failed to summarize session: %w", err)
	}
	if n := rec.Failures(); n > 0 {
		result.AddError(fmt.Sprintf("%d session event(s) could not be recorded", n))
	}

	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}

// play ticks the engine across the scenario's run time.
func (h *Harness) play(scenario *Scenario, result *Result) {
	tick := scenario.Tick
	if tick <= 0 {
		tick = engine.DefaultTick
	}

	next := 0
	for now := time.Duration(0); now <= scenario.Duration; now += tick {
		h.clock.Set(now)
		for next < len(scenario.Steps) && scenario.Steps[next].At <= now {
			h.apply(next, scenario.Steps[next], result)
			next++
		}
		h.engine.Tick()
	}
}

// apply parses and activates one step, checking it against ExpectError.
func (h *Harness) apply(i int, step Step, result *Result) {
	a, err := h.parser.Parse(step.Command)
	if err == nil {
		err = h.engine.Activate(a)
	}

	switch {
	case err != nil && !step.ExpectError:
		result.AddError(fmt.Sprintf("steps[%d] %q: %v", i, step.Command, err))
	case err == nil && step.ExpectError:
		result.AddError(fmt.Sprintf("steps[%d] %q: expected an error", i, step.Command))
	default:
		h.logger.Info("step applied",
			"step", i,
			"command", step.Command,
			"at", step.At,
			"error", err,
		)
	}
}
