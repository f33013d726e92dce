package engine

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/roach88/pokepad/internal/report"
	"github.com/roach88/pokepad/internal/sequence"
)

// DefaultTick is the scheduling quantum used by Run.
const DefaultTick = time.Millisecond

// Engine is the dispatcher: it holds the active task selector, routes each
// tick to that task's player, and owns the EngineContext.
//
// Thread-safety model:
//   - Enqueue(): safe from any goroutine
//   - Run(), Tick(), Activate(), Register(): must be called from exactly
//     one goroutine (the Run goroutine once Run has started)
//
// INVARIANTS:
//   - at most one player exists, and only it writes ec.Report
//   - every task switch transmits a neutral report before the new task
//     plays its first step
//   - a tick sends once, except a tick that applies activations: each
//     one adds its neutral send ahead of the tick's own send
type Engine struct {
	ec        *EngineContext
	sequences map[Task]*sequence.Sequence
	active    Task
	player    *Player
	queue     *activationQueue
	tick      time.Duration
	observers []Observer
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock replaces the system clock.
func WithClock(c Clock) Option {
	return func(e *Engine) {
		e.ec.Clock = c
	}
}

// WithTransport sets where reports are sent. Default: Discard.
func WithTransport(t Transport) Option {
	return func(e *Engine) {
		e.ec.Transport = t
	}
}

// WithTick sets the Run quantum. Default: 1ms (DefaultTick).
func WithTick(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.tick = d
		}
	}
}

// WithSequence registers an extra task. Invalid sequences are skipped with
// a warning; use Register to get the error.
func WithSequence(seq *sequence.Sequence) Option {
	return func(e *Engine) {
		if err := e.Register(seq); err != nil {
			slog.Warn("sequence not registered", "error", err)
		}
	}
}

// WithObserver adds an observer of task boundaries.
func WithObserver(o Observer) Option {
	return func(e *Engine) {
		e.observers = append(e.observers, o)
	}
}

// New creates an idle Engine with the built-in catalog registered.
func New(opts ...Option) *Engine {
	e := &Engine{
		ec:        NewEngineContext(NewSystemClock(), Discard),
		sequences: make(map[Task]*sequence.Sequence),
		active:    TaskIdle,
		queue:     newActivationQueue(),
		tick:      DefaultTick,
	}
	for _, seq := range sequence.Catalog() {
		e.sequences[Task(seq.Name)] = seq
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Register adds or replaces the sequence for Task(seq.Name).
func (e *Engine) Register(seq *sequence.Sequence) error {
	if seq == nil {
		return &RuntimeError{Code: ErrCodeInvalidSequence, Message: "nil sequence"}
	}
	if Task(seq.Name) == TaskIdle {
		return &RuntimeError{
			Code:    ErrCodeReservedTask,
			Message: "task name is reserved",
			Task:    TaskIdle,
		}
	}
	if err := seq.Validate(); err != nil {
		return NewInvalidSequenceError(seq.Name, err)
	}
	if _, exists := e.sequences[Task(seq.Name)]; exists {
		slog.Info("sequence replaced", "task", seq.Name)
	}
	e.sequences[Task(seq.Name)] = seq
	return nil
}

// Tasks returns the registered task names, sorted.
func (e *Engine) Tasks() []Task {
	out := make([]Task, 0, len(e.sequences))
	for t := range e.sequences {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Sequence returns the sequence registered for t.
func (e *Engine) Sequence(t Task) (*sequence.Sequence, bool) {
	seq, ok := e.sequences[t]
	return seq, ok
}

// Context returns the engine context. Callers must not write it while the
// engine is running.
func (e *Engine) Context() *EngineContext { return e.ec }

// Report returns a copy of the current report.
func (e *Engine) Report() report.Report { return e.ec.Report }

// Active returns the active task.
func (e *Engine) Active() Task { return e.active }

// Player returns the active player, or nil while idle.
func (e *Engine) Player() *Player { return e.player }

// Activate switches tasks immediately.
//
// The report is forced neutral and transmitted, then a fresh player is
// built, which zeroes repeat counters and clears the year anchor. An
// unknown task leaves the engine idle and returns a RuntimeError.
func (e *Engine) Activate(a Activation) error {
	if a.Task == "" {
		a.Task = TaskIdle
	}

	var err error
	seq, ok := e.sequences[a.Task]
	if a.Task != TaskIdle && !ok {
		err = NewUnknownTaskError(a.Task)
		slog.Warn("unknown task, falling back to idle", "task", a.Task)
		a = Activation{Task: TaskIdle}
	}

	now := e.ec.Now()
	for _, o := range e.observers {
		o.TaskActivated(a, now)
	}

	// Consecutive manual reports replace each other without a neutral gap.
	manualOnly := a.Task == TaskIdle && a.Manual != nil && e.active == TaskIdle
	if !manualOnly {
		e.ec.Report = report.Neutral()
		e.ec.send()
	}

	e.active = a.Task
	e.player = nil
	if a.Task == TaskIdle {
		if a.Manual != nil {
			e.ec.Report = *a.Manual
		}
	} else {
		e.player = NewPlayer(seq, a.Delta)
	}

	slog.Info("task activated",
		"task", a.Task,
		"delta", a.Delta.String(),
		"at", now,
	)
	return err
}

// Enqueue submits an activation to be applied at the start of the next
// tick. Thread-safe: may be called from any goroutine.
//
// Returns false if the engine has been stopped.
func (e *Engine) Enqueue(a Activation) bool {
	return e.queue.Enqueue(a)
}

// QueueLen returns the number of pending activations.
func (e *Engine) QueueLen() int {
	return e.queue.Len()
}

// Tick drains pending activations, advances the active player by at most
// one phase, and sends the report.
func (e *Engine) Tick() {
	for {
		a, ok := e.queue.TryDequeue()
		if !ok {
			break
		}
		if err := e.Activate(a); err != nil {
			logActivationError(a, err)
		}
	}

	if e.player != nil && e.player.Tick(e.ec) {
		e.complete()
	}
	e.ec.send()
}

func (e *Engine) complete() {
	task := e.active
	now := e.ec.Now()

	e.player = nil
	e.active = TaskIdle
	e.ec.Report = report.Neutral()

	slog.Info("task completed", "task", task, "at", now)
	for _, o := range e.observers {
		o.TaskCompleted(task, now)
	}
}

// Run ticks the engine every quantum until ctx is cancelled or Stop is
// called.
//
// CRITICAL: Must be called from exactly ONE goroutine.
func (e *Engine) Run(ctx context.Context) error {
	slog.Info("engine starting", "tick", e.tick)

	ticker := time.NewTicker(e.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("engine stopping: context cancelled")
			e.queue.Close()
			return ctx.Err()

		case <-e.queue.Wait():
			// Pending activations are drained by the next tick. The
			// channel is closed once the queue is closed.
			if e.queue.Closed() {
				slog.Info("engine stopping: queue closed")
				return nil
			}

		case <-ticker.C:
			e.Tick()
		}
	}
}

// Stop closes the activation queue, which causes Run to return.
func (e *Engine) Stop() {
	e.queue.Close()
}

func logActivationError(a Activation, err error) {
	slog.Error("activation failed",
		"task", a.Task,
		"activation", a.String(),
		"error", err,
	)
}
