// Package engine implements the pokepad command sequence execution engine.
//
// The engine replays timed controller input. It owns the shared controller
// report, routes one tick at a time to the player of the active task, and
// hands the resulting report to the transport once per tick.
//
// ARCHITECTURE:
//
// Tick-Driven Player:
// A Player never sleeps or blocks. Each Tick performs at most one phase
// transition:
//
//	Idle    -> snapshot report, apply step command         -> Holding
//	Holding -> elapsed >= hold: restore snapshot           -> Waiting
//	Waiting -> elapsed >= wait: advance index               -> Idle (or Done)
//
// How the index advances is delegated to a stepper chosen by the
// sequence kind:
//   - loop:  wrap to 0 at the end, run until the task is replaced
//   - date:  repeat the year/month/day segments by the requested deltas
//   - year:  repeat/detour/anchor double jump, one pass per year
//
// Single-Writer Dispatcher:
// Engine is the only writer of EngineContext. Activations arriving from
// other goroutines go through Enqueue and are drained at the start of the
// next tick, inside the Run goroutine.
//
// Replay:
// Replay drives the same Activate/Tick path from a schedule on a manual
// clock, so a recorded session can be re-run without real time passing.
//
// FAILURE POLICY:
// Nothing in the tick path is fatal. Out-of-range indices are clamped,
// transport errors are counted and dropped (the next tick re-sends), and
// unknown tasks fall back to idle.
package engine
