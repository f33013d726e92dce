// Package store provides SQLite-backed storage for pokepad session logs.
//
// A session is one run of the engine. Its events form an append-only log:
//   - activate: a task was selected (with its date delta or manual report)
//   - complete: a run-once task finished and the engine returned to idle
//   - report:   the transmitted controller report changed
//
// # Ordering
//
// Events are ordered by a per-session seq counter assigned by the
// Recorder, never by wall time. All reads use ORDER BY seq ASC.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
