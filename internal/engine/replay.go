package engine

import (
	"errors"
	"fmt"
	"time"
)

// Scheduled is an activation applied at a fixed engine time.
type Scheduled struct {
	At         time.Duration `json:"at"`
	Activation Activation    `json:"activation"`
}

// SettableClock is a Clock the caller moves. testutil.ManualClock
// satisfies it.
type SettableClock interface {
	Clock
	Set(d time.Duration)
}

// Replay drives the engine through schedule without real time passing.
//
// The clock, which must be the engine's clock and still read 0, is set to
// 0, tick, 2*tick and so on up to and including until. Entries due at or before a tick
// are activated immediately before that tick, in order. Because player
// timing depends only on clock readings, the same schedule always yields
// the same report stream.
//
// Replay must not run concurrently with Run. Failed activations do not
// stop the replay; their errors are joined into the result.
func (e *Engine) Replay(clock SettableClock, schedule []Scheduled, until time.Duration) error {
	if clock == nil || clock != e.ec.Clock {
		return errors.New("replay: clock must be the engine clock")
	}
	if now := clock.Now(); now != 0 {
		return fmt.Errorf("replay: clock already at %v, want 0", now)
	}
	for i := 1; i < len(schedule); i++ {
		if schedule[i].At < schedule[i-1].At {
			return fmt.Errorf("replay: entry %d at %v is before entry %d at %v",
				i, schedule[i].At, i-1, schedule[i-1].At)
		}
	}

	var errs []error
	next := 0
	for now := time.Duration(0); now <= until; now += e.tick {
		clock.Set(now)
		for next < len(schedule) && schedule[next].At <= now {
			if err := e.Activate(schedule[next].Activation); err != nil {
				errs = append(errs, fmt.Errorf("entry %d: %w", next, err))
			}
			next++
		}
		e.Tick()
	}
	return errors.Join(errs...)
}
