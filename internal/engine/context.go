package engine

import (
	"errors"
	"log/slog"
	"time"

	"github.com/roach88/pokepad/internal/report"
)

// ErrNotReady is returned by transports whose link cannot accept a report
// right now. The engine drops the send; the next tick re-sends.
var ErrNotReady = errors.New("transport not ready")

// Transport hands a complete report snapshot to the link.
type Transport interface {
	Send(at time.Duration, r report.Report) error
}

// TransportFunc adapts a function to the Transport interface.
type TransportFunc func(at time.Duration, r report.Report) error

// Send calls f.
func (f TransportFunc) Send(at time.Duration, r report.Report) error {
	return f(at, r)
}

// Discard is a Transport that accepts and drops every report.
var Discard Transport = TransportFunc(func(time.Duration, report.Report) error { return nil })

// EngineContext is the state shared by every player: the controller
// report, the clock and the transport. It is owned by the Engine and
// passed by reference to whichever player is active.
type EngineContext struct {
	Report    report.Report
	Clock     Clock
	Transport Transport

	// Sent and Dropped count transport outcomes.
	Sent    int
	Dropped int
}

// NewEngineContext creates a context holding the neutral report.
func NewEngineContext(clock Clock, transport Transport) *EngineContext {
	return &EngineContext{
		Report:    report.Neutral(),
		Clock:     clock,
		Transport: transport,
	}
}

// Now reads the context clock.
func (c *EngineContext) Now() time.Duration {
	return c.Clock.Now()
}

// send transmits the current report. Failures are never propagated.
func (c *EngineContext) send() {
	at := c.Clock.Now()
	if err := c.Transport.Send(at, c.Report); err != nil {
		c.Dropped++
		if !errors.Is(err, ErrNotReady) {
			slog.Debug("report send failed", "at", at, "error", err)
		}
		return
	}
	c.Sent++
}
