// Package transport provides engine.Transport implementations: serial text
// lines, compressed JSONL capture files, an in-memory capture and a tee.
//
// The engine sends a report on every tick. Except for Tee, every transport
// here forwards only reports that differ from the previous one.
package transport

import (
	"errors"
	"sync"
	"time"

	"github.com/roach88/pokepad/internal/engine"
	"github.com/roach88/pokepad/internal/report"
)

// Record is one report change.
type Record struct {
	AtMS   int64  `json:"at_ms"`
	Report string `json:"report"`
}

// NewRecord builds a record in the serial text format.
func NewRecord(at time.Duration, r report.Report) Record {
	return Record{AtMS: at.Milliseconds(), Report: r.String()}
}

// Parse decodes the record's report.
func (r Record) Parse() (report.Report, error) {
	return report.ParseSerial(r.Report)
}

// changes remembers the last report seen.
type changes struct {
	seen bool
	last report.Report
}

// changed reports whether r differs from the previous report and remembers it.
func (c *changes) changed(r report.Report) bool {
	if c.seen && c.last == r {
		return false
	}
	c.seen, c.last = true, r
	return true
}

// Tee sends every report to each transport in order. All transports are
// tried; their errors are joined.
func Tee(ts ...engine.Transport) engine.Transport {
	return engine.TransportFunc(func(at time.Duration, r report.Report) error {
		var errs []error
		for _, t := range ts {
			if err := t.Send(at, r); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	})
}

// Capture keeps report changes in memory.
//
// Thread-safety: Capture is safe for concurrent use via internal mutex.
type Capture struct {
	mu      sync.Mutex
	changes changes
	records []Record
}

// NewCapture creates an empty capture.
func NewCapture() *Capture {
	return &Capture{}
}

// Send records r if it differs from the previous report.
func (c *Capture) Send(at time.Duration, r report.Report) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.changes.changed(r) {
		c.records = append(c.records, NewRecord(at, r))
	}
	return nil
}

// Records returns a copy of the recorded changes.
func (c *Capture) Records() []Record {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Record, len(c.records))
	copy(out, c.records)
	return out
}
