package transport

import (
	"bufio"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/roach88/pokepad/internal/report"
)

// Serial writes report changes as text lines ("0x0013 8 80 80 80 80"),
// the format controller bridges read from a serial port.
type Serial struct {
	mu      sync.Mutex
	w       *bufio.Writer
	changes changes
}

// NewSerial writes to w, typically a serial device or stdout.
func NewSerial(w io.Writer) *Serial {
	return &Serial{w: bufio.NewWriter(w)}
}

// Send writes r if it differs from the previous report.
func (s *Serial) Send(_ time.Duration, r report.Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.changes.changed(r) {
		return nil
	}
	if _, err := fmt.Fprintln(s.w, r.String()); err != nil {
		// Forget the report so the next tick retries it.
		s.changes.seen = false
		return fmt.Errorf("serial write: %w", err)
	}
	if err := s.w.Flush(); err != nil {
		s.changes.seen = false
		return fmt.Errorf("serial flush: %w", err)
	}
	return nil
}
