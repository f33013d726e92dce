package transport

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"

	"github.com/roach88/pokepad/internal/report"
)

// ZstdJSONL writes report changes as zstd-compressed JSON lines, one
// Record per line.
type ZstdJSONL struct {
	mu      sync.Mutex
	closer  io.Closer
	enc     *zstd.Encoder
	w       *bufio.Writer
	changes changes
}

// NewZstdJSONL compresses into w. Close flushes the encoder but does not
// close w.
func NewZstdJSONL(w io.Writer) (*ZstdJSONL, error) {
	enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}
	return &ZstdJSONL{
		enc: enc,
		w:   bufio.NewWriterSize(enc, 64*1024),
	}, nil
}

// CreateZstdJSONL creates (or truncates) the file at path, making parent
// directories as needed. Close also closes the file.
func CreateZstdJSONL(path string) (*ZstdJSONL, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create capture dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create capture: %w", err)
	}
	z, err := NewZstdJSONL(f)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	z.closer = f
	return z, nil
}

// Send appends a record if r differs from the previous report.
func (z *ZstdJSONL) Send(at time.Duration, r report.Report) error {
	z.mu.Lock()
	defer z.mu.Unlock()

	if z.w == nil {
		return fmt.Errorf("capture closed")
	}
	if !z.changes.changed(r) {
		return nil
	}
	b, err := json.Marshal(NewRecord(at, r))
	if err != nil {
		return err
	}
	if _, err := z.w.Write(b); err != nil {
		return err
	}
	return z.w.WriteByte('\n')
}

// Close flushes buffered records and finishes the zstd frame.
func (z *ZstdJSONL) Close() error {
	z.mu.Lock()
	defer z.mu.Unlock()

	if z.w == nil {
		return nil
	}
	err := z.w.Flush()
	if cerr := z.enc.Close(); err == nil {
		err = cerr
	}
	if z.closer != nil {
		if cerr := z.closer.Close(); err == nil {
			err = cerr
		}
	}
	z.w, z.enc, z.closer = nil, nil, nil
	return err
}

// ReadZstdJSONL decodes every record from a capture stream.
func ReadZstdJSONL(r io.Reader) ([]Record, error) {
	dec, err := zstd.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}
	defer dec.Close()

	var out []Record
	sc := bufio.NewScanner(dec)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	for sc.Scan() {
		if len(sc.Bytes()) == 0 {
			continue
		}
		var rec Record
		if err := json.Unmarshal(sc.Bytes(), &rec); err != nil {
			return nil, fmt.Errorf("decode record %d: %w", len(out)+1, err)
		}
		out = append(out, rec)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read capture: %w", err)
	}
	return out, nil
}
