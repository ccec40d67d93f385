// Package recording persists simulation runs: a zstd-compressed JSONL tick log
// plus a sqlite index of runs and conversions
package recording

import (
	"bufio"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pkg/errors"

	"github.com/lixenwraith/hvz/engine"
)

// TickEntry is one line of the tick log
type TickEntry struct {
	RunID  string            `json:"run_id"`
	Report engine.StepReport `json:"report"`
	// Keyframe carries the full arena state on selected ticks
	Keyframe *engine.Snapshot `json:"keyframe,omitempty"`
}

// TickWriter appends JSONL entries to a single zstd stream
type TickWriter struct {
	mu  sync.Mutex
	f   *os.File
	enc *zstd.Encoder
	w   *bufio.Writer
}

// CreateTickWriter creates path (and its directory), truncating an existing file
func CreateTickWriter(path string) (*TickWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, errors.Wrap(err, "create log dir")
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, errors.Wrap(err, "open tick log")
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return nil, errors.Wrap(err, "zstd encoder")
	}
	return &TickWriter{
		f:   f,
		enc: enc,
		w:   bufio.NewWriterSize(enc, 128*1024),
	}, nil
}

// Write appends one entry; data reaches the file on Flush or Close
func (w *TickWriter) Write(e TickEntry) error {
	b, err := json.Marshal(e)
	if err != nil {
		return errors.Wrap(err, "encode tick")
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.w == nil {
		return ErrClosed
	}
	if _, err := w.w.Write(b); err != nil {
		return errors.Wrap(err, "write tick")
	}
	return w.w.WriteByte('\n')
}

// Flush pushes buffered entries through the encoder
func (w *TickWriter) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.w == nil {
		return ErrClosed
	}
	if err := w.w.Flush(); err != nil {
		return errors.Wrap(err, "flush tick log")
	}
	return errors.Wrap(w.enc.Flush(), "flush zstd")
}

func (w *TickWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.w == nil {
		return nil
	}

	var first error
	if err := w.w.Flush(); err != nil {
		first = errors.Wrap(err, "flush tick log")
	}
	if err := w.enc.Close(); err != nil && first == nil {
		first = errors.Wrap(err, "close zstd")
	}
	if err := w.f.Close(); err != nil && first == nil {
		first = errors.Wrap(err, "close tick log")
	}
	w.w, w.enc, w.f = nil, nil, nil
	return first
}

// TickReader decodes a tick log written by TickWriter
type TickReader struct {
	f   *os.File
	dec *zstd.Decoder
	sc  *bufio.Scanner
}

func OpenTickReader(path string) (*TickReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open tick log")
	}
	dec, err := zstd.NewReader(f)
	if err != nil {
		_ = f.Close()
		return nil, errors.Wrap(err, "zstd decoder")
	}
	sc := bufio.NewScanner(dec)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	return &TickReader{f: f, dec: dec, sc: sc}, nil
}

// Next returns the next entry or io.EOF at the end of the log
func (r *TickReader) Next() (TickEntry, error) {
	var e TickEntry
	for r.sc.Scan() {
		line := r.sc.Bytes()
		if len(line) == 0 {
			continue
		}
		if err := json.Unmarshal(line, &e); err != nil {
			return e, errors.Wrap(err, "decode tick")
		}
		return e, nil
	}
	if err := r.sc.Err(); err != nil {
		return e, errors.Wrap(err, "read tick log")
	}
	return e, io.EOF
}

func (r *TickReader) Close() error {
	r.dec.Close()
	return r.f.Close()
}
