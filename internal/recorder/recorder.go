// Package recorder persists applied frames as zstd-compressed JSON lines and
// plays them back as a snapshot source.
package recorder

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"

	"warehouse-viz/internal/snapshot"
)

// Header is the first line of every recording.
type Header struct {
	Session   uuid.UUID                 `json:"session"`
	Config    snapshot.SimulationConfig `json:"config"`
	StartedAt time.Time                 `json:"started_at"`
}

type record struct {
	Header *Header         `json:"header,omitempty"`
	Frame  *snapshot.Frame `json:"frame,omitempty"`
}

// Writer appends frames to one recording file.
type Writer struct {
	path string

	mu  sync.Mutex
	f   *os.File
	enc *zstd.Encoder
	w   *bufio.Writer
}

// PathFor returns the recording path of a session inside dir.
func PathFor(dir string, session uuid.UUID) string {
	return filepath.Join(dir, fmt.Sprintf("session-%s.jsonl.zst", session))
}

// Create starts a recording for session in dir and writes its header.
func Create(dir string, session uuid.UUID, cfg snapshot.SimulationConfig) (*Writer, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	path := PathFor(dir, session)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, err
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	w := &Writer{path: path, f: f, enc: enc, w: bufio.NewWriterSize(enc, 128*1024)}
	hdr := Header{Session: session, Config: cfg, StartedAt: time.Now().UTC()}
	if err := w.write(record{Header: &hdr}); err != nil {
		_ = w.Close()
		return nil, err
	}
	return w, nil
}

// Path returns the file being written.
func (w *Writer) Path() string { return w.path }

// Record appends one frame.
func (w *Writer) Record(f snapshot.Frame) error {
	return w.write(record{Frame: &f})
}

func (w *Writer) write(r record) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.w == nil {
		return fmt.Errorf("recorder: %s is closed", w.path)
	}
	b, err := json.Marshal(r)
	if err != nil {
		return err
	}
	if _, err := w.w.Write(b); err != nil {
		return err
	}
	if err := w.w.WriteByte('\n'); err != nil {
		return err
	}
	if err := w.w.Flush(); err != nil {
		return err
	}
	return w.enc.Flush()
}

// Close finishes the zstd stream and closes the file.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	var err1 error
	if w.w != nil {
		_ = w.w.Flush()
	}
	if w.enc != nil {
		err1 = w.enc.Close()
		w.enc = nil
	}
	if w.f != nil {
		if err := w.f.Close(); err1 == nil {
			err1 = err
		}
		w.f = nil
	}
	w.w = nil
	return err1
}

// ReadFile loads a whole recording.
func ReadFile(path string) (Header, []snapshot.Frame, error) {
	var hdr Header
	f, err := os.Open(path)
	if err != nil {
		return hdr, nil, err
	}
	defer f.Close()
	dec, err := zstd.NewReader(f)
	if err != nil {
		return hdr, nil, err
	}
	defer dec.Close()

	sc := bufio.NewScanner(dec)
	sc.Buffer(make([]byte, 0, 64*1024), 16<<20)
	var frames []snapshot.Frame
	line := 0
	for sc.Scan() {
		line++
		var r record
		if err := json.Unmarshal(sc.Bytes(), &r); err != nil {
			return hdr, nil, fmt.Errorf("%s:%d: %w", path, line, err)
		}
		switch {
		case r.Header != nil:
			hdr = *r.Header
		case r.Frame != nil:
			frames = append(frames, *r.Frame)
		}
	}
	if err := sc.Err(); err != nil {
		return hdr, nil, fmt.Errorf("%s: %w", path, err)
	}
	if hdr.Session == uuid.Nil {
		return hdr, nil, fmt.Errorf("%s: missing header", path)
	}
	return hdr, frames, nil
}
