package persistence

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/klauspost/compress/zstd"

	"github.com/talgya/collapse-sim/internal/engine"
)

// HistoryEntry is one line of a history file: either a tick's metrics or an event.
type HistoryEntry struct {
	Kind    string          `json:"kind"` // "metrics" or "event"
	Metrics *engine.Metrics `json:"metrics,omitempty"`
	Event   *engine.Event   `json:"event,omitempty"`
}

// HistoryWriter writes a run's step history as zstd-compressed JSON lines.
// It implements engine.Recorder and engine.EventRecorder.
type HistoryWriter struct {
	mu  sync.Mutex
	f   *os.File
	enc *zstd.Encoder
	w   *bufio.Writer
	err error
}

// CreateHistory creates (or truncates) the history file at path.
func CreateHistory(path string) (*HistoryWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	return &HistoryWriter{f: f, enc: enc, w: bufio.NewWriterSize(enc, 128*1024)}, nil
}

// Record appends a metrics line.
func (h *HistoryWriter) Record(m engine.Metrics) {
	h.write(HistoryEntry{Kind: "metrics", Metrics: &m})
}

// RecordEvent appends an event line.
func (h *HistoryWriter) RecordEvent(e engine.Event) {
	h.write(HistoryEntry{Kind: "event", Event: &e})
}

func (h *HistoryWriter) write(entry HistoryEntry) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.err != nil || h.w == nil {
		return
	}
	b, err := json.Marshal(entry)
	if err != nil {
		h.err = err
		return
	}
	if _, err := h.w.Write(b); err != nil {
		h.err = err
		return
	}
	if err := h.w.WriteByte('\n'); err != nil {
		h.err = err
	}
}

// Close flushes and closes the file, returning the first write error.
func (h *HistoryWriter) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.w == nil {
		return h.err
	}
	if err := h.w.Flush(); err != nil && h.err == nil {
		h.err = err
	}
	if err := h.enc.Close(); err != nil && h.err == nil {
		h.err = err
	}
	if err := h.f.Close(); err != nil && h.err == nil {
		h.err = err
	}
	h.w, h.enc, h.f = nil, nil, nil
	return h.err
}

// ReadHistory decodes a history file into its metrics and events.
func ReadHistory(path string) ([]engine.Metrics, []engine.Event, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return nil, nil, err
	}
	defer dec.Close()

	sc := bufio.NewScanner(dec)
	sc.Buffer(make([]byte, 64*1024), 8*1024*1024)

	var metrics []engine.Metrics
	var events []engine.Event
	line := 0
	for sc.Scan() {
		line++
		var entry HistoryEntry
		if err := json.Unmarshal(sc.Bytes(), &entry); err != nil {
			return nil, nil, fmt.Errorf("%s:%d: %w", path, line, err)
		}
		switch {
		case entry.Kind == "metrics" && entry.Metrics != nil:
			metrics = append(metrics, *entry.Metrics)
		case entry.Kind == "event" && entry.Event != nil:
			events = append(events, *entry.Event)
		default:
			return nil, nil, fmt.Errorf("%s:%d: unknown entry kind %q", path, line, entry.Kind)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, nil, err
	}
	return metrics, events, nil
}
