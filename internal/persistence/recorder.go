package persistence

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/talgya/collapse-sim/internal/engine"
)

// DefaultFlushEvery is the number of ticks buffered before a metrics write.
const DefaultFlushEvery = 100

// RunRecorder streams a run's metrics and events into the database in
// batches. It implements engine.Recorder and engine.EventRecorder.
type RunRecorder struct {
	db         *DB
	runID      string
	flushEvery int

	mu      sync.Mutex
	metrics []engine.Metrics
	events  []engine.Event
	err     error
}

// NewRunRecorder creates a recorder for runID. flushEvery <= 0 uses
// DefaultFlushEvery.
func NewRunRecorder(db *DB, runID string, flushEvery int) *RunRecorder {
	if flushEvery <= 0 {
		flushEvery = DefaultFlushEvery
	}
	return &RunRecorder{db: db, runID: runID, flushEvery: flushEvery}
}

// Record buffers m and writes the batch once it is full.
func (r *RunRecorder) Record(m engine.Metrics) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.metrics = append(r.metrics, m)
	if len(r.metrics) >= r.flushEvery {
		r.flushLocked()
	}
}

// RecordEvent buffers e until the next flush.
func (r *RunRecorder) RecordEvent(e engine.Event) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

// Flush writes everything buffered and returns the first error seen so far.
func (r *RunRecorder) Flush() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.flushLocked()
	return r.err
}

func (r *RunRecorder) flushLocked() {
	if err := r.db.SaveMetrics(r.runID, r.metrics); err != nil {
		slog.Error("metrics flush failed", "run", r.runID, "rows", len(r.metrics), "error", err)
		r.err = errors.Join(r.err, err)
	}
	if err := r.db.SaveEvents(r.runID, r.events); err != nil {
		slog.Error("event flush failed", "run", r.runID, "events", len(r.events), "error", err)
		r.err = errors.Join(r.err, err)
	}
	r.metrics = r.metrics[:0]
	r.events = r.events[:0]
}
