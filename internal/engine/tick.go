// Package engine provides the tick-based collapse simulation: agent behavior,
// shocks, macro recalibration, metrics, and the paced run loop.
package engine

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// Calendar: one tick is one day; a year is four recalibration quarters.
const (
	TicksPerQuarter = RecalibrationInterval
	TicksPerYear    = 4 * TicksPerQuarter
)

// Engine drives a Simulation forward for a fixed number of ticks.
type Engine struct {
	Interval time.Duration    // Pause between ticks; 0 runs unthrottled
	Schedule []ScheduledShock // Shocks fired after their tick completes

	OnStep func(m Metrics) // Called after every tick, outside the state lock

	mu      sync.RWMutex
	sim     *Simulation
	running atomic.Bool
}

// NewEngine creates an engine around sim.
func NewEngine(sim *Simulation) *Engine {
	return &Engine{sim: sim}
}

// Run advances up to steps ticks. Blocks until done or Stop() is called and
// returns the number of ticks executed.
func (e *Engine) Run(steps int) int {
	e.running.Store(true)
	defer e.running.Store(false)

	start := e.sim.Tick
	slog.Info("simulation engine started", "tick", start, "steps", steps, "interval", e.Interval)

	done := 0
	for done < steps && e.running.Load() {
		began := time.Now()

		e.mu.Lock()
		m := e.sim.Step()
		e.fireScheduled(m.Tick)
		e.mu.Unlock()
		done++

		if e.OnStep != nil {
			e.OnStep(m)
		}

		if e.Interval > 0 {
			if elapsed := time.Since(began); elapsed < e.Interval {
				time.Sleep(e.Interval - elapsed)
			}
		}
	}

	slog.Info("simulation engine stopped", "tick", e.sim.Tick, "executed", done)
	return done
}

// Stop halts the loop after the current tick.
func (e *Engine) Stop() {
	e.running.Store(false)
}

// Running reports whether Run is in progress.
func (e *Engine) Running() bool {
	return e.running.Load()
}

// View runs fn with read access to the simulation between ticks.
func (e *Engine) View(fn func(s *Simulation)) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	fn(e.sim)
}

// Do runs fn with exclusive access to the simulation between ticks.
func (e *Engine) Do(fn func(s *Simulation)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	fn(e.sim)
}

func (e *Engine) fireScheduled(tick uint64) {
	for _, sc := range e.Schedule {
		if sc.Tick != tick {
			continue
		}
		if _, err := e.sim.TriggerShock(sc.Name); err != nil {
			slog.Error("scheduled shock failed", "tick", tick, "name", sc.Name, "error", err)
		}
	}
}

// SimTime renders a tick as a calendar string, e.g. "Q2 Day 15, Year 1".
func SimTime(tick uint64) string {
	year := tick/TicksPerYear + 1
	dayOfYear := tick % TicksPerYear
	quarter := dayOfYear/TicksPerQuarter + 1
	day := dayOfYear%TicksPerQuarter + 1
	return fmt.Sprintf("Q%d Day %d, Year %d", quarter, day, year)
}
