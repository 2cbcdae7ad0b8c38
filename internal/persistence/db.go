// Package persistence stores runs, their per-tick metrics, and events in
// SQLite, and exports step history as compressed JSON lines.
package persistence

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/talgya/collapse-sim/internal/engine"
)

// DB wraps a SQLite connection holding run records.
type DB struct {
	conn *sqlx.DB
}

// Run is one row of the runs table.
type Run struct {
	ID         string `db:"id" json:"id"`
	Seed       int64  `db:"seed" json:"seed"`
	Households int    `db:"households" json:"households"`
	Firms      int    `db:"firms" json:"firms"`
	Steps      int    `db:"steps" json:"steps"`
	StartedAt  string `db:"started_at" json:"started_at"`
	FinishedAt string `db:"finished_at" json:"finished_at,omitempty"`
	ReportJSON string `db:"report_json" json:"-"`
}

// Report decodes the stored end-of-run report. ok is false for unfinished runs.
func (r Run) Report() (engine.Metrics, bool, error) {
	var m engine.Metrics
	if r.ReportJSON == "" {
		return m, false, nil
	}
	if err := json.Unmarshal([]byte(r.ReportJSON), &m); err != nil {
		return m, false, fmt.Errorf("decode report for run %s: %w", r.ID, err)
	}
	return m, true, nil
}

// NewRunID returns a fresh random run identifier.
func NewRunID() string {
	return uuid.NewString()
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		seed INTEGER NOT NULL,
		households INTEGER NOT NULL,
		firms INTEGER NOT NULL,
		steps INTEGER NOT NULL DEFAULT 0,
		started_at TEXT NOT NULL,
		finished_at TEXT,
		report_json TEXT
	);

	CREATE TABLE IF NOT EXISTS metrics (
		run_id TEXT NOT NULL,
		tick INTEGER NOT NULL,
		unrest INTEGER NOT NULL,
		inflation REAL NOT NULL,
		employment_rate REAL NOT NULL,
		avg_firm_profit REAL NOT NULL,
		firm_profit_total REAL NOT NULL,
		total_demand REAL NOT NULL,
		gdp REAL NOT NULL,
		gdp_growth_rate REAL NOT NULL,
		gini_coefficient REAL NOT NULL,
		PRIMARY KEY (run_id, tick)
	);

	CREATE TABLE IF NOT EXISTS events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		tick INTEGER NOT NULL,
		description TEXT NOT NULL,
		category TEXT NOT NULL,
		meta_json TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_events_run_tick ON events(run_id, tick);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// CreateRun registers a new run started now.
func (db *DB) CreateRun(id string, seed int64, households, firms int) error {
	_, err := db.conn.Exec(
		"INSERT INTO runs (id, seed, households, firms, started_at) VALUES (?, ?, ?, ?, ?)",
		id, seed, households, firms, time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("create run %s: %w", id, err)
	}
	return nil
}

// FinishRun stores the end-of-run report and the number of ticks executed.
func (db *DB) FinishRun(id string, steps int, report engine.Metrics) error {
	raw, err := json.Marshal(report)
	if err != nil {
		return err
	}
	res, err := db.conn.Exec(
		"UPDATE runs SET steps = ?, finished_at = ?, report_json = ? WHERE id = ?",
		steps, time.Now().UTC().Format(time.RFC3339), string(raw), id,
	)
	if err != nil {
		return fmt.Errorf("finish run %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("finish run %s: no such run", id)
	}
	slog.Info("run saved", "run", id, "steps", steps)
	return nil
}

// GetRun loads a single run.
func (db *DB) GetRun(id string) (Run, error) {
	var r Run
	err := db.conn.Get(&r, `SELECT id, seed, households, firms, steps, started_at,
		COALESCE(finished_at, '') AS finished_at, COALESCE(report_json, '') AS report_json
		FROM runs WHERE id = ?`, id)
	return r, err
}

// ListRuns returns runs, most recent first.
func (db *DB) ListRuns(limit int) ([]Run, error) {
	var runs []Run
	err := db.conn.Select(&runs, `SELECT id, seed, households, firms, steps, started_at,
		COALESCE(finished_at, '') AS finished_at, COALESCE(report_json, '') AS report_json
		FROM runs ORDER BY started_at DESC, rowid DESC LIMIT ?`, limit)
	return runs, err
}

// SaveMetrics appends per-tick rows for a run. Re-saving a tick replaces it.
func (db *DB) SaveMetrics(runID string, rows []engine.Metrics) error {
	if len(rows) == 0 {
		return nil
	}

	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Preparex(`INSERT OR REPLACE INTO metrics
		(run_id, tick, unrest, inflation, employment_rate, avg_firm_profit,
		 firm_profit_total, total_demand, gdp, gdp_growth_rate, gini_coefficient)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, m := range rows {
		_, err := stmt.Exec(
			runID, m.Tick, m.Unrest, m.Inflation, m.EmploymentRate, m.AvgFirmProfit,
			m.FirmProfitTotal, m.TotalDemand, m.GDP, m.GDPGrowthRate, m.GiniCoefficient,
		)
		if err != nil {
			return fmt.Errorf("insert metrics tick %d: %w", m.Tick, err)
		}
	}

	return tx.Commit()
}

// LoadMetrics returns a run's metrics in tick order.
func (db *DB) LoadMetrics(runID string) ([]engine.Metrics, error) {
	var rows []engine.Metrics
	err := db.conn.Select(&rows, `SELECT tick, unrest, inflation, employment_rate,
		avg_firm_profit, firm_profit_total, total_demand, gdp, gdp_growth_rate, gini_coefficient
		FROM metrics WHERE run_id = ? ORDER BY tick`, runID)
	return rows, err
}

// SaveEvents appends events to a run.
func (db *DB) SaveEvents(runID string, events []engine.Event) error {
	if len(events) == 0 {
		return nil
	}

	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, e := range events {
		var meta any
		if len(e.Meta) > 0 {
			raw, err := json.Marshal(e.Meta)
			if err != nil {
				return fmt.Errorf("encode event meta: %w", err)
			}
			meta = string(raw)
		}
		_, err := tx.Exec(
			"INSERT INTO events (run_id, tick, description, category, meta_json) VALUES (?, ?, ?, ?, ?)",
			runID, e.Tick, e.Description, e.Category, meta,
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// RecentEvents returns a run's most recent events, newest first.
func (db *DB) RecentEvents(runID string, limit int) ([]engine.Event, error) {
	var events []engine.Event
	err := db.conn.Select(&events,
		"SELECT tick, description, category FROM events WHERE run_id = ? ORDER BY id DESC LIMIT ?",
		runID, limit,
	)
	return events, err
}
