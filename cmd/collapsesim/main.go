// Command collapsesim runs the socioeconomic collapse simulation.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/dustin/go-humanize"

	"github.com/talgya/collapse-sim/internal/api"
	"github.com/talgya/collapse-sim/internal/config"
	"github.com/talgya/collapse-sim/internal/engine"
	"github.com/talgya/collapse-sim/internal/persistence"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	var (
		configPath = flag.String("config", "", "path to a YAML config (defaults apply when empty)")
		steps      = flag.Int("steps", -1, "ticks to run (overrides config)")
		seed       = flag.Int64("seed", 0, "random seed (overrides config; 0 keeps the configured seed)")
		serve      = flag.Bool("serve", false, "serve the HTTP API while running")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if *steps >= 0 {
		cfg.Steps = *steps
	}
	if *seed != 0 {
		cfg.Seed = *seed
	}

	// ── Simulation ────────────────────────────────────────────────────
	sim, err := engine.NewSimulation(cfg.Params())
	if err != nil {
		slog.Error("failed to initialize simulation", "error", err)
		os.Exit(1)
	}
	runID := persistence.NewRunID()
	slog.Info("run created", "run", runID, "seed", sim.Seed(), "steps", cfg.Steps)

	hist := engine.NewHistory()
	sim.AddRecorder(hist)

	// ── Run store ─────────────────────────────────────────────────────
	var db *persistence.DB
	var runRec *persistence.RunRecorder
	if cfg.Run.DBPath != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Run.DBPath), 0o755); err != nil {
			slog.Error("failed to create data directory", "error", err)
			os.Exit(1)
		}
		db, err = persistence.Open(cfg.Run.DBPath)
		if err != nil {
			slog.Error("failed to open database", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		if err := db.CreateRun(runID, sim.Seed(), cfg.Households, cfg.Firms); err != nil {
			slog.Error("failed to register run", "error", err)
			os.Exit(1)
		}
		runRec = persistence.NewRunRecorder(db, runID, persistence.DefaultFlushEvery)
		sim.AddRecorder(runRec)
		slog.Info("database opened", "path", cfg.Run.DBPath)
	}

	// ── History export ────────────────────────────────────────────────
	var hw *persistence.HistoryWriter
	if cfg.Run.HistoryPath != "" {
		hw, err = persistence.CreateHistory(cfg.Run.HistoryPath)
		if err != nil {
			slog.Error("failed to create history file", "error", err)
			os.Exit(1)
		}
		sim.AddRecorder(hw)
	}

	eng := engine.NewEngine(sim)
	eng.Interval = cfg.Interval()
	eng.Schedule = cfg.Schedule

	// ── HTTP API ──────────────────────────────────────────────────────
	if *serve {
		if cfg.API.AdminKey == "" {
			slog.Warn("COLLAPSE_ADMIN_KEY not set; admin POST endpoints are disabled")
		}
		srv := &api.Server{
			Eng:      eng,
			History:  hist,
			DB:       db,
			RunID:    runID,
			Port:     cfg.API.Port,
			AdminKey: cfg.API.AdminKey,
		}
		srv.Start()
		fmt.Printf("API: http://localhost:%d/api/v1/status\n", cfg.API.Port)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("received signal, shutting down", "signal", sig)
		eng.Stop()
	}()

	// ── Run ───────────────────────────────────────────────────────────
	executed := eng.Run(cfg.Steps)

	var report engine.Metrics
	eng.View(func(s *engine.Simulation) { report = s.Report() })

	if runRec != nil {
		if err := runRec.Flush(); err != nil {
			slog.Error("final flush failed", "error", err)
		}
		if err := db.FinishRun(runID, executed, report); err != nil {
			slog.Error("failed to save report", "error", err)
		}
	}
	if hw != nil {
		if err := hw.Close(); err != nil {
			slog.Error("failed to close history file", "error", err)
		} else {
			slog.Info("history written", "path", cfg.Run.HistoryPath, "ticks", hist.Len())
		}
	}

	fmt.Printf("\nRun %s: %d ticks (%s), %d shocks, %d recalibrations.\n",
		runID, executed, engine.SimTime(report.Tick), sim.Shocks.Fired, sim.Recalibrations)
	for _, v := range report.Values() {
		fmt.Printf("  %-16s %s\n", v.Key+":", humanize.CommafWithDigits(v.Value, 3))
	}
}
