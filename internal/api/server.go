// Package api provides the HTTP API for observing and steering a run.
// GET endpoints are public (read-only observation).
// POST endpoints require a bearer token (admin control plane).
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/talgya/collapse-sim/internal/engine"
	"github.com/talgya/collapse-sim/internal/persistence"
	"github.com/talgya/collapse-sim/internal/topology"
)

// Server serves simulation state over HTTP.
type Server struct {
	Eng      *engine.Engine
	History  *engine.History // Optional; backs /metrics for the live run
	DB       *persistence.DB // Optional; backs /runs and /metrics?run=
	RunID    string
	Port     int
	AdminKey string // Bearer token for POST endpoints. Empty = POST disabled.

	// Requests per minute per client on POST endpoints. 0 uses 30.
	AdminRate int
}

// Handler builds the routed handler, CORS included.
func (s *Server) Handler() http.Handler {
	rate := s.AdminRate
	if rate <= 0 {
		rate = 30
	}
	adminLimiter := NewRateLimiter(rate, time.Minute)

	mux := http.NewServeMux()

	// Public endpoints (GET, read-only).
	mux.HandleFunc("/api/v1/status", s.handleStatus)
	mux.HandleFunc("/api/v1/metrics", s.handleMetrics)
	mux.HandleFunc("/api/v1/report", s.handleReport)
	mux.HandleFunc("/api/v1/events", s.handleEvents)
	mux.HandleFunc("/api/v1/graph/social", s.handleGraph(func(sim *engine.Simulation) *topology.Graph {
		return sim.SocialGraph()
	}))
	mux.HandleFunc("/api/v1/graph/policy", s.handleGraph(func(sim *engine.Simulation) *topology.Graph {
		return sim.PolicyGraph()
	}))
	mux.HandleFunc("/api/v1/topology", s.handleTopology)
	mux.HandleFunc("/api/v1/runs", s.handleRuns)

	// Admin endpoints (POST, require bearer token).
	mux.HandleFunc("/api/v1/shock", s.adminOnly(RateLimitMiddleware(adminLimiter, s.handleShock)))
	mux.HandleFunc("/api/v1/rumor", s.adminOnly(RateLimitMiddleware(adminLimiter, s.handleRumor)))

	return corsMiddleware(mux)
}

// Start begins serving the HTTP API in a goroutine.
func (s *Server) Start() {
	addr := fmt.Sprintf(":%d", s.Port)
	slog.Info("HTTP API starting", "addr", addr, "admin_auth", s.AdminKey != "")

	go func() {
		if err := http.ListenAndServe(addr, s.Handler()); err != nil {
			slog.Error("HTTP server error", "error", err)
		}
	}()
}

// corsMiddleware adds CORS headers for allowed frontend origins.
// Set CORS_ORIGINS env var to a comma-separated list of allowed origins.
// Localhost dev servers are always allowed.
func corsMiddleware(next http.Handler) http.Handler {
	allowedOrigins := map[string]bool{
		"http://localhost:5173": true,
		"http://localhost:4173": true,
		"http://localhost:3000": true,
	}
	if env := os.Getenv("CORS_ORIGINS"); env != "" {
		for _, origin := range strings.Split(env, ",") {
			origin = strings.TrimSpace(origin)
			if origin != "" {
				allowedOrigins[origin] = true
			}
		}
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if allowedOrigins[origin] {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// checkBearerToken returns true if the request has a valid admin bearer token.
func (s *Server) checkBearerToken(r *http.Request) bool {
	auth := r.Header.Get("Authorization")
	return strings.HasPrefix(auth, "Bearer ") && strings.TrimPrefix(auth, "Bearer ") == s.AdminKey
}

// adminOnly restricts a handler to authenticated POST requests.
func (s *Server) adminOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if s.AdminKey == "" {
			http.Error(w, "admin endpoints disabled (no COLLAPSE_ADMIN_KEY set)", http.StatusForbidden)
			return
		}
		if !s.checkBearerToken(r) {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	var status map[string]any
	s.Eng.View(func(sim *engine.Simulation) {
		bankrupt := 0
		for _, f := range sim.Firms {
			if f.Bankrupt {
				bankrupt++
			}
		}
		status = map[string]any{
			"run_id":          s.RunID,
			"seed":            sim.Seed(),
			"tick":            sim.Tick,
			"sim_time":        engine.SimTime(sim.Tick),
			"running":         s.Eng.Running(),
			"households":      len(sim.Households),
			"firms":           len(sim.Firms),
			"bankrupt_firms":  bankrupt,
			"unrest":          sim.Unrest,
			"inflation":       sim.Inflation,
			"employment_rate": sim.EmploymentRate,
			"budget":          sim.Government.Budget,
			"shocks_fired":    sim.Shocks.Fired,
			"last_shock_tick": sim.Shocks.LastShockTick,
			"recalibrations":  sim.Recalibrations,
		}
	})
	writeJSON(w, status)
}

// handleMetrics returns per-tick metrics for the live run, or for a stored run
// with ?run=<id>. ?key=<metric> returns a single series.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	limit := 100
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 && n <= 100_000 {
			limit = n
		}
	}

	var rows []engine.Metrics
	if runID := r.URL.Query().Get("run"); runID != "" && runID != s.RunID {
		if s.DB == nil {
			http.Error(w, "database not available", http.StatusServiceUnavailable)
			return
		}
		stored, err := s.DB.LoadMetrics(runID)
		if err != nil {
			slog.Error("metrics query failed", "run", runID, "error", err)
			http.Error(w, "metrics query failed", http.StatusInternalServerError)
			return
		}
		if len(stored) > limit {
			stored = stored[len(stored)-limit:]
		}
		rows = stored
	} else {
		if s.History == nil {
			http.Error(w, "history not available", http.StatusServiceUnavailable)
			return
		}
		rows = s.History.Rows(limit)
	}
	if rows == nil {
		rows = []engine.Metrics{}
	}

	if key := r.URL.Query().Get("key"); key != "" {
		if !slices.Contains(engine.MetricKeys, key) {
			http.Error(w, fmt.Sprintf("unknown metric %q", key), http.StatusBadRequest)
			return
		}
		series := make([]float64, 0, len(rows))
		for _, m := range rows {
			v, _ := m.Get(key)
			series = append(series, v)
		}
		writeJSON(w, map[string]any{"key": key, "values": series})
		return
	}
	writeJSON(w, rows)
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	var report engine.Metrics
	s.Eng.View(func(sim *engine.Simulation) { report = sim.Report() })
	writeJSON(w, map[string]any{
		"tick":   report.Tick,
		"values": report.Values(),
	})
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 && n <= 1000 {
			limit = n
		}
	}
	category := r.URL.Query().Get("category")

	var events []engine.Event
	s.Eng.View(func(sim *engine.Simulation) {
		for _, e := range sim.Events {
			if category == "" || e.Category == category {
				events = append(events, e)
			}
		}
	})

	start := 0
	if len(events) > limit {
		start = len(events) - limit
	}
	out := events[start:]
	if out == nil {
		out = []engine.Event{}
	}
	writeJSON(w, out)
}

type graphEdge struct {
	From   string  `json:"from"`
	To     string  `json:"to"`
	Weight float64 `json:"weight"`
}

type graphView struct {
	Directed bool        `json:"directed"`
	Nodes    []string    `json:"nodes"`
	Edges    []graphEdge `json:"edges"`
}

func renderGraph(g *topology.Graph) graphView {
	nodes := g.Nodes()
	v := graphView{
		Directed: g.Directed(),
		Nodes:    make([]string, len(nodes)),
		Edges:    []graphEdge{},
	}
	for i, n := range nodes {
		v.Nodes[i] = n.String()
	}
	for _, e := range g.Edges() {
		v.Edges = append(v.Edges, graphEdge{From: e.From.String(), To: e.To.String(), Weight: e.Weight})
	}
	return v
}

func (s *Server) handleGraph(pick func(*engine.Simulation) *topology.Graph) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var v graphView
		s.Eng.View(func(sim *engine.Simulation) { v = renderGraph(pick(sim)) })
		writeJSON(w, v)
	}
}

func (s *Server) handleTopology(w http.ResponseWriter, r *http.Request) {
	var out map[string]any
	s.Eng.View(func(sim *engine.Simulation) {
		t := sim.Topology
		regions := make(map[string][]int, len(t.Regions))
		for label, members := range t.Regions {
			regions[strconv.Itoa(label)] = members
		}
		informed := []int{}
		for i := range sim.Households {
			if sim.Informed(i) {
				informed = append(informed, i)
			}
		}
		out = map[string]any{
			"regions":      regions,
			"shock_zones":  t.ShockZones,
			"social_edges": t.Social.EdgeCount(),
			"market_edges": t.Market.EdgeCount(),
			"policy_edges": t.Policy.EdgeCount(),
			"trade":        renderGraph(t.Trade).Edges,
			"informed":     informed,
		}
	})
	writeJSON(w, out)
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	if s.DB == nil {
		http.Error(w, "database not available", http.StatusServiceUnavailable)
		return
	}
	runs, err := s.DB.ListRuns(50)
	if err != nil {
		slog.Error("runs query failed", "error", err)
		http.Error(w, "runs query failed", http.StatusInternalServerError)
		return
	}
	if runs == nil {
		runs = []persistence.Run{}
	}
	writeJSON(w, runs)
}

func (s *Server) handleShock(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	var details string
	var err error
	s.Eng.Do(func(sim *engine.Simulation) { details, err = sim.TriggerShock(req.Name) })
	if errors.Is(err, engine.ErrUnknownShock) {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]any{"success": true, "details": details})
}

func (s *Server) handleRumor(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Source     int      `json:"source"`
		SpreadProb *float64 `json:"spread_prob,omitempty"`
		MaxDepth   *int     `json:"max_depth,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	prob, depth := engine.DefaultSpreadProb, engine.DefaultSpreadDepth
	if req.SpreadProb != nil {
		prob = *req.SpreadProb
	}
	if req.MaxDepth != nil {
		depth = *req.MaxDepth
	}

	var reached []int
	var err error
	s.Eng.Do(func(sim *engine.Simulation) { reached, err = sim.SpreadInformation(req.Source, prob, depth) })
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, map[string]any{"success": true, "reached": reached, "count": len(reached)})
}

func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.Encode(data)
}
