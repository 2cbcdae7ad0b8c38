package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/talgya/collapse-sim/internal/engine"
)

func newTestServer(t *testing.T, ticks int) (*Server, *engine.Simulation) {
	t.Helper()
	p := engine.DefaultParams()
	p.Households = 25
	p.Firms = 4
	p.Seed = 5
	p.Shocks.Probability = 0
	sim, err := engine.NewSimulation(p)
	if err != nil {
		t.Fatalf("NewSimulation: %v", err)
	}
	hist := engine.NewHistory()
	sim.AddRecorder(hist)
	eng := engine.NewEngine(sim)
	eng.Run(ticks)
	return &Server{Eng: eng, History: hist, RunID: "test-run", AdminKey: "secret"}, sim
}

func do(t *testing.T, h http.Handler, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
	}
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode: %v (%s)", err, rec.Body.String())
	}
}

func TestStatus(t *testing.T) {
	s, _ := newTestServer(t, 10)
	var status map[string]any
	decode(t, do(t, s.Handler(), http.MethodGet, "/api/v1/status", "", ""), &status)
	if status["tick"] != float64(10) || status["households"] != float64(25) || status["run_id"] != "test-run" {
		t.Fatalf("status=%v", status)
	}
	if status["sim_time"] != "Q1 Day 11, Year 1" {
		t.Fatalf("sim_time=%v", status["sim_time"])
	}
}

func TestMetrics(t *testing.T) {
	s, _ := newTestServer(t, 10)
	h := s.Handler()

	var rows []engine.Metrics
	decode(t, do(t, h, http.MethodGet, "/api/v1/metrics", "", ""), &rows)
	if len(rows) != 10 || rows[0].Tick != 1 || rows[9].Tick != 10 {
		t.Fatalf("rows=%d", len(rows))
	}

	decode(t, do(t, h, http.MethodGet, "/api/v1/metrics?limit=3", "", ""), &rows)
	if len(rows) != 3 || rows[2].Tick != 10 {
		t.Fatalf("limited rows=%+v", rows)
	}

	var series struct {
		Key    string    `json:"key"`
		Values []float64 `json:"values"`
	}
	decode(t, do(t, h, http.MethodGet, "/api/v1/metrics?key=GDP", "", ""), &series)
	if series.Key != "GDP" || len(series.Values) != 10 {
		t.Fatalf("series=%+v", series)
	}

	if rec := do(t, h, http.MethodGet, "/api/v1/metrics?key=Happiness", "", ""); rec.Code != http.StatusBadRequest {
		t.Fatalf("unknown key status=%d", rec.Code)
	}
	if rec := do(t, h, http.MethodGet, "/api/v1/metrics?run=other", "", ""); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("stored run without db status=%d", rec.Code)
	}
}

func TestReport(t *testing.T) {
	s, _ := newTestServer(t, 5)
	var report struct {
		Tick   uint64          `json:"tick"`
		Values []engine.Metric `json:"values"`
	}
	decode(t, do(t, s.Handler(), http.MethodGet, "/api/v1/report", "", ""), &report)
	if report.Tick != 5 || len(report.Values) != len(engine.MetricKeys) {
		t.Fatalf("report=%+v", report)
	}
	for i, v := range report.Values {
		if v.Key != engine.MetricKeys[i] {
			t.Fatalf("value %d key=%s want %s", i, v.Key, engine.MetricKeys[i])
		}
	}
}

func TestGraphs(t *testing.T) {
	s, _ := newTestServer(t, 1)
	h := s.Handler()

	var social graphView
	decode(t, do(t, h, http.MethodGet, "/api/v1/graph/social", "", ""), &social)
	if social.Directed || len(social.Nodes) != 25 || social.Nodes[0] != "Household_0" {
		t.Fatalf("social=%+v", social.Nodes)
	}

	var policy graphView
	decode(t, do(t, h, http.MethodGet, "/api/v1/graph/policy", "", ""), &policy)
	if !policy.Directed || len(policy.Edges) != 4 {
		t.Fatalf("policy=%+v", policy)
	}
	for _, e := range policy.Edges {
		if e.From != "Government" || e.Weight < 0.5 || e.Weight > 1.5 {
			t.Fatalf("policy edge %+v", e)
		}
	}

	var topo map[string]any
	decode(t, do(t, h, http.MethodGet, "/api/v1/topology", "", ""), &topo)
	if zones, ok := topo["shock_zones"].([]any); !ok || len(zones) != 2 {
		t.Fatalf("shock_zones=%v", topo["shock_zones"])
	}
}

func TestShockEndpoint(t *testing.T) {
	s, sim := newTestServer(t, 3)
	h := s.Handler()

	if rec := do(t, h, http.MethodGet, "/api/v1/shock", "secret", ""); rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("GET status=%d", rec.Code)
	}
	if rec := do(t, h, http.MethodPost, "/api/v1/shock", "wrong", `{"name":"pandemic"}`); rec.Code != http.StatusUnauthorized {
		t.Fatalf("bad token status=%d", rec.Code)
	}
	if rec := do(t, h, http.MethodPost, "/api/v1/shock", "secret", `{"name":"meteor"}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("unknown shock status=%d", rec.Code)
	}
	if sim.Shocks.Fired != 0 {
		t.Fatalf("rejected shock fired")
	}

	var resp map[string]any
	decode(t, do(t, h, http.MethodPost, "/api/v1/shock", "secret", `{"name":"Financial Crisis"}`), &resp)
	if resp["success"] != true || sim.Shocks.Fired != 1 || sim.Shocks.LastShockTick != 3 {
		t.Fatalf("resp=%v fired=%d", resp, sim.Shocks.Fired)
	}

	var events []engine.Event
	decode(t, do(t, h, http.MethodGet, "/api/v1/events?category=shock", "", ""), &events)
	if len(events) != 1 || events[0].Meta["shock"] != "financial_crisis" {
		t.Fatalf("events=%+v", events)
	}
}

func TestAdminDisabledWithoutKey(t *testing.T) {
	s, _ := newTestServer(t, 1)
	s.AdminKey = ""
	if rec := do(t, s.Handler(), http.MethodPost, "/api/v1/shock", "", `{"name":"pandemic"}`); rec.Code != http.StatusForbidden {
		t.Fatalf("status=%d want 403", rec.Code)
	}
}

func TestRumorEndpoint(t *testing.T) {
	s, sim := newTestServer(t, 1)
	h := s.Handler()

	var resp struct {
		Reached []int `json:"reached"`
		Count   int   `json:"count"`
	}
	decode(t, do(t, h, http.MethodPost, "/api/v1/rumor", "secret", `{"source":2,"spread_prob":1,"max_depth":0}`), &resp)
	if resp.Count != 1 || resp.Reached[0] != 2 || !sim.Informed(2) {
		t.Fatalf("resp=%+v", resp)
	}

	if rec := do(t, h, http.MethodPost, "/api/v1/rumor", "secret", `{"source":99}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("out of range status=%d", rec.Code)
	}
}

func TestAdminRateLimit(t *testing.T) {
	s, _ := newTestServer(t, 1)
	s.AdminRate = 2
	h := s.Handler()

	for i := 0; i < 2; i++ {
		if rec := do(t, h, http.MethodPost, "/api/v1/rumor", "secret", `{"source":0}`); rec.Code != http.StatusOK {
			t.Fatalf("request %d status=%d", i, rec.Code)
		}
	}
	rec := do(t, h, http.MethodPost, "/api/v1/rumor", "secret", `{"source":0}`)
	if rec.Code != http.StatusTooManyRequests || rec.Header().Get("Retry-After") == "" {
		t.Fatalf("status=%d retry=%q", rec.Code, rec.Header().Get("Retry-After"))
	}
}

func TestCORS(t *testing.T) {
	s, _ := newTestServer(t, 1)
	req := httptest.NewRequest(http.MethodOptions, "/api/v1/status", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent || rec.Header().Get("Access-Control-Allow-Origin") != "http://localhost:5173" {
		t.Fatalf("status=%d headers=%v", rec.Code, rec.Header())
	}
}
