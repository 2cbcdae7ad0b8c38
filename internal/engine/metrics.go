// Per-tick metrics, the end-of-run report, and recorders.
package engine

import (
	"sync"

	"github.com/talgya/collapse-sim/internal/economy"
)

// Metrics is one tick's recorded indicators.
type Metrics struct {
	Tick            uint64  `json:"Step" db:"tick"`
	Unrest          int     `json:"Unrest" db:"unrest"`
	Inflation       float64 `json:"Inflation" db:"inflation"`
	EmploymentRate  float64 `json:"EmploymentRate" db:"employment_rate"`
	AvgFirmProfit   float64 `json:"AvgFirmProfit" db:"avg_firm_profit"`
	FirmProfitTotal float64 `json:"FirmProfitTotal" db:"firm_profit_total"`
	TotalDemand     float64 `json:"TotalDemand" db:"total_demand"`
	GDP             float64 `json:"GDP" db:"gdp"`
	GDPGrowthRate   float64 `json:"GDPGrowthRate" db:"gdp_growth_rate"`
	GiniCoefficient float64 `json:"GiniCoefficient" db:"gini_coefficient"`
}

// MetricKeys lists metric names in emission order.
var MetricKeys = []string{
	"Unrest",
	"Inflation",
	"EmploymentRate",
	"AvgFirmProfit",
	"FirmProfitTotal",
	"TotalDemand",
	"GDP",
	"GDPGrowthRate",
	"GiniCoefficient",
}

// Metric is a single key→value pair.
type Metric struct {
	Key   string  `json:"key"`
	Value float64 `json:"value"`
}

// Values returns the metrics as ordered key→value pairs.
func (m Metrics) Values() []Metric {
	return []Metric{
		{"Unrest", float64(m.Unrest)},
		{"Inflation", m.Inflation},
		{"EmploymentRate", m.EmploymentRate},
		{"AvgFirmProfit", m.AvgFirmProfit},
		{"FirmProfitTotal", m.FirmProfitTotal},
		{"TotalDemand", m.TotalDemand},
		{"GDP", m.GDP},
		{"GDPGrowthRate", m.GDPGrowthRate},
		{"GiniCoefficient", m.GiniCoefficient},
	}
}

// Get returns the value recorded under key.
func (m Metrics) Get(key string) (float64, bool) {
	for _, v := range m.Values() {
		if v.Key == key {
			return v.Value, true
		}
	}
	return 0, false
}

// computeMetrics derives this tick's aggregates and rolls the GDP baseline.
func (s *Simulation) computeMetrics() Metrics {
	profits := s.firmProfitTotal()
	gdp := s.TotalIncome + profits
	growth := economy.GrowthRate(s.prevGDP, gdp, s.hasPrevGDP)
	s.prevGDP, s.hasPrevGDP = gdp, true

	return Metrics{
		Tick:            s.Tick,
		Unrest:          s.Unrest,
		Inflation:       s.Inflation,
		EmploymentRate:  s.EmploymentRate,
		AvgFirmProfit:   economy.Round(s.avgFirmProfit(profits), economy.ProfitPlaces),
		FirmProfitTotal: economy.Round(profits, economy.ProfitPlaces),
		TotalDemand:     s.TotalDemand,
		GDP:             gdp,
		GDPGrowthRate:   economy.Round(growth, economy.GrowthPlaces),
		GiniCoefficient: economy.Round(economy.Gini(s.IncomeDistribution), economy.GiniPlaces),
	}
}

func (s *Simulation) firmProfitTotal() float64 {
	total := 0.0
	for _, f := range s.Firms {
		total += f.Profit
	}
	return total
}

func (s *Simulation) avgFirmProfit(total float64) float64 {
	if len(s.Firms) == 0 {
		return 0
	}
	return total / float64(len(s.Firms))
}

// Report returns the end-of-run values. GDP, growth, and Gini come from the
// last recorded tick; the rest is a snapshot of current state, so effects
// applied after the last tick (manual shocks) are reflected.
func (s *Simulation) Report() Metrics {
	r := s.last
	profits := s.firmProfitTotal()
	r.Tick = s.Tick
	r.Unrest = s.Unrest
	r.Inflation = s.Inflation
	r.EmploymentRate = s.EmploymentRate
	r.AvgFirmProfit = economy.Round(s.avgFirmProfit(profits), economy.ProfitPlaces)
	r.FirmProfitTotal = economy.Round(profits, economy.ProfitPlaces)
	r.TotalDemand = s.TotalDemand
	return r
}

// Recorder receives every tick's metrics.
type Recorder interface {
	Record(m Metrics)
}

// EventRecorder is implemented by recorders that also want events.
type EventRecorder interface {
	RecordEvent(e Event)
}

// RecorderFunc adapts a function to Recorder.
type RecorderFunc func(Metrics)

// Record calls f(m).
func (f RecorderFunc) Record(m Metrics) { f(m) }

// History is an in-memory step-indexed metrics table, safe for concurrent
// readers while a run records into it.
type History struct {
	mu   sync.RWMutex
	rows []Metrics
}

// NewHistory creates an empty history.
func NewHistory() *History {
	return &History{}
}

// Record appends m.
func (h *History) Record(m Metrics) {
	h.mu.Lock()
	h.rows = append(h.rows, m)
	h.mu.Unlock()
}

// Len returns the number of recorded ticks.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rows)
}

// Rows returns a copy of the recorded ticks, optionally limited to the last n
// (n <= 0 returns everything).
func (h *History) Rows(n int) []Metrics {
	h.mu.RLock()
	defer h.mu.RUnlock()
	start := 0
	if n > 0 && len(h.rows) > n {
		start = len(h.rows) - n
	}
	out := make([]Metrics, len(h.rows)-start)
	copy(out, h.rows[start:])
	return out
}

// Last returns the most recent row.
func (h *History) Last() (Metrics, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if len(h.rows) == 0 {
		return Metrics{}, false
	}
	return h.rows[len(h.rows)-1], true
}

// Series returns one metric across all recorded ticks.
func (h *History) Series(key string) []float64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]float64, 0, len(h.rows))
	for _, m := range h.rows {
		if v, ok := m.Get(key); ok {
			out = append(out, v)
		}
	}
	return out
}
