// Simulation ties together the agent populations, the topology, and the
// shared macro state, and sequences them each tick.
package engine

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/talgya/collapse-sim/internal/agents"
	"github.com/talgya/collapse-sim/internal/entropy"
	"github.com/talgya/collapse-sim/internal/topology"
)

// Configuration errors reported by NewSimulation.
var (
	ErrNoHouseholds  = errors.New("simulation requires at least one household")
	ErrNegativeFirms = errors.New("firm count cannot be negative")
)

// Employment rate bounds maintained by macro recalibration.
const (
	MinEmploymentRate = 0.6
	MaxEmploymentRate = 1.0
)

// maxEvents bounds the in-memory event buffer.
const maxEvents = 1000

// Params is the initialization input for a run.
type Params struct {
	Households        int
	Firms             int
	InitialInflation  float64
	InitialEmployment float64
	InitialUnrest     int
	Seed              int64 // 0 = random

	Topology topology.Config
	Spawn    agents.SpawnConfig
	Shocks   ShockConfig
}

// DefaultParams returns the reference scenario: 100 households, 10 firms.
func DefaultParams() Params {
	return Params{
		Households:        100,
		Firms:             10,
		InitialInflation:  0.03,
		InitialEmployment: 0.95,
		Topology:          topology.DefaultConfig(),
		Spawn:             agents.DefaultSpawnConfig(),
		Shocks:            DefaultShockConfig(),
	}
}

// Simulation is the shared context every agent behavior reads and mutates.
// It is the sole owner of the agent collections and the graphs.
type Simulation struct {
	Tick uint64 // Completed ticks

	// Per-tick accumulators, reset at the start of every Step.
	TotalDemand        float64
	TotalIncome        float64
	IncomeDistribution []float64 // One entry per wage payment

	// Slowly varying macro state.
	Inflation      float64 // ≥ 0
	EmploymentRate float64 // [MinEmploymentRate, MaxEmploymentRate]
	Unrest         int     // ≥ 0

	// Populations in registration order; update order follows this order.
	Households []*agents.Household
	Firms      []*agents.Firm
	Government *agents.Government

	Topology *topology.Topology
	Shocks   *ShockManager

	Events         []Event // Recent events, bounded
	Recalibrations int     // Macro recalibrations performed so far

	prevGDP    float64
	hasPrevGDP bool
	last       Metrics
	recorders  []Recorder
	rng        *entropy.Source
}

// Event is a notable occurrence during a run.
type Event struct {
	Tick        uint64         `json:"tick" db:"tick"`
	Description string         `json:"description" db:"description"`
	Category    string         `json:"category" db:"category"` // "shock", "firm", "intervention", "macro"
	Meta        map[string]any `json:"meta,omitempty" db:"-"`
}

// NewSimulation creates the populations, builds the topology, and attaches
// topology data to households.
func NewSimulation(p Params) (*Simulation, error) {
	if p.Households < 1 {
		return nil, ErrNoHouseholds
	}
	if p.Firms < 0 {
		return nil, fmt.Errorf("%w: %d", ErrNegativeFirms, p.Firms)
	}

	src := entropy.New(p.Seed)
	spawner := agents.NewSpawner(src, p.Spawn)

	s := &Simulation{
		Inflation:      max(0, p.InitialInflation),
		EmploymentRate: clampEmployment(p.InitialEmployment),
		Unrest:         max(0, p.InitialUnrest),
		Households:     spawner.SpawnHouseholds(p.Households),
		Firms:          spawner.SpawnFirms(p.Firms),
		Government:     spawner.NewGovernment(),
		Shocks:         NewShockManager(p.Shocks),
		rng:            src,
	}
	s.Topology = topology.Build(p.Households, p.Firms, p.Topology, src)
	s.attachTopology()

	slog.Info("simulation initialized",
		"seed", src.Seed(),
		"households", len(s.Households),
		"firms", len(s.Firms),
		"social_edges", s.Topology.Social.EdgeCount(),
		"trade_edges", s.Topology.Trade.EdgeCount(),
		"shock_zones", len(s.Topology.ShockZones),
	)
	return s, nil
}

// attachTopology copies graph-derived attributes onto each household.
func (s *Simulation) attachTopology() {
	zones := make(map[int]bool, len(s.Topology.ShockZones))
	for _, z := range s.Topology.ShockZones {
		zones[z] = true
	}
	for i, h := range s.Households {
		h.Neighbors = nodeIndices(s.Topology.Social.Neighbors(topology.Household(i)))
		h.TradingPartners = nodeIndices(s.Topology.Trade.Neighbors(topology.Household(i)))
		h.Region = s.Topology.RegionOf[i]
		h.ShockZone = zones[i]
	}
}

func nodeIndices(nodes []topology.Node) []int {
	out := make([]int, len(nodes))
	for i, n := range nodes {
		out[i] = n.Index
	}
	return out
}

// Seed returns the effective random seed of the run.
func (s *Simulation) Seed() int64 {
	return s.rng.Seed()
}

// SocialGraph returns the household social network for rendering.
func (s *Simulation) SocialGraph() *topology.Graph {
	return s.Topology.Social
}

// PolicyGraph returns the government→firm influence graph for rendering.
func (s *Simulation) PolicyGraph() *topology.Graph {
	return s.Topology.Policy
}

// AddRecorder registers r to receive every tick's metrics (and events, when r
// also implements EventRecorder).
func (s *Simulation) AddRecorder(r Recorder) {
	s.recorders = append(s.recorders, r)
}

// EmitEvent appends an event, trims the buffer, and forwards it to recorders.
func (s *Simulation) EmitEvent(e Event) {
	s.Events = append(s.Events, e)
	if len(s.Events) > maxEvents {
		s.Events = s.Events[len(s.Events)-maxEvents:]
	}
	for _, r := range s.recorders {
		if er, ok := r.(EventRecorder); ok {
			er.RecordEvent(e)
		}
	}
}

// Step advances the simulation one tick: households, then firms, then the
// government, then the shock check; macro recalibration every
// RecalibrationInterval ticks; finally aggregate metrics are computed and
// emitted.
func (s *Simulation) Step() Metrics {
	s.TotalDemand = 0
	s.TotalIncome = 0
	s.IncomeDistribution = s.IncomeDistribution[:0]

	current := s.Tick + 1

	for _, h := range s.Households {
		s.stepHousehold(h)
	}
	for i, f := range s.Firms {
		s.stepFirm(i, f)
	}
	s.stepGovernment()
	s.Shocks.MaybeTrigger(s, current)

	s.Tick = current
	if s.Tick%RecalibrationInterval == 0 {
		s.recalibrate()
	}

	m := s.computeMetrics()
	s.last = m
	for _, r := range s.recorders {
		r.Record(m)
	}
	return m
}

// Run advances n ticks and returns the emitted metrics in order.
func (s *Simulation) Run(n int) []Metrics {
	out := make([]Metrics, 0, max(n, 0))
	for i := 0; i < n; i++ {
		out = append(out, s.Step())
	}
	return out
}

// addUnrest adjusts unrest by delta, flooring at zero.
func (s *Simulation) addUnrest(delta int) {
	s.Unrest += delta
	if s.Unrest < 0 {
		s.Unrest = 0
	}
}

func clampEmployment(rate float64) float64 {
	return min(MaxEmploymentRate, max(MinEmploymentRate, rate))
}
