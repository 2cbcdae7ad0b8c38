// Population spawning with the model's initial conditions.
package agents

import "github.com/talgya/collapse-sim/internal/entropy"

// SpawnConfig controls initial population generation.
type SpawnConfig struct {
	// Households
	Members         int
	InitialEarners  int
	InitialWealth   float64
	CostOfLivingMin float64
	CostOfLivingMax float64

	// Firms
	EmployeesMin    int
	EmployeesMax    int
	InitialCapacity int
	WageMin         float64
	WageMax         float64

	// Government
	InitialBudget    float64
	FirmTaxRate      float64
	HouseholdTaxRate float64
	MinimumWage      float64
	InterestRate     float64
}

// DefaultSpawnConfig returns the standard initial conditions.
func DefaultSpawnConfig() SpawnConfig {
	return SpawnConfig{
		Members:         4,
		InitialEarners:  2,
		InitialWealth:   10000,
		CostOfLivingMin: 200,
		CostOfLivingMax: 500,

		EmployeesMin:    50,
		EmployeesMax:    150,
		InitialCapacity: 1000,
		WageMin:         60,
		WageMax:         100,

		InitialBudget:    100_000,
		FirmTaxRate:      0.15,
		HouseholdTaxRate: 0.10,
		MinimumWage:      70,
		InterestRate:     0.03,
	}
}

// Spawner creates agents for the simulation, drawing from the shared source.
type Spawner struct {
	src *entropy.Source
	cfg SpawnConfig
}

// NewSpawner creates a spawner. Members is raised to 1 and InitialEarners is
// capped at Members.
func NewSpawner(src *entropy.Source, cfg SpawnConfig) *Spawner {
	if cfg.Members < 1 {
		cfg.Members = 1
	}
	if cfg.InitialEarners > cfg.Members {
		cfg.InitialEarners = cfg.Members
	}
	if cfg.InitialEarners < 0 {
		cfg.InitialEarners = 0
	}
	return &Spawner{src: src, cfg: cfg}
}

// SpawnHouseholds creates n households in registration order.
func (s *Spawner) SpawnHouseholds(n int) []*Household {
	out := make([]*Household, 0, n)
	for i := 0; i < n; i++ {
		earners := make([]bool, s.cfg.InitialEarners)
		for k := range earners {
			earners[k] = true
		}
		out = append(out, &Household{
			ID:           i,
			Members:      s.cfg.Members,
			Earners:      earners,
			Wealth:       s.cfg.InitialWealth,
			CostOfLiving: s.src.Uniform(s.cfg.CostOfLivingMin, s.cfg.CostOfLivingMax),
		})
	}
	return out
}

// SpawnFirms creates n solvent firms in registration order.
func (s *Spawner) SpawnFirms(n int) []*Firm {
	out := make([]*Firm, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, &Firm{
			ID:        i,
			Employees: s.src.IntRange(s.cfg.EmployeesMin, s.cfg.EmployeesMax),
			Capacity:  s.cfg.InitialCapacity,
			BaseWage:  s.src.Uniform(s.cfg.WageMin, s.cfg.WageMax),
		})
	}
	return out
}

// NewGovernment creates the single government agent.
func (s *Spawner) NewGovernment() *Government {
	return &Government{
		Budget:           s.cfg.InitialBudget,
		FirmTaxRate:      s.cfg.FirmTaxRate,
		HouseholdTaxRate: s.cfg.HouseholdTaxRate,
		MinimumWage:      s.cfg.MinimumWage,
		InterestRate:     s.cfg.InterestRate,
	}
}
