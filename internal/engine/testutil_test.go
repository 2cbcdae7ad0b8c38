package engine

import "testing"

// newTestSim builds a small simulation with automatic shocks disabled.
func newTestSim(t *testing.T, households, firms int, seed int64) *Simulation {
	t.Helper()
	p := DefaultParams()
	p.Households = households
	p.Firms = firms
	p.Seed = seed
	p.Shocks.Probability = 0
	s, err := NewSimulation(p)
	if err != nil {
		t.Fatalf("NewSimulation: %v", err)
	}
	return s
}
