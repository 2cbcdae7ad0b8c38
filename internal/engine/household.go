// Household behavior: employment draws with peer influence, living costs,
// unrest pressure, wealth, and consumer demand.
package engine

import (
	"math"

	"github.com/talgya/collapse-sim/internal/agents"
)

const (
	peerBaseWeight  = 0.8  // Share of employment probability independent of neighbors
	peerWeight      = 0.2  // Share scaled by the neighbor employment ratio
	newEarnerChance = 0.1  // Per-tick chance another member becomes employable
	demandCap       = 50.0 // Max wealth a household spends into demand per tick
)

// stepHousehold runs one household's tick.
func (s *Simulation) stepHousehold(h *agents.Household) {
	s.updateEmployment(h)
	employed := h.EmployedCount()

	earned := h.Income
	h.Income = 0

	expenses := householdExpenses(h, employed)
	s.applyEmploymentUnrest(employed)

	h.Wealth = math.Max(0, h.Wealth+earned-expenses)

	participation := 0.0
	if r, ok := h.EmploymentRatio(); ok {
		participation = r
	}
	s.TotalDemand += math.Min(h.Wealth, demandCap) * participation
}

// updateEmployment redraws every earner slot and occasionally adds one.
func (s *Simulation) updateEmployment(h *agents.Household) {
	prob := math.Min(1, s.EmploymentRate*(peerBaseWeight+peerWeight*s.neighborEmploymentRatio(h)))
	for i := range h.Earners {
		h.Earners[i] = s.rng.Chance(prob)
	}

	if s.rng.Chance(newEarnerChance) && len(h.Earners) < h.Members {
		h.AddEarner(s.rng.Chance(s.EmploymentRate))
	}
}

// neighborEmploymentRatio averages the employed-slot fraction over social
// neighbors that have slots. Without such neighbors it is 1.
func (s *Simulation) neighborEmploymentRatio(h *agents.Household) float64 {
	sum, n := 0.0, 0
	for _, idx := range h.Neighbors {
		if idx < 0 || idx >= len(s.Households) {
			continue
		}
		if r, ok := s.Households[idx].EmploymentRatio(); ok {
			sum += r
			n++
		}
	}
	if n == 0 {
		return 1
	}
	return sum / float64(n)
}

// householdExpenses scales living costs by how many members are working.
func householdExpenses(h *agents.Household, employed int) float64 {
	base := h.CostOfLiving * float64(h.Members)
	switch employed {
	case 0:
		return base * 0.6
	case 1:
		return base * 0.85
	default:
		return base
	}
}

// applyEmploymentUnrest raises unrest for under-employed households and
// relieves it for well-employed ones.
func (s *Simulation) applyEmploymentUnrest(employed int) {
	switch {
	case employed == 0:
		s.addUnrest(2)
	case employed == 1:
		s.addUnrest(1)
	case employed == 2:
		s.addUnrest(-5)
	default:
		s.addUnrest(-8)
	}
}
