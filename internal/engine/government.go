// Government behavior: taxes, subsidies, monetary policy, stimulus,
// stabilization, and random policy failures.
package engine

import "github.com/talgya/collapse-sim/internal/agents"

const (
	subsidyWealthLine = 300.0
	householdSubsidy  = 50.0
	firmSubsidy       = 100.0
	subsidyStreak     = 2

	highInflation = 0.5
	lowInflation  = 0.1

	stimulusEmployment = 0.75
	stimulusPerHH      = 100.0

	stabilizeBudget   = 10_000.0
	stabilizeCostUnit = 10.0

	corruptionChance  = 0.05
	emergencyBudget   = 2000.0
	policyShockChance = 0.03
	policyShockAmount = 50.0
	policyShockUnrest = 5
	emergencyFirmTax  = 0.02
	emergencyHHTax    = 0.01
)

// stepGovernment runs fiscal and monetary policy in fixed order.
func (s *Simulation) stepGovernment() {
	g := s.Government
	s.collectTaxes(g)
	s.provideSubsidies(g)
	s.adjustMonetaryPolicy(g)
	s.deployStimulus(g)
	s.stabilizeSociety(g)
	s.simulateNegativeEffects(g)
}

// collectTaxes taxes positive firm profits and all household wealth.
func (s *Simulation) collectTaxes(g *agents.Government) {
	for _, f := range s.Firms {
		if f.Profit > 0 {
			tax := f.Profit * g.FirmTaxRate
			f.Profit -= tax
			g.Budget += tax
		}
	}
	for _, h := range s.Households {
		// Ratcheted rates can exceed 1; never take more than the household holds.
		tax := min(h.Wealth, h.Wealth*g.HouseholdTaxRate)
		h.Wealth -= tax
		g.Budget += tax
	}
}

// provideSubsidies supports poor households and struggling firms.
func (s *Simulation) provideSubsidies(g *agents.Government) {
	for _, h := range s.Households {
		if h.Wealth < subsidyWealthLine {
			h.Wealth += householdSubsidy
			g.Budget -= householdSubsidy
		}
	}
	for _, f := range s.Firms {
		if f.LossStreak >= subsidyStreak {
			f.Profit += firmSubsidy
			g.Budget -= firmSubsidy
		}
	}
}

// adjustMonetaryPolicy tightens under high inflation and eases under low.
func (s *Simulation) adjustMonetaryPolicy(g *agents.Government) {
	switch {
	case s.Inflation > highInflation:
		g.InterestRate += 0.01
		g.MinimumWage += 5
	case s.Inflation < lowInflation:
		g.InterestRate = max(agents.MinInterestRate, g.InterestRate-0.005)
	}
}

// deployStimulus pays every household a flat amount when firms are losing
// money on average or employment is weak.
func (s *Simulation) deployStimulus(g *agents.Government) {
	avgProfit := 0.0
	if len(s.Firms) > 0 {
		total := 0.0
		for _, f := range s.Firms {
			total += f.Profit
		}
		avgProfit = total / float64(len(s.Firms))
	}
	if avgProfit >= 0 && s.EmploymentRate >= stimulusEmployment {
		return
	}

	g.Budget -= stimulusPerHH * float64(len(s.Households))
	for _, h := range s.Households {
		h.Wealth += stimulusPerHH
	}
}

// stabilizeSociety buys down a tenth of unrest when the budget allows.
func (s *Simulation) stabilizeSociety(g *agents.Government) {
	if g.Budget <= stabilizeBudget || s.Unrest <= 0 {
		return
	}
	reduction := s.Unrest / 10
	s.addUnrest(-reduction)
	g.Budget -= float64(reduction) * stabilizeCostUnit
}

// simulateNegativeEffects models corruption, emergency tax hikes, and random
// policy shocks.
func (s *Simulation) simulateNegativeEffects(g *agents.Government) {
	if s.rng.Chance(corruptionChance) {
		loss := float64(s.rng.IntRange(500, 2000))
		g.Budget = max(0, g.Budget-loss)
	}

	if g.Budget < emergencyBudget {
		g.FirmTaxRate += emergencyFirmTax
		g.HouseholdTaxRate += emergencyHHTax
		s.addUnrest(s.rng.IntRange(5, 15))
	}

	if s.rng.Chance(policyShockChance) {
		if s.rng.Intn(2) == 0 {
			for _, f := range s.Firms {
				f.Profit -= policyShockAmount
			}
		} else {
			for _, h := range s.Households {
				h.DebitWealth(policyShockAmount)
			}
		}
		s.addUnrest(policyShockUnrest)
	}
}
