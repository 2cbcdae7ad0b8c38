package engine

import (
	"math"
	"testing"
)

func TestCollectTaxes(t *testing.T) {
	s := newTestSim(t, 2, 2, 1)
	g := s.Government
	g.Budget = 0
	s.Firms[0].Profit = 1000
	s.Firms[1].Profit = -300
	s.Households[0].Wealth = 1000
	s.Households[1].Wealth = 0

	s.collectTaxes(g)

	if s.Firms[0].Profit != 850 || s.Firms[1].Profit != -300 {
		t.Fatalf("firm profits after tax: %v %v", s.Firms[0].Profit, s.Firms[1].Profit)
	}
	if s.Households[0].Wealth != 900 {
		t.Fatalf("household wealth=%v want 900", s.Households[0].Wealth)
	}
	if math.Abs(g.Budget-250) > 1e-9 {
		t.Fatalf("budget=%v want 250", g.Budget)
	}
}

func TestCollectTaxes_RatchetedRateNeverOverdraws(t *testing.T) {
	s := newTestSim(t, 1, 0, 1)
	s.Government.HouseholdTaxRate = 1.4
	s.Households[0].Wealth = 200
	s.collectTaxes(s.Government)
	if s.Households[0].Wealth != 0 {
		t.Fatalf("wealth=%v want 0", s.Households[0].Wealth)
	}
}

func TestProvideSubsidies(t *testing.T) {
	s := newTestSim(t, 2, 2, 1)
	g := s.Government
	g.Budget = 1000
	s.Households[0].Wealth = 100
	s.Households[1].Wealth = 5000
	s.Firms[0].LossStreak = 2
	s.Firms[0].Profit = 0
	s.Firms[1].LossStreak = 1
	s.Firms[1].Profit = 0

	s.provideSubsidies(g)

	if s.Households[0].Wealth != 150 || s.Households[1].Wealth != 5000 {
		t.Fatalf("wealth: %v %v", s.Households[0].Wealth, s.Households[1].Wealth)
	}
	if s.Firms[0].Profit != 100 || s.Firms[1].Profit != 0 {
		t.Fatalf("profits: %v %v", s.Firms[0].Profit, s.Firms[1].Profit)
	}
	if g.Budget != 850 {
		t.Fatalf("budget=%v want 850", g.Budget)
	}
}

func TestAdjustMonetaryPolicy(t *testing.T) {
	s := newTestSim(t, 1, 0, 1)
	g := s.Government

	s.Inflation = 0.6
	g.InterestRate, g.MinimumWage = 0.03, 70
	s.adjustMonetaryPolicy(g)
	if math.Abs(g.InterestRate-0.04) > 1e-12 || g.MinimumWage != 75 {
		t.Fatalf("tightening: rate=%v wage=%v", g.InterestRate, g.MinimumWage)
	}

	s.Inflation = 0.05
	g.InterestRate = 0.012
	s.adjustMonetaryPolicy(g)
	if g.InterestRate != 0.01 {
		t.Fatalf("easing floor: rate=%v want 0.01", g.InterestRate)
	}

	s.Inflation = 0.3
	g.InterestRate = 0.02
	s.adjustMonetaryPolicy(g)
	if g.InterestRate != 0.02 {
		t.Fatalf("neutral band changed rate to %v", g.InterestRate)
	}
}

func TestDeployStimulus(t *testing.T) {
	s := newTestSim(t, 3, 1, 1)
	g := s.Government
	g.Budget = 1000
	s.EmploymentRate = 0.9
	s.Firms[0].Profit = -10
	for _, h := range s.Households {
		h.Wealth = 0
	}

	s.deployStimulus(g)
	if g.Budget != 700 {
		t.Fatalf("budget=%v want 700", g.Budget)
	}
	for _, h := range s.Households {
		if h.Wealth != 100 {
			t.Fatalf("household wealth=%v want 100", h.Wealth)
		}
	}

	s.Firms[0].Profit = 10
	s.deployStimulus(g)
	if g.Budget != 700 {
		t.Fatalf("stimulus paid without trigger")
	}

	s.EmploymentRate = 0.7
	s.deployStimulus(g)
	if g.Budget != 400 {
		t.Fatalf("low employment should trigger stimulus, budget=%v", g.Budget)
	}
}

func TestStabilizeSociety(t *testing.T) {
	s := newTestSim(t, 1, 0, 1)
	g := s.Government
	g.Budget = 20_000
	s.Unrest = 57
	s.stabilizeSociety(g)
	if s.Unrest != 52 || g.Budget != 19_950 {
		t.Fatalf("unrest=%d budget=%v", s.Unrest, g.Budget)
	}

	g.Budget = 5000
	s.stabilizeSociety(g)
	if s.Unrest != 52 {
		t.Fatalf("stabilized without budget")
	}
}

func TestNegativeEffects_EmergencyTaxRatchet(t *testing.T) {
	s := newTestSim(t, 5, 2, 1)
	g := s.Government
	g.Budget = 1000
	g.FirmTaxRate, g.HouseholdTaxRate = 0.15, 0.10
	s.Unrest = 0

	s.simulateNegativeEffects(g)

	if math.Abs(g.FirmTaxRate-0.17) > 1e-12 || math.Abs(g.HouseholdTaxRate-0.11) > 1e-12 {
		t.Fatalf("tax rates: firm=%v household=%v", g.FirmTaxRate, g.HouseholdTaxRate)
	}
	// 5..15 from the emergency plus possibly 5 from a policy shock.
	if s.Unrest < 5 || s.Unrest > 20 {
		t.Fatalf("unrest=%d out of expected range", s.Unrest)
	}
	if g.Budget < 0 {
		t.Fatalf("corruption must floor budget at 0, got %v", g.Budget)
	}
}

func TestGovernment_TaxRatesNeverDecrease(t *testing.T) {
	s := newTestSim(t, 30, 4, 13)
	g := s.Government
	firmTax, hhTax := g.FirmTaxRate, g.HouseholdTaxRate
	for i := 0; i < 200; i++ {
		s.Step()
		if g.FirmTaxRate < firmTax || g.HouseholdTaxRate < hhTax {
			t.Fatalf("tick %d: tax rate decreased", s.Tick)
		}
		firmTax, hhTax = g.FirmTaxRate, g.HouseholdTaxRate
	}
}
