// Firm behavior: policy influence, production, sales, wages, labor
// adjustment, expansion, and bankruptcy.
package engine

import (
	"fmt"
	"math"

	"github.com/talgya/collapse-sim/internal/agents"
	"github.com/talgya/collapse-sim/internal/topology"
)

const (
	outputPerWorker    = 8
	minEfficiency      = 0.6
	basePrice          = 60.0
	inflationPriceMult = 10.0
	minDemandFactor    = 0.5
	wageInflationShare = 0.5

	hireProfit      = 200.0
	fireProfit      = -500.0
	expandProfit    = 500.0
	expandCapacity  = 10
	expandWageRaise = 1.02

	bankruptStreak    = 3
	bankruptProfit    = -1000.0
	bankruptUnrest    = 3
	bankruptRecovered = 200.0 // Liquidation proceeds credited to the budget
)

// stepFirm runs one firm's tick. idx is the firm's registration index.
func (s *Simulation) stepFirm(idx int, f *agents.Firm) {
	if f.Bankrupt {
		// Whatever profit reached the firm since its last step (subsidies,
		// shocks) decides recovery; nothing else runs.
		carried := f.Profit
		f.Profit = 0
		s.checkRecovery(idx, f, carried)
		return
	}

	f.Profit = 0
	s.applyPolicyInfluence(idx, f)
	s.produce(f)
	s.sell(f)
	s.payWages(f)
	adjustEmployment(f)
	expandIfProfitable(f)

	if f.Profit < 0 {
		f.LossStreak++
	} else {
		f.LossStreak = 0
	}
	s.checkBankruptcy(idx, f)
}

// applyPolicyInfluence credits the government's influence weight on this firm.
func (s *Simulation) applyPolicyInfluence(idx int, f *agents.Firm) {
	w, ok := s.Topology.Policy.Weight(topology.Government, topology.Firm(idx))
	if !ok {
		return
	}
	f.Profit += 20 * w
	f.Capacity += int(math.Floor(2 * w))
}

// produce adds this tick's output to inventory. Inflation erodes efficiency.
func (s *Simulation) produce(f *agents.Firm) {
	efficiency := math.Max(minEfficiency, 1-s.Inflation)
	output := math.Min(float64(f.Capacity), float64(f.Employees)*outputPerWorker*efficiency)
	if output > 0 {
		f.Inventory += int(output)
	}
}

// sell books sales against the running per-firm share of total demand. The
// share reads total demand as accumulated so far this tick, including sales
// booked by firms stepped earlier.
func (s *Simulation) sell(f *agents.Firm) {
	price := basePrice + s.Inflation*inflationPriceMult
	factor := math.Max(minDemandFactor, s.EmploymentRate)
	avgDemand := s.TotalDemand / float64(max(1, len(s.Firms)))

	qty := min(f.Inventory, int(avgDemand*factor))
	if qty <= 0 {
		return
	}
	f.Profit += float64(qty) * price
	f.Inventory -= qty
	s.TotalDemand += float64(qty)
}

// payWages charges the wage bill and pays one wage to each of
// min(employees, households) households drawn without replacement.
func (s *Simulation) payWages(f *agents.Firm) {
	wage := f.BaseWage * (1 + s.Inflation*wageInflationShare)
	f.Profit -= float64(f.Employees) * wage

	for _, i := range s.rng.Sample(len(s.Households), f.Employees) {
		s.Households[i].Income += wage
		s.TotalIncome += wage
		s.IncomeDistribution = append(s.IncomeDistribution, wage)
	}
}

// adjustEmployment sheds a worker under sustained or heavy losses and hires
// one when comfortably profitable.
func adjustEmployment(f *agents.Firm) {
	if f.LossStreak >= bankruptStreak || f.Profit < fireProfit {
		f.Employees = max(1, f.Employees-1)
		f.LossStreak = 0
	} else if f.Profit > hireProfit {
		f.Employees++
	}
}

func expandIfProfitable(f *agents.Firm) {
	if f.Profit > expandProfit {
		f.Capacity += expandCapacity
		f.BaseWage *= expandWageRaise
	}
}

// checkBankruptcy puts a firm with a long, deep loss into bankruptcy.
// Already-bankrupt firms never re-enter.
func (s *Simulation) checkBankruptcy(idx int, f *agents.Firm) {
	if f.Bankrupt || f.LossStreak < bankruptStreak || f.Profit >= bankruptProfit {
		return
	}
	f.Bankrupt = true
	f.Employees = 0
	f.Inventory = 0
	f.Capacity /= 2
	s.addUnrest(bankruptUnrest)
	s.Government.Budget += bankruptRecovered

	s.EmitEvent(Event{
		Tick:        s.Tick + 1,
		Description: fmt.Sprintf("Firm %d went bankrupt after %d losing ticks", idx, f.LossStreak),
		Category:    "firm",
		Meta: map[string]any{
			"firm":     idx,
			"profit":   f.Profit,
			"capacity": f.Capacity,
		},
	})
}

// checkRecovery returns a bankrupt firm to solvency once its profit turns
// positive. Capacity is kept; employees and inventory are not restored.
func (s *Simulation) checkRecovery(idx int, f *agents.Firm, profit float64) {
	if !f.Bankrupt || profit <= 0 {
		return
	}
	f.Bankrupt = false
	s.EmitEvent(Event{
		Tick:        s.Tick + 1,
		Description: fmt.Sprintf("Firm %d emerged from bankruptcy", idx),
		Category:    "firm",
		Meta:        map[string]any{"firm": idx, "capacity": f.Capacity},
	})
}
