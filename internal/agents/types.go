// Package agents provides the household, firm, and government data model and
// the spawner that creates initial populations.
// Behavior lives in the engine package, which owns the shared simulation state.
package agents

// Household is a multi-member unit that earns wages, pays living costs, and
// spends part of its wealth each tick.
type Household struct {
	ID      int `json:"id"`
	Members int `json:"members"` // Fixed, ≥ 1

	// Earner slots; true = employed this tick. Grows up to Members, never shrinks.
	Earners []bool `json:"earners"`

	Wealth       float64 `json:"wealth"`         // ≥ 0, clamped at every mutation
	CostOfLiving float64 `json:"cost_of_living"` // Per member per tick, drawn once
	Income       float64 `json:"income"`         // Wages received since the last household step

	// Topology attachments, populated right after population creation.
	Neighbors       []int `json:"neighbors"`        // Social-graph neighbors (household indices)
	Region          int   `json:"region"`           // Region label, 1-based
	TradingPartners []int `json:"trading_partners"` // Trade-network neighbors
	ShockZone       bool  `json:"shock_zone"`
}

// EmployedCount returns how many earner slots are employed.
func (h *Household) EmployedCount() int {
	n := 0
	for _, e := range h.Earners {
		if e {
			n++
		}
	}
	return n
}

// EmploymentRatio returns the employed fraction of earner slots.
// ok is false when the household has no slots.
func (h *Household) EmploymentRatio() (ratio float64, ok bool) {
	if len(h.Earners) == 0 {
		return 0, false
	}
	return float64(h.EmployedCount()) / float64(len(h.Earners)), true
}

// AddEarner appends a slot unless the household is already at member count.
func (h *Household) AddEarner(employed bool) bool {
	if len(h.Earners) >= h.Members {
		return false
	}
	h.Earners = append(h.Earners, employed)
	return true
}

// DebitWealth subtracts amount, flooring wealth at zero.
func (h *Household) DebitWealth(amount float64) {
	h.Wealth -= amount
	if h.Wealth < 0 {
		h.Wealth = 0
	}
}

// Firm produces goods, sells against household demand, and pays wages.
type Firm struct {
	ID         int     `json:"id"`
	Employees  int     `json:"employees"`   // ≥ 0
	Capacity   int     `json:"capacity"`    // Production capacity, ≥ 0
	Inventory  int     `json:"inventory"`   // ≥ 0
	BaseWage   float64 `json:"base_wage"`   // Drifts upward only on expansion
	Profit     float64 `json:"profit"`      // Per-tick P&L
	LossStreak int     `json:"loss_streak"` // Consecutive ticks with negative profit
	Bankrupt   bool    `json:"bankrupt"`
}

// ScaleCapacity multiplies capacity by factor, flooring the result.
func (f *Firm) ScaleCapacity(factor float64) {
	f.Capacity = int(float64(f.Capacity) * factor)
	if f.Capacity < 0 {
		f.Capacity = 0
	}
}

// ScaleEmployees multiplies the headcount by factor, flooring the result.
func (f *Firm) ScaleEmployees(factor float64) {
	f.Employees = int(float64(f.Employees) * factor)
	if f.Employees < 0 {
		f.Employees = 0
	}
}

// DrawInventory removes up to qty units, flooring inventory at zero.
func (f *Firm) DrawInventory(qty int) {
	f.Inventory -= qty
	if f.Inventory < 0 {
		f.Inventory = 0
	}
}

// Government runs fiscal and monetary policy over the whole population.
type Government struct {
	Budget float64 `json:"budget"` // May dip negative until the emergency-tax reaction

	// Tax rates only ratchet upward.
	FirmTaxRate      float64 `json:"firm_tax_rate"`
	HouseholdTaxRate float64 `json:"household_tax_rate"`

	MinimumWage  float64 `json:"minimum_wage"`  // Informational
	InterestRate float64 `json:"interest_rate"` // Floored at MinInterestRate when easing
}

// MinInterestRate is the floor applied when monetary policy eases.
const MinInterestRate = 0.01
