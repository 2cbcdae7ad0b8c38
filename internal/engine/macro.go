// Macro recalibration: quarterly drift in inflation, employment, and unrest.
package engine

import (
	"fmt"
	"log/slog"

	"github.com/dustin/go-humanize"

	"github.com/talgya/collapse-sim/internal/economy"
)

// RecalibrationInterval is the number of ticks between macro recalibrations.
const RecalibrationInterval = 90

const (
	highUnrestRatio    = 0.25 // Unrest per household that starts eroding employment
	lowEmploymentDrift = 0.8  // Below this employment rate, inflation drifts up faster
	unrestDissipation  = 0.01 // Share of household count dissipated each quarter
)

// recalibrate drifts the macro state. Runs every RecalibrationInterval ticks.
func (s *Simulation) recalibrate() {
	trend := s.rng.Uniform(-0.005, 0.01)
	if s.EmploymentRate < lowEmploymentDrift {
		trend += 0.005
	}
	s.Inflation = max(0, economy.Round(s.Inflation+trend, economy.MacroPlaces))

	// NewSimulation guarantees at least one household.
	unrestRatio := float64(s.Unrest) / float64(len(s.Households))
	if unrestRatio > highUnrestRatio {
		s.EmploymentRate -= s.rng.Uniform(0.01, 0.03)
	} else {
		s.EmploymentRate += s.rng.Uniform(-0.01, 0.01)
	}
	s.EmploymentRate = economy.Round(clampEmployment(s.EmploymentRate), economy.MacroPlaces)

	s.addUnrest(-int(float64(len(s.Households)) * unrestDissipation))
	s.Recalibrations++

	slog.Info("quarterly report",
		"tick", s.Tick,
		"time", SimTime(s.Tick),
		"inflation", fmt.Sprintf("%.3f", s.Inflation),
		"employment", fmt.Sprintf("%.3f", s.EmploymentRate),
		"unrest", s.Unrest,
		"budget", humanize.Commaf(economy.Round(s.Government.Budget, 0)),
		"firm_tax", fmt.Sprintf("%.2f", s.Government.FirmTaxRate),
	)
}
