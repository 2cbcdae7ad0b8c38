// Shock subsystem: rare, cooldown-gated global events.
package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// ShockKind enumerates the global shock effects.
type ShockKind uint8

const (
	FinancialCrisis ShockKind = iota
	PoliticalInstability
	Pandemic
	NaturalDisaster
	TechnologyCrash

	numShockKinds
)

var shockNames = [numShockKinds]string{
	FinancialCrisis:      "financial_crisis",
	PoliticalInstability: "political_instability",
	Pandemic:             "pandemic",
	NaturalDisaster:      "natural_disaster",
	TechnologyCrash:      "technology_crash",
}

var shockAliases = map[string]ShockKind{
	"pandemic_outbreak": Pandemic,
	"tech_collapse":     TechnologyCrash,
}

// ErrUnknownShock is returned for a shock name that maps to no effect.
var ErrUnknownShock = errors.New("unknown shock")

func (k ShockKind) String() string {
	if k < numShockKinds {
		return shockNames[k]
	}
	return fmt.Sprintf("shock(%d)", uint8(k))
}

// ShockKinds lists every shock in canonical order.
func ShockKinds() []ShockKind {
	out := make([]ShockKind, numShockKinds)
	for i := range out {
		out[i] = ShockKind(i)
	}
	return out
}

// ParseShockKind maps a name such as "financial_crisis" or "Natural Disaster"
// to its kind. Matching ignores case, and spaces or hyphens stand for
// underscores.
func ParseShockKind(name string) (ShockKind, error) {
	norm := strings.ToLower(strings.TrimSpace(name))
	norm = strings.NewReplacer(" ", "_", "-", "_").Replace(norm)
	for k, n := range shockNames {
		if n == norm {
			return ShockKind(k), nil
		}
	}
	if k, ok := shockAliases[norm]; ok {
		return k, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownShock, name)
}

// shockEffects holds one handler per shock kind.
var shockEffects = [numShockKinds]func(*Simulation){
	FinancialCrisis: func(s *Simulation) {
		for _, f := range s.Firms {
			f.Profit *= 0.3
			f.ScaleCapacity(0.7)
		}
		s.Inflation += 0.05
		s.addUnrest(20)
	},
	PoliticalInstability: func(s *Simulation) {
		s.addUnrest(40)
		s.Government.FirmTaxRate += 0.05
		s.Government.HouseholdTaxRate += 0.03
	},
	Pandemic: func(s *Simulation) {
		for _, f := range s.Firms {
			f.ScaleEmployees(0.5)
		}
		s.addUnrest(25)
		s.Inflation += 0.03
	},
	NaturalDisaster: func(s *Simulation) {
		for _, h := range s.Households {
			h.DebitWealth(float64(s.rng.IntRange(50, 150)))
		}
		for _, f := range s.Firms {
			f.DrawInventory(s.rng.IntRange(50, 100))
		}
		s.addUnrest(30)
	},
	TechnologyCrash: func(s *Simulation) {
		s.Government.InterestRate += 0.02
		for _, f := range s.Firms {
			f.ScaleCapacity(0.6)
		}
		s.Inflation += 0.04
		s.addUnrest(15)
	},
}

// ShockConfig tunes automatic shock injection.
type ShockConfig struct {
	CooldownTicks int     // Minimum ticks between shocks
	Probability   float64 // Per-tick chance once the cooldown has elapsed
}

// DefaultShockConfig returns a 100-tick cooldown and a 0.0002 per-tick chance.
func DefaultShockConfig() ShockConfig {
	return ShockConfig{CooldownTicks: 100, Probability: 0.0002}
}

// ShockManager decides when shocks fire and applies them.
type ShockManager struct {
	cfg ShockConfig

	// LastShockTick is the tick of the most recent shock, automatic or manual.
	LastShockTick int64
	Fired         int
}

// NewShockManager creates a manager whose first tick is already eligible.
func NewShockManager(cfg ShockConfig) *ShockManager {
	return &ShockManager{
		cfg:           cfg,
		LastShockTick: -int64(cfg.CooldownTicks),
	}
}

// Ready reports whether the cooldown has elapsed at tick.
func (m *ShockManager) Ready(tick uint64) bool {
	return int64(tick)-m.LastShockTick >= int64(m.cfg.CooldownTicks)
}

// MaybeTrigger fires one uniformly chosen shock with the configured probability
// once the cooldown has elapsed. No random number is drawn during cooldown.
func (m *ShockManager) MaybeTrigger(s *Simulation, tick uint64) (ShockKind, bool) {
	if !m.Ready(tick) {
		return 0, false
	}
	if !s.rng.Chance(m.cfg.Probability) {
		return 0, false
	}
	kind := ShockKind(s.rng.Intn(int(numShockKinds)))
	m.Apply(s, kind, tick, "automatic")
	return kind, true
}

// Apply runs kind's effect unconditionally and restarts the cooldown at tick.
func (m *ShockManager) Apply(s *Simulation, kind ShockKind, tick uint64, origin string) {
	shockEffects[kind](s)
	m.LastShockTick = int64(tick)
	m.Fired++

	slog.Warn("shock triggered", "shock", kind.String(), "origin", origin, "tick", tick,
		"unrest", s.Unrest, "inflation", s.Inflation)
	s.EmitEvent(Event{
		Tick:        tick,
		Description: fmt.Sprintf("%s struck the economy", strings.ReplaceAll(kind.String(), "_", " ")),
		Category:    "shock",
		Meta: map[string]any{
			"shock":  kind.String(),
			"origin": origin,
		},
	})
}
