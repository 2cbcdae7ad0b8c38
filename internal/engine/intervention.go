package engine

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/talgya/collapse-sim/internal/topology"
)

// ScheduledShock fires a named shock once tick Tick has completed.
type ScheduledShock struct {
	Tick uint64 `json:"tick" yaml:"tick"`
	Name string `json:"name" yaml:"name"`
}

// TriggerShock applies the named shock immediately, bypassing the probability
// draw but restarting the cooldown at the current tick. An unknown name is
// logged as a warning, changes nothing, and returns an error wrapping
// ErrUnknownShock.
func (s *Simulation) TriggerShock(name string) (string, error) {
	kind, err := ParseShockKind(name)
	if err != nil {
		slog.Warn("manual shock ignored", "name", name, "error", err)
		return "", err
	}

	s.Shocks.Apply(s, kind, s.Tick, "manual")
	desc := fmt.Sprintf("%s activated manually at tick %d",
		strings.ReplaceAll(kind.String(), "_", " "), s.Tick)

	s.EmitEvent(Event{
		Tick:        s.Tick,
		Description: desc,
		Category:    "intervention",
		Meta:        map[string]any{"shock": kind.String()},
	})
	slog.Info("shock intervention", "shock", kind.String(), "tick", s.Tick)
	return desc, nil
}

// Default diffusion parameters.
const (
	DefaultSpreadProb  = 0.3
	DefaultSpreadDepth = 3
)

// SpreadInformation diffuses a rumor from household source over the social
// graph, tagging reached households informed. It returns the reached
// household indices in visit order.
func (s *Simulation) SpreadInformation(source int, spreadProb float64, maxDepth int) ([]int, error) {
	if source < 0 || source >= len(s.Households) {
		return nil, fmt.Errorf("rumor source %d out of range [0, %d)", source, len(s.Households))
	}
	if spreadProb < 0 || spreadProb > 1 {
		return nil, fmt.Errorf("spread probability %v outside [0, 1]", spreadProb)
	}

	visited := topology.Diffuse(s.Topology.Social, topology.Household(source), spreadProb, maxDepth, s.rng)
	reached := nodeIndices(visited)

	s.EmitEvent(Event{
		Tick:        s.Tick,
		Description: fmt.Sprintf("A rumor from household %d reached %d households", source, len(reached)),
		Category:    "intervention",
		Meta: map[string]any{
			"source":      source,
			"reached":     len(reached),
			"spread_prob": spreadProb,
			"max_depth":   maxDepth,
		},
	})
	slog.Info("rumor intervention", "source", source, "reached", len(reached))
	return reached, nil
}

// Informed reports whether household i has been reached by a rumor.
func (s *Simulation) Informed(i int) bool {
	return s.Topology.Social.Tagged(topology.Household(i), topology.TagInformed)
}
