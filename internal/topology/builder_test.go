package topology

import (
	"testing"

	"github.com/talgya/collapse-sim/internal/entropy"
)

func TestBuildSocial_NodeCountAndDensity(t *testing.T) {
	g := BuildSocial(200, 0.1, entropy.New(42))
	if g.NodeCount() != 200 {
		t.Fatalf("NodeCount=%d want 200", g.NodeCount())
	}
	if g.Directed() {
		t.Fatalf("social graph must be undirected")
	}
	pairs := 200 * 199 / 2
	density := float64(g.EdgeCount()) / float64(pairs)
	if density < 0.08 || density > 0.12 {
		t.Fatalf("edge density %.3f far from 0.1", density)
	}
	for _, e := range g.Edges() {
		if !g.HasEdge(e.To, e.From) {
			t.Fatalf("edge %v-%v not symmetric", e.From, e.To)
		}
	}
}

func TestBuildSocial_Extremes(t *testing.T) {
	src := entropy.New(1)
	if g := BuildSocial(10, 0, src); g.EdgeCount() != 0 || g.NodeCount() != 10 {
		t.Fatalf("p=0: edges=%d nodes=%d", g.EdgeCount(), g.NodeCount())
	}
	if g := BuildSocial(10, 1, src); g.EdgeCount() != 45 {
		t.Fatalf("p=1: edges=%d want 45", g.EdgeCount())
	}
}

func TestBuildSocial_SparseGenerator(t *testing.T) {
	n := 3000
	g := BuildSocial(n, 0.01, entropy.New(5))
	if g.NodeCount() != n {
		t.Fatalf("NodeCount=%d want %d", g.NodeCount(), n)
	}
	pairs := n * (n - 1) / 2
	density := float64(g.EdgeCount()) / float64(pairs)
	if density < 0.009 || density > 0.011 {
		t.Fatalf("sparse density %.4f far from 0.01", density)
	}
	for _, e := range g.Edges() {
		if e.From == e.To {
			t.Fatalf("self loop on %v", e.From)
		}
	}
}

func TestBuildPolicy_OneWeightedEdgePerFirm(t *testing.T) {
	g := BuildPolicy(25, entropy.New(9))
	if g.EdgeCount() != 25 {
		t.Fatalf("EdgeCount=%d want 25", g.EdgeCount())
	}
	for i := 0; i < 25; i++ {
		w, ok := g.Weight(Government, Firm(i))
		if !ok {
			t.Fatalf("missing edge to firm %d", i)
		}
		if w < 0.5 || w > 1.5 {
			t.Fatalf("firm %d weight %.3f outside [0.5,1.5]", i, w)
		}
		if g.HasEdge(Firm(i), Government) {
			t.Fatalf("policy graph must be directed")
		}
	}
}

func TestBuildMarket_FullMatch(t *testing.T) {
	g := BuildMarket(4, 3, 1, entropy.New(2))
	if g.EdgeCount() != 12 {
		t.Fatalf("EdgeCount=%d want 12", g.EdgeCount())
	}
	if !g.HasEdge(Household(3), Firm(2)) {
		t.Fatalf("expected household 3 → firm 2")
	}
}

func TestBuildTrade_DegreeBound(t *testing.T) {
	for _, n := range []int{4, 5, 17, 100} {
		g := BuildTrade(n, 3, entropy.New(int64(n)))
		for i := 0; i < n; i++ {
			if d := g.Degree(Household(i)); d > 3 {
				t.Fatalf("n=%d household %d degree %d > 3", n, i, d)
			}
		}
		if g.EdgeCount() == 0 {
			t.Fatalf("n=%d expected some trade links", n)
		}
	}
}

func TestPickShockZones_Distinct(t *testing.T) {
	zones := PickShockZones(50, 7, entropy.New(3))
	if len(zones) != 7 {
		t.Fatalf("len=%d want 7", len(zones))
	}
	seen := map[int]bool{}
	for _, z := range zones {
		if seen[z] {
			t.Fatalf("duplicate zone %d", z)
		}
		seen[z] = true
	}
}

func TestAssignRegions_LabelsInRange(t *testing.T) {
	labels := AssignRegions(300, 4, entropy.New(8))
	groups := GroupRegions(labels, 4)
	total := 0
	for r := 1; r <= 4; r++ {
		total += len(groups[r])
	}
	if total != 300 {
		t.Fatalf("grouped %d households want 300", total)
	}
	for i, l := range labels {
		if l < 1 || l > 4 {
			t.Fatalf("household %d label %d out of range", i, l)
		}
	}
}

func TestAssignRegionsNoise_Balanced(t *testing.T) {
	labels := AssignRegionsNoise(100, 4, 77)
	groups := GroupRegions(labels, 4)
	for r := 1; r <= 4; r++ {
		if len(groups[r]) != 25 {
			t.Fatalf("region %d has %d households want 25", r, len(groups[r]))
		}
	}
}

func TestBuild_Deterministic(t *testing.T) {
	a := Build(60, 5, DefaultConfig(), entropy.New(21))
	b := Build(60, 5, DefaultConfig(), entropy.New(21))
	if a.Social.EdgeCount() != b.Social.EdgeCount() || a.Market.EdgeCount() != b.Market.EdgeCount() {
		t.Fatalf("same seed produced different graphs")
	}
	for i := range a.ShockZones {
		if a.ShockZones[i] != b.ShockZones[i] {
			t.Fatalf("shock zones differ: %v vs %v", a.ShockZones, b.ShockZones)
		}
	}
	if len(a.ShockZones) != 2 {
		t.Fatalf("default shock zones=%d want 2", len(a.ShockZones))
	}
}
