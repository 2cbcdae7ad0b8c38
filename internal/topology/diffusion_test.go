package topology

import (
	"testing"

	"github.com/talgya/collapse-sim/internal/entropy"
)

func ring(n int) *Graph {
	g := NewGraph(false)
	for i := 0; i < n; i++ {
		g.AddEdge(Household(i), Household((i+1)%n), 1)
	}
	return g
}

func TestDiffuse_CertainSpreadRespectsDepth(t *testing.T) {
	g := ring(20)
	got := Diffuse(g, Household(0), 1, 3, entropy.New(1))
	// Depth 3 on a ring reaches 3 nodes each way plus the source.
	if len(got) != 7 {
		t.Fatalf("visited %d want 7: %v", len(got), got)
	}
	if !g.Tagged(Household(3), TagInformed) || !g.Tagged(Household(17), TagInformed) {
		t.Fatalf("expected nodes 3 and 17 informed")
	}
	if g.Tagged(Household(4), TagInformed) {
		t.Fatalf("node 4 is beyond max depth")
	}
}

func TestDiffuse_CyclesVisitedOnce(t *testing.T) {
	g := NewGraph(false)
	for i := 0; i < 6; i++ {
		for j := i + 1; j < 6; j++ {
			g.AddEdge(Household(i), Household(j), 1)
		}
	}
	got := Diffuse(g, Household(2), 1, 10, entropy.New(4))
	if len(got) != 6 {
		t.Fatalf("visited %d want 6", len(got))
	}
	seen := map[Node]bool{}
	for _, n := range got {
		if seen[n] {
			t.Fatalf("node %v visited twice", n)
		}
		seen[n] = true
	}
}

func TestDiffuse_ZeroProbabilityOnlySource(t *testing.T) {
	g := ring(5)
	got := Diffuse(g, Household(1), 0, 3, entropy.New(2))
	if len(got) != 1 || got[0] != Household(1) {
		t.Fatalf("got %v want only source", got)
	}
}

func TestDiffuse_UnknownSource(t *testing.T) {
	if got := Diffuse(ring(3), Firm(0), 1, 3, entropy.New(2)); got != nil {
		t.Fatalf("expected nil for unknown source, got %v", got)
	}
}
