package topology

import (
	"math"
	"sort"

	opensimplex "github.com/ojrac/opensimplex-go"

	"github.com/talgya/collapse-sim/internal/entropy"
)

// RegionMode selects how households are partitioned into regions.
type RegionMode string

const (
	RegionUniform RegionMode = "uniform" // Independent uniform label per household
	RegionNoise   RegionMode = "noise"   // Spatially coherent clusters from simplex noise
)

// Config holds topology generation parameters.
type Config struct {
	ConnectProb   float64    // Social edge probability per household pair
	MatchProb     float64    // Market edge probability per household→firm pair
	NumRegions    int        // Region labels run 1..NumRegions
	RegionMode    RegionMode // Default RegionUniform
	MaxTradeLinks int        // Degree cap in the trade network
	NumShockZones int        // Size of the shock-zone subset
}

// DefaultConfig returns the standard topology parameters.
func DefaultConfig() Config {
	return Config{
		ConnectProb:   0.1,
		MatchProb:     0.3,
		NumRegions:    4,
		RegionMode:    RegionUniform,
		MaxTradeLinks: 3,
		NumShockZones: 2,
	}
}

// Topology is every relational structure built at initialization.
type Topology struct {
	Social     *Graph        // Undirected, households only
	Policy     *Graph        // Directed government→firm, weighted by influence
	Market     *Graph        // Directed household→firm reachability
	Trade      *Graph        // Undirected, degree ≤ MaxTradeLinks
	RegionOf   []int         // Household index → region label
	Regions    map[int][]int // Region label → household indices
	ShockZones []int         // Household indices, distinct
}

// Build constructs all structures for the given population sizes. Draw order is
// fixed (social, policy, market, regions, trade, shock zones) so a seeded source
// reproduces the same topology.
func Build(households, firms int, cfg Config, src *entropy.Source) *Topology {
	t := &Topology{
		Social: BuildSocial(households, cfg.ConnectProb, src),
		Policy: BuildPolicy(firms, src),
		Market: BuildMarket(households, firms, cfg.MatchProb, src),
	}

	if cfg.RegionMode == RegionNoise {
		t.RegionOf = AssignRegionsNoise(households, cfg.NumRegions, int64(src.Intn(math.MaxInt32)))
	} else {
		t.RegionOf = AssignRegions(households, cfg.NumRegions, src)
	}
	t.Regions = GroupRegions(t.RegionOf, cfg.NumRegions)

	t.Trade = BuildTrade(households, cfg.MaxTradeLinks, src)
	t.ShockZones = PickShockZones(households, cfg.NumShockZones, src)
	return t
}

// sparseThreshold is the household count above which the social graph is
// generated by geometric skipping instead of one trial per pair.
const sparseThreshold = 1000

// BuildSocial returns an undirected random graph over n households where each
// pair is connected independently with probability p.
func BuildSocial(n int, p float64, src *entropy.Source) *Graph {
	g := NewGraph(false)
	for i := 0; i < n; i++ {
		g.AddNode(Household(i))
	}
	if p <= 0 || n < 2 {
		return g
	}

	if p >= 1 || n <= sparseThreshold {
		for i := 0; i < n; i++ {
			for j := i + 1; j < n; j++ {
				if src.Chance(p) {
					g.AddEdge(Household(i), Household(j), 1)
				}
			}
		}
		return g
	}

	// Batagelj–Brandes: jump straight to the next present edge.
	lp := math.Log(1 - p)
	v, w := 1, -1
	for v < n {
		lr := math.Log(1 - src.Float())
		w += 1 + int(lr/lp)
		for w >= v && v < n {
			w -= v
			v++
		}
		if v < n {
			g.AddEdge(Household(v), Household(w), 1)
		}
	}
	return g
}

// BuildPolicy returns the directed government→firm graph; each edge carries an
// influence weight drawn from U(0.5, 1.5).
func BuildPolicy(firms int, src *entropy.Source) *Graph {
	g := NewGraph(true)
	g.AddNode(Government)
	for i := 0; i < firms; i++ {
		g.AddEdge(Government, Firm(i), src.Uniform(0.5, 1.5))
	}
	return g
}

// BuildMarket returns the directed household→firm reachability graph; each edge
// is present independently with probability p.
func BuildMarket(households, firms int, p float64, src *entropy.Source) *Graph {
	g := NewGraph(true)
	for i := 0; i < households; i++ {
		g.AddNode(Household(i))
	}
	for j := 0; j < firms; j++ {
		g.AddNode(Firm(j))
	}
	for i := 0; i < households; i++ {
		for j := 0; j < firms; j++ {
			if src.Chance(p) {
				g.AddEdge(Household(i), Firm(j), 1)
			}
		}
	}
	return g
}

// AssignRegions gives each household a uniform random label in 1..k.
// Groups are not balanced.
func AssignRegions(n, k int, src *entropy.Source) []int {
	if k < 1 {
		k = 1
	}
	out := make([]int, n)
	for i := range out {
		out[i] = src.IntRange(1, k)
	}
	return out
}

// noiseScale controls cluster size on the household lattice.
const noiseScale = 0.15

// AssignRegionsNoise lays households on a square lattice, samples a simplex
// field at each position, and splits the sorted field values into k equal
// quantiles, giving contiguous regions of near-equal size.
func AssignRegionsNoise(n, k int, seed int64) []int {
	if k < 1 {
		k = 1
	}
	out := make([]int, n)
	if n == 0 {
		return out
	}

	noise := opensimplex.NewNormalized(seed)
	side := int(math.Ceil(math.Sqrt(float64(n))))

	type sample struct {
		idx int
		val float64
	}
	samples := make([]sample, n)
	for i := 0; i < n; i++ {
		x := float64(i%side) * noiseScale
		y := float64(i/side) * noiseScale
		samples[i] = sample{idx: i, val: noise.Eval2(x, y)}
	}
	sort.SliceStable(samples, func(a, b int) bool { return samples[a].val < samples[b].val })

	for rank, s := range samples {
		out[s.idx] = 1 + rank*k/n
	}
	return out
}

// GroupRegions inverts a label assignment into label → household indices.
// Every label 1..k is present, possibly empty.
func GroupRegions(regionOf []int, k int) map[int][]int {
	groups := make(map[int][]int, k)
	for r := 1; r <= k; r++ {
		groups[r] = nil
	}
	for i, r := range regionOf {
		groups[r] = append(groups[r], i)
	}
	return groups
}

// BuildTrade links each household to up to maxLinks other households chosen
// uniformly without replacement. A partner must still have spare capacity, so
// every household ends with degree ≤ maxLinks.
func BuildTrade(n, maxLinks int, src *entropy.Source) *Graph {
	g := NewGraph(false)
	for i := 0; i < n; i++ {
		g.AddNode(Household(i))
	}
	if maxLinks <= 0 {
		return g
	}

	for i := 0; i < n; i++ {
		self := Household(i)
		need := maxLinks - g.Degree(self)
		if need <= 0 {
			continue
		}
		var pool []int
		for j := 0; j < n; j++ {
			other := Household(j)
			if j == i || g.HasEdge(self, other) || g.Degree(other) >= maxLinks {
				continue
			}
			pool = append(pool, j)
		}
		for _, j := range src.SampleFrom(pool, need) {
			g.AddEdge(self, Household(j), 1)
		}
	}
	return g
}

// PickShockZones returns k distinct household indices (clamped to n).
func PickShockZones(n, k int, src *entropy.Source) []int {
	zones := src.Sample(n, k)
	sort.Ints(zones)
	return zones
}
