// Package topology builds the relational structures connecting agents:
// the household social graph, the government→firm policy graph, market
// reachability, regional clusters, the trade network, and shock zones.
package topology

import "fmt"

// NodeKind distinguishes the three agent populations a graph can connect.
type NodeKind uint8

const (
	KindHousehold NodeKind = iota
	KindFirm
	KindGovernment
)

// Node identifies an agent by population and registration index.
type Node struct {
	Kind  NodeKind `json:"kind"`
	Index int      `json:"index"`
}

// Household returns the node for household i.
func Household(i int) Node { return Node{Kind: KindHousehold, Index: i} }

// Firm returns the node for firm i.
func Firm(i int) Node { return Node{Kind: KindFirm, Index: i} }

// Government is the single government node.
var Government = Node{Kind: KindGovernment}

func (n Node) String() string {
	switch n.Kind {
	case KindHousehold:
		return fmt.Sprintf("Household_%d", n.Index)
	case KindFirm:
		return fmt.Sprintf("Firm_%d", n.Index)
	default:
		return "Government"
	}
}

type edgeRef struct {
	to     int
	weight float64
}

// Graph is an adjacency structure with optional edge weights and node tags.
// Neighbor iteration follows edge insertion order, so traversals that draw
// random numbers per neighbor stay reproducible.
type Graph struct {
	directed bool
	nodes    []Node
	index    map[Node]int
	out      [][]edgeRef
	weights  map[[2]int]float64
	edges    int
	tags     map[int]map[string]struct{}
}

// NewGraph creates an empty graph.
func NewGraph(directed bool) *Graph {
	return &Graph{
		directed: directed,
		index:    make(map[Node]int),
		weights:  make(map[[2]int]float64),
		tags:     make(map[int]map[string]struct{}),
	}
}

// Directed reports whether edges are one-way.
func (g *Graph) Directed() bool { return g.directed }

// AddNode registers n if absent and returns its internal position.
func (g *Graph) AddNode(n Node) int {
	if i, ok := g.index[n]; ok {
		return i
	}
	i := len(g.nodes)
	g.nodes = append(g.nodes, n)
	g.index[n] = i
	g.out = append(g.out, nil)
	return i
}

// AddEdge links a to b with weight w. Self-loops and duplicate edges are ignored.
func (g *Graph) AddEdge(a, b Node, w float64) {
	if a == b {
		return
	}
	ia, ib := g.AddNode(a), g.AddNode(b)
	if _, ok := g.weights[[2]int{ia, ib}]; ok {
		return
	}
	g.weights[[2]int{ia, ib}] = w
	g.out[ia] = append(g.out[ia], edgeRef{to: ib, weight: w})
	if !g.directed {
		g.weights[[2]int{ib, ia}] = w
		g.out[ib] = append(g.out[ib], edgeRef{to: ia, weight: w})
	}
	g.edges++
}

// HasNode reports whether n is part of the graph.
func (g *Graph) HasNode(n Node) bool {
	_, ok := g.index[n]
	return ok
}

// HasEdge reports whether an edge a→b exists (either direction when undirected).
func (g *Graph) HasEdge(a, b Node) bool {
	_, ok := g.Weight(a, b)
	return ok
}

// Weight returns the weight of edge a→b.
func (g *Graph) Weight(a, b Node) (float64, bool) {
	ia, ok := g.index[a]
	if !ok {
		return 0, false
	}
	ib, ok := g.index[b]
	if !ok {
		return 0, false
	}
	w, ok := g.weights[[2]int{ia, ib}]
	return w, ok
}

// Neighbors returns the out-neighbors of n in insertion order.
func (g *Graph) Neighbors(n Node) []Node {
	i, ok := g.index[n]
	if !ok {
		return nil
	}
	out := make([]Node, len(g.out[i]))
	for k, e := range g.out[i] {
		out[k] = g.nodes[e.to]
	}
	return out
}

// Degree returns the number of out-edges of n.
func (g *Graph) Degree(n Node) int {
	i, ok := g.index[n]
	if !ok {
		return 0
	}
	return len(g.out[i])
}

// NodeCount returns the number of nodes.
func (g *Graph) NodeCount() int { return len(g.nodes) }

// EdgeCount returns the number of edges; undirected edges count once.
func (g *Graph) EdgeCount() int { return g.edges }

// Nodes returns all nodes in registration order.
func (g *Graph) Nodes() []Node {
	out := make([]Node, len(g.nodes))
	copy(out, g.nodes)
	return out
}

// Edge is a read-only view of one edge, used for rendering.
type Edge struct {
	From   Node    `json:"from"`
	To     Node    `json:"to"`
	Weight float64 `json:"weight"`
}

// Edges lists every edge once, in insertion order of the source node.
func (g *Graph) Edges() []Edge {
	out := make([]Edge, 0, g.edges)
	for i, refs := range g.out {
		for _, e := range refs {
			if !g.directed && e.to < i {
				continue
			}
			out = append(out, Edge{From: g.nodes[i], To: g.nodes[e.to], Weight: e.weight})
		}
	}
	return out
}

// Tag marks n with tag. Unknown nodes are ignored.
func (g *Graph) Tag(n Node, tag string) {
	i, ok := g.index[n]
	if !ok {
		return
	}
	set := g.tags[i]
	if set == nil {
		set = make(map[string]struct{})
		g.tags[i] = set
	}
	set[tag] = struct{}{}
}

// Tagged reports whether n carries tag.
func (g *Graph) Tagged(n Node, tag string) bool {
	i, ok := g.index[n]
	if !ok {
		return false
	}
	_, ok = g.tags[i][tag]
	return ok
}

// ClearTag removes tag from every node.
func (g *Graph) ClearTag(tag string) {
	for _, set := range g.tags {
		delete(set, tag)
	}
}
