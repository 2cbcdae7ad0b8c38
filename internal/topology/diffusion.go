package topology

import "github.com/talgya/collapse-sim/internal/entropy"

// TagInformed marks nodes reached by Diffuse.
const TagInformed = "informed"

type hop struct {
	node  Node
	depth int
}

// Diffuse spreads information breadth-first from source over g. Each visited
// node is tagged informed; each not-yet-visited neighbor is reached independently
// with probability spreadProb, up to maxDepth hops from the source. The visited
// set deduplicates, so cycles cannot cause repeated work. Nodes are returned in
// visit order.
func Diffuse(g *Graph, source Node, spreadProb float64, maxDepth int, src *entropy.Source) []Node {
	if !g.HasNode(source) || maxDepth < 0 {
		return nil
	}

	visited := make(map[Node]bool)
	var order []Node
	queue := []hop{{node: source, depth: 0}}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if visited[cur.node] || cur.depth > maxDepth {
			continue
		}
		visited[cur.node] = true
		order = append(order, cur.node)
		g.Tag(cur.node, TagInformed)

		if cur.depth == maxDepth {
			continue
		}
		for _, nb := range g.Neighbors(cur.node) {
			if visited[nb] {
				continue
			}
			if src.Chance(spreadProb) {
				queue = append(queue, hop{node: nb, depth: cur.depth + 1})
			}
		}
	}
	return order
}
