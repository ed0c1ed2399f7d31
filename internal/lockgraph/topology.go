package lockgraph

import (
	"errors"
	"fmt"

	graphlib "github.com/dominikbraun/graph"
)

// Topology projects the graph onto a simple directed graph keyed by node
// index. Parallel edges between the same pair of nodes collapse into the
// first one.
func (g *Graph) Topology() (graphlib.Graph[int, int], error) {
	t := graphlib.New(graphlib.IntHash, graphlib.Directed())

	for i, node := range g.Nodes {
		if err := t.AddVertex(i, graphlib.VertexAttribute("label", node.Name)); err != nil {
			return nil, fmt.Errorf("failed to add node %q: %w", node.Name, err)
		}
	}

	for _, edge := range g.Edges {
		err := t.AddEdge(edge.From, edge.To, graphlib.EdgeAttribute("label", edge.Label))
		if err != nil && !errors.Is(err, graphlib.ErrEdgeAlreadyExists) {
			return nil, fmt.Errorf("failed to add input %q of %q: %w", edge.Label, g.Nodes[edge.From].Name, err)
		}
	}

	return t, nil
}

// InputChain returns the edges of a shortest chain of inputs leading from
// the root to node target. The chain is empty for the root itself.
func (g *Graph) InputChain(target int) ([]Edge, error) {
	if target == g.Root {
		return nil, nil
	}

	t, err := g.Topology()
	if err != nil {
		return nil, err
	}

	path, err := graphlib.ShortestPath(t, g.Root, target)
	if errors.Is(err, graphlib.ErrTargetNotReachable) {
		return nil, fmt.Errorf("%q: %w", g.Nodes[target].Name, ErrUnreachable)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find a path to %q: %w", g.Nodes[target].Name, err)
	}

	chain := make([]Edge, 0, len(path)-1)
	for k := 1; k < len(path); k++ {
		edge, ok := g.firstEdge(path[k-1], path[k])
		if !ok {
			return nil, fmt.Errorf("no input from %q to %q", g.Nodes[path[k-1]].Name, g.Nodes[path[k]].Name)
		}
		chain = append(chain, edge)
	}
	return chain, nil
}

func (g *Graph) firstEdge(from, to int) (Edge, bool) {
	for _, id := range g.out[from] {
		if g.Edges[id].To == to {
			return g.Edges[id], true
		}
	}
	return Edge{}, false
}

// Unreachable returns the indices of nodes no input chain from the root
// leads to, in ascending order. Such entries are stale lock nodes.
func (g *Graph) Unreachable() ([]int, error) {
	t, err := g.Topology()
	if err != nil {
		return nil, err
	}

	seen := make([]bool, len(g.Nodes))
	err = graphlib.BFS(t, g.Root, func(i int) bool {
		seen[i] = true
		return false
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk from root: %w", err)
	}

	var unreachable []int
	for i, ok := range seen {
		if !ok {
			unreachable = append(unreachable, i)
		}
	}
	return unreachable, nil
}
