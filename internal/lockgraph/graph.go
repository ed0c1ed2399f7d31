// Package lockgraph resolves a parsed flake.lock into a directed graph of
// nodes connected by input edges, and renders or analyses that graph.
package lockgraph

import (
	"slices"

	"notashelf.dev/flake-graph/internal/flake"
)

type Node struct {
	Name     string
	Original flake.Reference
	Locked   *flake.Locked
}

// Edge points from a dependant to its dependency and is labelled with the
// input name that declared it.
type Edge struct {
	From  int
	To    int
	Label string
}

// Graph is the resolved form of a lock. Node indices follow the lexical
// order of node names; edges follow (dependant, input name) order.
type Graph struct {
	Nodes   []Node
	Edges   []Edge
	Root    int
	Version int

	indices map[string]int
	out     [][]int
	in      [][]int
}

func newGraph(size, version int) *Graph {
	return &Graph{
		Nodes:   make([]Node, 0, size),
		Version: version,
		indices: make(map[string]int, size),
		out:     make([][]int, size),
		in:      make([][]int, size),
	}
}

func (g *Graph) addNode(n Node) int {
	i := len(g.Nodes)
	g.Nodes = append(g.Nodes, n)
	g.indices[n.Name] = i
	return i
}

func (g *Graph) addEdge(from, to int, label string) {
	id := len(g.Edges)
	g.Edges = append(g.Edges, Edge{From: from, To: to, Label: label})
	g.out[from] = append(g.out[from], id)
	g.in[to] = append(g.in[to], id)
}

// Index returns the index of the node with the given name.
func (g *Graph) Index(name string) (int, bool) {
	i, ok := g.indices[name]
	return i, ok
}

// Outgoing returns the input edges declared by node i.
func (g *Graph) Outgoing(i int) []Edge {
	return g.collect(g.out[i])
}

// Incoming returns the edges pointing at node i.
func (g *Graph) Incoming(i int) []Edge {
	return g.collect(g.in[i])
}

func (g *Graph) collect(ids []int) []Edge {
	edges := make([]Edge, 0, len(ids))
	for _, id := range ids {
		edges = append(edges, g.Edges[id])
	}
	return edges
}

// Dependants returns the sorted, de-duplicated names of nodes that have an
// input resolving to node i.
func (g *Graph) Dependants(i int) []string {
	names := make([]string, 0, len(g.in[i]))
	for _, id := range g.in[i] {
		names = append(names, g.Nodes[g.Edges[id].From].Name)
	}
	slices.Sort(names)
	return slices.Compact(names)
}
