package lockgraph

import (
	"log/slog"
	"maps"
	"slices"

	"notashelf.dev/flake-graph/internal/flake"
)

type inputKey struct {
	node  int
	input string
}

// resolver owns the graph under construction together with the bookkeeping
// needed to resolve follows paths in any order.
type resolver struct {
	lock    *flake.Lock
	graph   *Graph
	root    int
	visited map[int]bool
	targets map[inputKey]int
	pending map[inputKey]bool
}

// New resolves every input of lock into an edge. It fails without a partial
// graph when the root is missing or any input cannot be resolved.
func New(lock *flake.Lock) (*Graph, error) {
	r, err := newResolver(lock)
	if err != nil {
		return nil, err
	}

	slog.Debug("processing node inputs")
	for i := range r.graph.Nodes {
		if err := r.processNode(i); err != nil {
			return nil, err
		}
	}

	return r.graph, nil
}

// newResolver allocates one graph node per lock entry, without edges.
func newResolver(lock *flake.Lock) (*resolver, error) {
	if lock == nil {
		return nil, &ResolveError{Kind: ErrMissingRoot}
	}
	if _, ok := lock.Nodes[lock.Root]; !ok {
		return nil, &ResolveError{Kind: ErrMissingRoot, Node: lock.Root}
	}

	names := slices.Sorted(maps.Keys(lock.Nodes))
	g := newGraph(len(names), lock.Version)

	slog.Debug("adding nodes to graph", "count", len(names))
	for _, name := range names {
		raw := lock.Nodes[name]
		g.addNode(Node{Name: name, Original: raw.Original, Locked: raw.Locked})
	}
	g.Root = g.indices[lock.Root]

	return &resolver{
		lock:    lock,
		graph:   g,
		root:    g.Root,
		visited: make(map[int]bool, len(names)),
		targets: make(map[inputKey]int),
		pending: make(map[inputKey]bool),
	}, nil
}

// processNode adds one edge per input of node i. Nodes already processed
// are skipped so edges are never duplicated.
func (r *resolver) processNode(i int) error {
	if r.visited[i] {
		return nil
	}

	name := r.graph.Nodes[i].Name
	inputs := r.lock.Nodes[name].Inputs
	slog.Debug("processing inputs for node", "node", name, "inputs", len(inputs))

	for _, input := range slices.Sorted(maps.Keys(inputs)) {
		target, err := r.resolveInput(i, input)
		if err != nil {
			return err
		}
		slog.Debug("resolved input", "node", name, "input", input, "target", r.graph.Nodes[target].Name)
		r.graph.addEdge(i, target, input)
	}

	r.visited[i] = true
	return nil
}

// resolveInput returns the node that input of node resolves to. Results are
// memoized; meeting an input that is still being resolved means the follows
// chain loops back on itself.
func (r *resolver) resolveInput(node int, input string) (int, error) {
	key := inputKey{node: node, input: input}
	if target, ok := r.targets[key]; ok {
		return target, nil
	}

	name := r.graph.Nodes[node].Name
	ref := r.lock.Nodes[name].Inputs[input]
	if r.pending[key] {
		return 0, &ResolveError{Kind: ErrCyclicFollowsPath, Node: name, Input: input, Path: ref.Steps}
	}

	r.pending[key] = true
	defer delete(r.pending, key)

	var (
		target int
		err    error
	)
	switch ref.Kind {
	case flake.InputFollows:
		target, err = r.follow(name, input, ref.Steps)
	default:
		var ok bool
		target, ok = r.graph.indices[ref.Node]
		if !ok {
			err = &ResolveError{Kind: ErrDanglingReference, Node: name, Input: input, Target: ref.Node}
		}
	}
	if err != nil {
		return 0, err
	}

	r.targets[key] = target
	return target, nil
}

// follow walks steps from the root, one input at a time.
func (r *resolver) follow(node, input string, steps []string) (int, error) {
	if len(steps) == 0 {
		return 0, &ResolveError{Kind: ErrEmptyPath, Node: node, Input: input}
	}

	cursor := r.root
	for _, step := range steps {
		at := r.graph.Nodes[cursor].Name
		if _, ok := r.lock.Nodes[at].Inputs[step]; !ok {
			return 0, &ResolveError{
				Kind:  ErrBrokenFollowsPath,
				Node:  node,
				Input: input,
				Path:  steps,
				Step:  step,
				At:    at,
			}
		}

		next, err := r.resolveInput(cursor, step)
		if err != nil {
			return 0, err
		}
		cursor = next
	}

	return cursor, nil
}
