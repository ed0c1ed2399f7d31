package lockgraph

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"notashelf.dev/flake-graph/internal/flake"
)

func loadFixture(t *testing.T, name string) *flake.Lock {
	t.Helper()
	lock, err := flake.Load(filepath.Join("testdata", name))
	require.NoError(t, err, "failed to load fixture %s", name)
	return lock
}

func mustGraph(t *testing.T, lock *flake.Lock) *Graph {
	t.Helper()
	g, err := New(lock)
	require.NoError(t, err)
	return g
}

func githubLock(owner, repo, rev string) *flake.Locked {
	return &flake.Locked{
		LastModified: 1692742407,
		NarHash:      "sha256-" + rev,
		Ref:          flake.GitHub{Forge: flake.Forge{Owner: owner, Repo: repo, Rev: rev}},
	}
}

func lockOf(nodes map[string]flake.Node) *flake.Lock {
	return &flake.Lock{Nodes: nodes, Root: "root", Version: 7}
}

// target returns the name of the node reached by the input edge of from
// labelled label.
func target(t *testing.T, g *Graph, from, label string) string {
	t.Helper()
	i, ok := g.Index(from)
	require.True(t, ok, "node %q not in graph", from)

	var found []string
	for _, e := range g.Outgoing(i) {
		if e.Label == label {
			found = append(found, g.Nodes[e.To].Name)
		}
	}
	require.Len(t, found, 1, "expected exactly one %q edge from %q", label, from)
	return found[0]
}

func inputCount(lock *flake.Lock) int {
	total := 0
	for _, node := range lock.Nodes {
		total += len(node.Inputs)
	}
	return total
}

func TestNew_SingleDirectInput(t *testing.T) {
	lock := lockOf(map[string]flake.Node{
		"root": {
			Inputs: map[string]flake.Input{"nixpkgs": flake.Direct("nixpkgs")},
		},
		"nixpkgs": {Locked: githubLock("NixOS", "nixpkgs", "abc123")},
	})

	g := mustGraph(t, lock)

	require.Len(t, g.Nodes, 2)
	require.Len(t, g.Edges, 1)
	assert.Equal(t, "nixpkgs", g.Edges[0].Label)
	assert.Equal(t, "root", g.Nodes[g.Edges[0].From].Name)
	assert.Equal(t, "nixpkgs", g.Nodes[g.Edges[0].To].Name)
	assert.Equal(t, "root", g.Nodes[g.Root].Name)
	assert.Equal(t, 7, g.Version)

	dot := g.DOT(DefaultRenderOptions())
	assert.Contains(t, dot, `label = "nixpkgs\ngithub:NixOS/nixpkgs"`)
	assert.Contains(t, dot, `URL = "https://github.com/NixOS/nixpkgs/tree/abc123"`)
}

func TestNew_FollowsPathThroughRoot(t *testing.T) {
	lock := lockOf(map[string]flake.Node{
		"root": {
			Inputs: map[string]flake.Input{"nixpkgs": flake.Direct("nixpkgs")},
		},
		"home-manager": {
			Locked: githubLock("nix-community", "home-manager", "8bde7a6"),
			Inputs: map[string]flake.Input{"nixpkgs": flake.Follows("nixpkgs")},
		},
		"nixpkgs": {Locked: githubLock("NixOS", "nixpkgs", "a2eca34")},
	})

	g := mustGraph(t, lock)

	require.Len(t, g.Nodes, 3)
	require.Len(t, g.Edges, 2)
	for _, e := range g.Edges {
		assert.Equal(t, "nixpkgs", e.Label)
		assert.Equal(t, "nixpkgs", g.Nodes[e.To].Name)
	}
	assert.Equal(t, "nixpkgs", target(t, g, "root", "nixpkgs"))
	assert.Equal(t, "nixpkgs", target(t, g, "home-manager", "nixpkgs"))
	assert.Empty(t, g.Duplicates())
}

func TestNew_PathStartsAtRoot(t *testing.T) {
	lock := lockOf(map[string]flake.Node{
		"root": {
			Inputs: map[string]flake.Input{
				"a": flake.Direct("A"),
				"b": flake.Direct("B"),
			},
		},
		"A": {},
		"B": {
			Inputs: map[string]flake.Input{"x": flake.Follows("a")},
		},
	})

	g := mustGraph(t, lock)

	assert.Equal(t, "A", target(t, g, "B", "x"))
}

func TestNew_NestedFollowsResolvedEagerly(t *testing.T) {
	// agenix sorts before home-manager, so its path has to resolve
	// home-manager's own follows before that node's turn comes up.
	lock := lockOf(map[string]flake.Node{
		"root": {
			Inputs: map[string]flake.Input{
				"agenix":  flake.Direct("agenix"),
				"hm":      flake.Direct("home-manager"),
				"nixpkgs": flake.Direct("nixpkgs"),
			},
		},
		"agenix": {
			Inputs: map[string]flake.Input{
				"nixpkgs": flake.Follows("hm", "nixpkgs"),
				"utils":   flake.Follows("hm", "utils"),
			},
		},
		"home-manager": {
			Inputs: map[string]flake.Input{
				"nixpkgs": flake.Follows("nixpkgs"),
				"utils":   flake.Direct("flake-utils"),
			},
		},
		"flake-utils": {Locked: githubLock("numtide", "flake-utils", "1170")},
		"nixpkgs":     {Locked: githubLock("NixOS", "nixpkgs", "a2ec")},
	})

	g := mustGraph(t, lock)

	assert.Equal(t, "nixpkgs", target(t, g, "agenix", "nixpkgs"))
	assert.Equal(t, "flake-utils", target(t, g, "agenix", "utils"))
	assert.Equal(t, "nixpkgs", target(t, g, "home-manager", "nixpkgs"))
	assert.Len(t, g.Edges, inputCount(lock))
}

func TestNew_RootInputFollowsSibling(t *testing.T) {
	lock := lockOf(map[string]flake.Node{
		"root": {
			Inputs: map[string]flake.Input{
				"a": flake.Direct("A"),
				"b": flake.Follows("a"),
			},
		},
		"A": {},
	})

	g := mustGraph(t, lock)

	assert.Equal(t, "A", target(t, g, "root", "a"))
	assert.Equal(t, "A", target(t, g, "root", "b"))
	assert.Len(t, g.Edges, 2)
}

func TestNew_EdgeCountMatchesInputs(t *testing.T) {
	testCases := []string{"simple.lock", "bound.lock", "dupes.lock"}

	for _, name := range testCases {
		t.Run(name, func(t *testing.T) {
			lock := loadFixture(t, name)
			g := mustGraph(t, lock)

			assert.Len(t, g.Nodes, len(lock.Nodes))
			assert.Len(t, g.Edges, inputCount(lock))
			for i, node := range g.Nodes {
				assert.Len(t, g.Outgoing(i), len(lock.Nodes[node.Name].Inputs), "outgoing edges of %s", node.Name)
				idx, ok := g.Index(node.Name)
				assert.True(t, ok)
				assert.Equal(t, i, idx)
			}
		})
	}
}

func TestProcessNode_Idempotent(t *testing.T) {
	lock := loadFixture(t, "bound.lock")
	want := mustGraph(t, lock).Edges

	r, err := newResolver(lock)
	require.NoError(t, err)

	hm, _ := r.graph.Index("home-manager")
	root, _ := r.graph.Index("root")

	for range 2 {
		require.NoError(t, r.processNode(hm))
		require.NoError(t, r.processNode(root))
	}
	for i := range r.graph.Nodes {
		require.NoError(t, r.processNode(i))
	}

	assert.ElementsMatch(t, want, r.graph.Edges)
}

func TestNew_Errors(t *testing.T) {
	testCases := []struct {
		name  string
		lock  *flake.Lock
		kind  error
		check func(t *testing.T, err *ResolveError)
	}{
		{
			name: "dangling direct reference",
			lock: lockOf(map[string]flake.Node{
				"root": {Inputs: map[string]flake.Input{"x": flake.Direct("missing")}},
			}),
			kind: ErrDanglingReference,
			check: func(t *testing.T, err *ResolveError) {
				assert.Equal(t, "root", err.Node)
				assert.Equal(t, "x", err.Input)
				assert.Equal(t, "missing", err.Target)
			},
		},
		{
			name: "dangling reference reached through a path",
			lock: lockOf(map[string]flake.Node{
				"root": {Inputs: map[string]flake.Input{"a": flake.Direct("gone"), "b": flake.Direct("B")}},
				"B":    {Inputs: map[string]flake.Input{"x": flake.Follows("a")}},
			}),
			kind: ErrDanglingReference,
			check: func(t *testing.T, err *ResolveError) {
				assert.Equal(t, "gone", err.Target)
			},
		},
		{
			name: "empty follows path",
			lock: lockOf(map[string]flake.Node{
				"root": {Inputs: map[string]flake.Input{"x": flake.Follows()}},
			}),
			kind: ErrEmptyPath,
			check: func(t *testing.T, err *ResolveError) {
				assert.Equal(t, "root", err.Node)
				assert.Equal(t, "x", err.Input)
			},
		},
		{
			name: "path step missing on reached node",
			lock: lockOf(map[string]flake.Node{
				"root": {Inputs: map[string]flake.Input{"a": flake.Direct("A"), "b": flake.Direct("B")}},
				"A":    {},
				"B":    {Inputs: map[string]flake.Input{"x": flake.Follows("a", "nope")}},
			}),
			kind: ErrBrokenFollowsPath,
			check: func(t *testing.T, err *ResolveError) {
				assert.Equal(t, "B", err.Node)
				assert.Equal(t, "x", err.Input)
				assert.Equal(t, "nope", err.Step)
				assert.Equal(t, "A", err.At)
				assert.Equal(t, []string{"a", "nope"}, err.Path)
			},
		},
		{
			name: "path step missing on root",
			lock: lockOf(map[string]flake.Node{
				"root": {Inputs: map[string]flake.Input{"b": flake.Direct("B")}},
				"B":    {Inputs: map[string]flake.Input{"x": flake.Follows("nixpkgs")}},
			}),
			kind: ErrBrokenFollowsPath,
			check: func(t *testing.T, err *ResolveError) {
				assert.Equal(t, "root", err.At)
			},
		},
		{
			name: "input follows itself",
			lock: lockOf(map[string]flake.Node{
				"root": {Inputs: map[string]flake.Input{"a": flake.Follows("a")}},
			}),
			kind: ErrCyclicFollowsPath,
		},
		{
			name: "inputs follow each other",
			lock: lockOf(map[string]flake.Node{
				"root": {Inputs: map[string]flake.Input{"a": flake.Follows("b"), "b": flake.Follows("a")}},
			}),
			kind: ErrCyclicFollowsPath,
		},
		{
			name: "path loops back through an intermediate node",
			lock: lockOf(map[string]flake.Node{
				"root": {Inputs: map[string]flake.Input{"a": flake.Direct("A")}},
				"A":    {Inputs: map[string]flake.Input{"x": flake.Follows("a", "x")}},
			}),
			kind: ErrCyclicFollowsPath,
			check: func(t *testing.T, err *ResolveError) {
				assert.Equal(t, "A", err.Node)
				assert.Equal(t, "x", err.Input)
			},
		},
		{
			name: "root missing from nodes",
			lock: &flake.Lock{
				Nodes: map[string]flake.Node{"nixpkgs": {}},
				Root:  "root",
			},
			kind: ErrMissingRoot,
			check: func(t *testing.T, err *ResolveError) {
				assert.Equal(t, "root", err.Node)
			},
		},
		{
			name: "nil lock",
			lock: nil,
			kind: ErrMissingRoot,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			g, err := New(tc.lock)
			require.Error(t, err)
			assert.Nil(t, g)
			assert.ErrorIs(t, err, tc.kind)

			var resolveErr *ResolveError
			require.True(t, errors.As(err, &resolveErr), "expected *ResolveError, got %T", err)
			assert.NotEmpty(t, resolveErr.Error())
			if tc.check != nil {
				tc.check(t, resolveErr)
			}
		})
	}
}

func TestNew_MissingRootSharesFlakeSentinel(t *testing.T) {
	_, err := New(&flake.Lock{Nodes: map[string]flake.Node{}, Root: "root"})
	assert.ErrorIs(t, err, flake.ErrMissingRoot)
}

func TestResolveError_Messages(t *testing.T) {
	testCases := []struct {
		name     string
		err      *ResolveError
		expected string
	}{
		{
			name:     "dangling",
			err:      &ResolveError{Kind: ErrDanglingReference, Node: "root", Input: "x", Target: "gone"},
			expected: `dangling reference: node "root" input "x": node "gone" does not exist`,
		},
		{
			name:     "broken",
			err:      &ResolveError{Kind: ErrBrokenFollowsPath, Node: "B", Input: "x", Path: []string{"a", "nope"}, Step: "nope", At: "A"},
			expected: `broken follows path: node "B" input "x": step "nope" of "a/nope" is not an input of "A"`,
		},
		{
			name:     "empty",
			err:      &ResolveError{Kind: ErrEmptyPath, Node: "root", Input: "x"},
			expected: `empty follows path: node "root" input "x"`,
		},
		{
			name:     "cyclic",
			err:      &ResolveError{Kind: ErrCyclicFollowsPath, Node: "root", Input: "a", Path: []string{"a"}},
			expected: `cyclic follows path: node "root" input "a": "a" never reaches a node`,
		},
		{
			name:     "missing root",
			err:      &ResolveError{Kind: ErrMissingRoot, Node: "root"},
			expected: `missing root node: "root" is not a node`,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, tc.err.Error())
		})
	}
}
