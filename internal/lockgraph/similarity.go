package lockgraph

import (
	"fmt"
	"maps"
	"slices"

	"notashelf.dev/flake-graph/internal/flake"
)

// Digest identifies the source a node is pinned to, ignoring revision,
// hash and timestamp. Nodes without a locked reference have no digest.
func Digest(locked *flake.Locked) (string, bool) {
	if locked == nil {
		return "", false
	}

	switch ref := locked.Ref.(type) {
	case flake.GitHub:
		return fmt.Sprintf("%s::%s/%s", ref.Type(), ref.Owner, ref.Repo), true
	case flake.GitLab:
		return fmt.Sprintf("%s::%s/%s", ref.Type(), ref.Owner, ref.Repo), true
	case flake.SourceHut:
		return fmt.Sprintf("%s::%s/%s", ref.Type(), ref.Owner, ref.Repo), true
	case flake.Git:
		return fmt.Sprintf("%s::%s", ref.Type(), ref.URL), true
	case flake.Tarball:
		return fmt.Sprintf("%s::%s", ref.Type(), ref.URL), true
	case flake.Path:
		return fmt.Sprintf("%s::%s", ref.Type(), ref.Path), true
	case flake.Indirect:
		return fmt.Sprintf("%s::%s", ref.Type(), ref.ID), true
	default:
		return "", false
	}
}

func (g *Graph) Digest(i int) (string, bool) {
	return Digest(g.Nodes[i].Locked)
}

// SimilarityMap groups node indices by digest. Indices within a group are
// ascending.
func (g *Graph) SimilarityMap() map[string][]int {
	groups := make(map[string][]int)
	for i := range g.Nodes {
		if digest, ok := g.Digest(i); ok {
			groups[digest] = append(groups[digest], i)
		}
	}
	return groups
}

// Group is a set of nodes pinned to the same source.
type Group struct {
	Digest string
	Nodes  []int
}

// Duplicates returns the groups with more than one node, ordered by digest.
func (g *Graph) Duplicates() []Group {
	similar := g.SimilarityMap()

	var groups []Group
	for _, digest := range slices.Sorted(maps.Keys(similar)) {
		if nodes := similar[digest]; len(nodes) > 1 {
			groups = append(groups, Group{Digest: digest, Nodes: nodes})
		}
	}
	return groups
}
