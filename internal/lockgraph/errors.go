package lockgraph

import (
	"errors"
	"fmt"
	"strings"

	"notashelf.dev/flake-graph/internal/flake"
)

// Sentinel errors for use with errors.Is.
var (
	// ErrMissingRoot is shared with the flake package so a single check
	// covers both parsing and resolution.
	ErrMissingRoot = flake.ErrMissingRoot

	ErrDanglingReference = errors.New("dangling reference")
	ErrEmptyPath         = errors.New("empty follows path")
	ErrBrokenFollowsPath = errors.New("broken follows path")
	ErrCyclicFollowsPath = errors.New("cyclic follows path")

	// ErrUnreachable is returned by InputChain for nodes that cannot be
	// reached from the root.
	ErrUnreachable = errors.New("node not reachable from root")
)

// ResolveError describes an input that could not be resolved to a node.
type ResolveError struct {
	Kind   error
	Node   string   // node declaring the input
	Input  string   // input name
	Target string   // missing node of a dangling reference
	Path   []string // follows path being walked
	Step   string   // step that had no matching input
	At     string   // node reached when Step failed
}

func (e *ResolveError) Error() string {
	if e == nil {
		return ""
	}

	var b strings.Builder
	b.WriteString(e.Kind.Error())
	if e.Kind == ErrMissingRoot {
		fmt.Fprintf(&b, ": %q is not a node", e.Node)
		return b.String()
	}

	fmt.Fprintf(&b, ": node %q input %q", e.Node, e.Input)
	switch e.Kind {
	case ErrDanglingReference:
		fmt.Fprintf(&b, ": node %q does not exist", e.Target)
	case ErrBrokenFollowsPath:
		fmt.Fprintf(&b, ": step %q of %q is not an input of %q", e.Step, strings.Join(e.Path, "/"), e.At)
	case ErrCyclicFollowsPath:
		if len(e.Path) > 0 {
			fmt.Fprintf(&b, ": %q never reaches a node", strings.Join(e.Path, "/"))
		}
	}
	return b.String()
}

func (e *ResolveError) Unwrap() error { return e.Kind }
