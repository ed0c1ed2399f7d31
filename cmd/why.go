package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"notashelf.dev/flake-graph/internal/lockgraph"
)

type whyOptions struct {
	unreachable bool
}

func newWhyCommand(root *rootOptions) *cobra.Command {
	opts := &whyOptions{}

	cmd := &cobra.Command{
		Use:   "why [flake.lock] <node>",
		Short: "Show how the root reaches a lock node",
		Long: `Print the shortest chain of inputs leading from the root of the lock to
the given node, or with --unreachable list nodes no chain reaches.`,
		Example: `  flake-graph why nixpkgs_2
  flake-graph why ./flake.lock home-manager
  flake-graph why --unreachable`,
		Args: func(cmd *cobra.Command, args []string) error {
			if opts.unreachable {
				return cobra.MaximumNArgs(1)(cmd, args)
			}
			return cobra.RangeArgs(1, 2)(cmd, args)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWhy(cmd.OutOrStdout(), root, opts, args)
		},
	}

	cmd.Flags().BoolVar(&opts.unreachable, "unreachable", false, "list nodes that cannot be reached from the root")

	return cmd
}

func runWhy(w io.Writer, root *rootOptions, opts *whyOptions, args []string) error {
	var lockArgs []string
	node := ""
	switch {
	case opts.unreachable:
		lockArgs = args
	case len(args) == 2:
		lockArgs, node = args[:1], args[1]
	default:
		node = args[0]
	}

	path := root.lockFile(lockArgs)
	g, err := loadGraph(path)
	if err != nil {
		return err
	}

	if opts.unreachable {
		unreachable, err := g.Unreachable()
		if err != nil {
			return err
		}
		for _, i := range unreachable {
			fmt.Fprintln(w, g.Nodes[i].Name)
		}
		return nil
	}

	target, ok := g.Index(node)
	if !ok {
		return fmt.Errorf("node %q not found in %s", node, path)
	}

	chain, err := g.InputChain(target)
	if err != nil {
		return err
	}
	fmt.Fprintln(w, formatChain(g, chain))
	return nil
}

// formatChain renders a chain as "root -[input]-> node -[input]-> ...".
func formatChain(g *lockgraph.Graph, chain []lockgraph.Edge) string {
	var sb strings.Builder
	sb.WriteString(g.Nodes[g.Root].Name)
	for _, edge := range chain {
		fmt.Fprintf(&sb, " -[%s]-> %s", edge.Label, g.Nodes[edge.To].Name)
	}
	return sb.String()
}
