package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"notashelf.dev/flake-graph/internal/config"
	"notashelf.dev/flake-graph/internal/flake"
	"notashelf.dev/flake-graph/internal/lockgraph"
)

// Version is set via build-time ldflags
var Version string

type rootOptions struct {
	cfg      *config.Config
	lockPath string
	verbose  bool
	render   lockgraph.RenderOptions
}

// NewRootCommand builds the command tree with defaults taken from cfg.
func NewRootCommand(cfg *config.Config) *cobra.Command {
	opts := &rootOptions{cfg: cfg}

	rootCmd := &cobra.Command{
		Use:   "flake-graph [flake.lock]",
		Short: "Render a flake.lock as a Graphviz dependency graph",
		Long: `flake-graph resolves every input of a Nix flake.lock, including follows
paths, into a directed graph and prints it as Graphviz DOT source. Nodes
pinned to the same upstream source more than once are coloured by how
many copies exist.`,
		Example: `  flake-graph flake.lock | dot -Tsvg > flake.svg
  flake-graph --rankdir=TB --colorscheme=blues9
  flake-graph dupes --output=json
  flake-graph why nixpkgs_2`,
		Args:         cobra.MaximumNArgs(1),
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			setupLogging(cmd.ErrOrStderr(), opts.verbose)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := loadGraph(opts.lockFile(args))
			if err != nil {
				return err
			}
			_, err = io.WriteString(cmd.OutOrStdout(), g.DOT(opts.render))
			return err
		},
	}

	rootCmd.PersistentFlags().StringVarP(&opts.lockPath, "lockfile", "l", cfg.LockFile, "path to flake.lock")
	rootCmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "enable verbose output")
	addRenderFlags(rootCmd, opts)

	rootCmd.AddCommand(newDupesCommand(opts))
	rootCmd.AddCommand(newWhyCommand(opts))
	rootCmd.AddCommand(newWatchCommand(opts))

	if Version != "" {
		rootCmd.Version = Version
	}
	rootCmd.SetVersionTemplate(`{{printf "%s version %s\n" .Name .Version}}`)

	return rootCmd
}

func addRenderFlags(cmd *cobra.Command, opts *rootOptions) {
	cmd.PersistentFlags().StringVar(&opts.render.RankDir, "rankdir", opts.cfg.RankDir, "graph direction: LR, TB, RL or BT")
	cmd.PersistentFlags().StringVar(&opts.render.ColorScheme, "colorscheme", opts.cfg.ColorScheme, "Graphviz colour scheme for duplicate nodes")
	cmd.PersistentFlags().StringVar(&opts.render.Shape, "shape", opts.cfg.Shape, "Graphviz node shape")
	cmd.PersistentFlags().IntVar(&opts.render.MaxColor, "max-color", 0, "number of colours in the scheme (default: trailing digits of --colorscheme)")
}

// lockFile prefers a positional path over --lockfile.
func (o *rootOptions) lockFile(args []string) string {
	if len(args) > 0 && args[0] != "" {
		return args[0]
	}
	return o.lockPath
}

func setupLogging(w io.Writer, verbose bool) {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})))
}

func loadGraph(path string) (*lockgraph.Graph, error) {
	slog.Debug("loading lock file", "path", path)
	lock, err := flake.Load(path)
	if err != nil {
		return nil, err
	}

	g, err := lockgraph.New(lock)
	if err != nil {
		return nil, fmt.Errorf("error resolving %s: %w", path, err)
	}
	slog.Debug("resolved lock file", "nodes", len(g.Nodes), "edges", len(g.Edges), "version", g.Version)
	return g, nil
}

func Execute() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if err := NewRootCommand(cfg).Execute(); err != nil {
		os.Exit(1)
	}
}
