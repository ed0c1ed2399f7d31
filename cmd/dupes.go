package cmd

import (
	"errors"

	"github.com/spf13/cobra"
	"notashelf.dev/flake-graph/internal/output"
)

var errMultipleVersions = errors.New("multiple versions detected: exiting with error as requested")

func newDupesCommand(root *rootOptions) *cobra.Command {
	opts := output.Options{
		OutputFormat: root.cfg.Output,
		NoColor:      root.cfg.NoColor,
	}

	cmd := &cobra.Command{
		Use:   "dupes [flake.lock]",
		Short: "Report sources pinned by more than one lock node",
		Long: `Report every upstream source that the lock pins more than once, together
with the nodes that depend on each copy.`,
		Example: `  flake-graph dupes --output=json
  flake-graph dupes --output=plain --merge
  flake-graph dupes --fail-if-multiple-versions --quiet`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := output.ValidateOutputFormat(opts.OutputFormat); err != nil {
				return err
			}
			opts.Verbose = root.verbose

			g, err := loadGraph(root.lockFile(args))
			if err != nil {
				return err
			}

			if err := output.PrintDuplicates(cmd.OutOrStdout(), g, opts); err != nil {
				return err
			}

			if output.ShouldFailOnDuplicates(opts, g) {
				cmd.SilenceErrors = opts.Quiet
				return errMultipleVersions
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&opts.OutputFormat, "output", "o", opts.OutputFormat, "output format: plain, pretty, or json")
	cmd.Flags().BoolVarP(&opts.Merge, "merge", "m", false, "merge all dependants into one list for each source")
	cmd.Flags().BoolVar(&opts.FailIfMultipleVersions, "fail-if-multiple-versions", false, "exit with error if multiple versions found")
	cmd.Flags().BoolVarP(&opts.Quiet, "quiet", "q", false, "print nothing, only set the exit status")

	return cmd
}
