package main

import (
	"github.com/spf13/cobra"

	"github.com/eringen/imgembed"
)

func newCleanCmd(opts *rootOptions) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "clean [paths...]",
		Short: "Remove temporary conversion inputs and artifacts",
		Long: `Deletes the temporary image directory, the generated manifest and the
conversion helper files. Paths given as arguments replace the configured list.
Missing paths are reported and skipped.`,
		Example: `  # Preview what would be deleted
  imgembed clean --dry-run

  # Remove specific paths
  imgembed clean ./tmp-images ./converted_images.json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			paths := opts.cfg.CleanupPaths
			if len(args) > 0 {
				paths = args
			}
			imgembed.Cleanup(paths, cmd.OutOrStdout(), dryRun)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&dryRun, "dry-run", "n", false, "Only print what would be removed")

	return cmd
}
