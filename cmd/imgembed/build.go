package main

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/eringen/imgembed"
)

func newBuildCmd(opts *rootOptions) *cobra.Command {
	var (
		source    string
		output    string
		dbPath    string
		noHistory bool
	)

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Convert an image tree into a data URI manifest",
		Long: `Walks the source directory, encodes every jpg, jpeg, png, gif, webp and svg
file as a data URI and writes the manifest, replacing any previous one.

The category of an image is the name of its immediate parent directory.
Images sitting directly in the source root are ignored.`,
		Example: `  # Use the defaults (./imagens-temporarias -> ./converted_images.json)
  imgembed build

  # Custom paths
  imgembed build --source ./assets/menu --output ./web/src/images.json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := opts.cfg
			override(cmd, "source", &cfg.SourceRoot, source)
			override(cmd, "output", &cfg.OutputPath, output)
			override(cmd, "db", &cfg.DatabasePath, dbPath)

			report, _, err := imgembed.Build(cmd.Context(), imgembed.BuildOptions{
				SourceRoot: cfg.SourceRoot,
				OutputPath: cfg.OutputPath,
				Progress:   cmd.OutOrStdout(),
			})
			if errors.Is(err, imgembed.ErrSourceNotFound) {
				return fmt.Errorf("%w (set source_root in the config file or pass --source)", err)
			}
			if err != nil {
				return err
			}

			if noHistory {
				return nil
			}
			store, err := imgembed.NewStore(cfg.DatabasePath)
			if err != nil {
				slog.Warn("build history unavailable", "db", cfg.DatabasePath, "err", err)
				return nil
			}
			defer store.Close()
			id, err := store.RecordBuild(report)
			if err != nil {
				slog.Warn("failed to record build", "err", err)
				return nil
			}
			slog.Debug("build recorded", "id", id)
			return nil
		},
	}

	cmd.Flags().StringVarP(&source, "source", "s", "", "Directory to scan for images")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Manifest file to write")
	cmd.Flags().StringVar(&dbPath, "db", "", "Build history database")
	cmd.Flags().BoolVar(&noHistory, "no-history", false, "Do not record this build in the history database")

	return cmd
}
