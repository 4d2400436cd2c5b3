package main

import (
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/eringen/imgembed"
)

// rootOptions is shared by every subcommand. cfg is populated in
// PersistentPreRunE from the config file and environment; subcommand flags
// override it afterwards.
type rootOptions struct {
	configPath string
	cfg        imgembed.Config
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "imgembed",
		Short: "Embed image directories as a JSON manifest of data URIs",
		Long: `imgembed scans a directory of images, encodes each one as a base64 data URI
and writes a single JSON manifest keyed by category (parent directory) and
filename, so a front end can inline images without extra requests.

It can also query a manifest, optimize individual images, serve the manifest
over HTTP and remove the temporary conversion inputs afterwards.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Load .env file if present (ignore errors)
			_ = godotenv.Load()
			cfg, err := imgembed.LoadConfig(opts.configPath)
			if err != nil {
				return err
			}
			opts.cfg = cfg
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "YAML config file")

	cmd.AddCommand(
		newBuildCmd(opts),
		newGetCmd(opts),
		newFindCmd(opts),
		newCategoriesCmd(opts),
		newListCmd(opts),
		newOptimizeCmd(opts),
		newServeCmd(opts),
		newHistoryCmd(opts),
		newCleanCmd(opts),
	)

	return cmd
}

// override copies a flag value into dst when the user set the flag explicitly.
func override[T any](cmd *cobra.Command, name string, dst *T, val T) {
	if cmd.Flags().Changed(name) {
		*dst = val
	}
}
