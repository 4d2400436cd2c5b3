package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/eringen/imgembed"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	var (
		addr      string
		manifest  string
		dbPath    string
		noHistory bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the manifest over HTTP",
		Long: `Starts an HTTP server exposing the manifest: decoded images under
/images/<category>/<filename>, JSON listings, lookup and optimize APIs, and an
HTML gallery at / that inlines every image as a data URI.

The manifest file is re-read when it changes, so rebuilding does not require
a restart.`,
		Example: `  imgembed serve --addr :8080 --manifest ./converted_images.json`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := opts.cfg
			override(cmd, "addr", &cfg.Addr, addr)
			override(cmd, "manifest", &cfg.OutputPath, manifest)
			override(cmd, "db", &cfg.DatabasePath, dbPath)

			var appOpts []imgembed.Option
			if !noHistory {
				store, err := imgembed.NewStore(cfg.DatabasePath)
				if err != nil {
					return err
				}
				defer store.Close()
				appOpts = append(appOpts, imgembed.WithStore(store))
			}

			app := imgembed.New(cfg, appOpts...)
			defer app.Close()

			if err := app.Start(cmd.Context()); err != nil {
				slog.Error("server stopped", "err", err)
				return err
			}
			slog.Info("server stopped")
			return nil
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", "", "Listen address (default :3000)")
	cmd.Flags().StringVarP(&manifest, "manifest", "m", "", "Manifest file to serve")
	cmd.Flags().StringVar(&dbPath, "db", "", "Build history database")
	cmd.Flags().BoolVar(&noHistory, "no-history", false, "Do not expose build history")

	return cmd
}
