package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/eringen/imgembed"
)

func newOptimizeCmd(opts *rootOptions) *cobra.Command {
	var (
		maxWidth  int
		maxHeight int
		quality   int
		output    string
	)

	cmd := &cobra.Command{
		Use:   "optimize <file>",
		Short: "Downscale and recompress an image into a JPEG data URI",
		Long: `Reads an image file, shrinks it to fit within the maximum width and height
while keeping its aspect ratio (images are never enlarged), and re-encodes it
as a JPEG data URI.`,
		Example: `  imgembed optimize photo.png --max-width 400 --max-height 300 --quality 70`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			o := opts.cfg.OptimizeOptions()
			override(cmd, "max-width", &o.MaxWidth, maxWidth)
			override(cmd, "max-height", &o.MaxHeight, maxHeight)
			override(cmd, "quality", &o.Quality, quality)

			uri, err := imgembed.FileToDataURI(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			out, err := imgembed.OptimizeDataURI(cmd.Context(), uri, o)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "%dx%d, %d -> %d characters\n", out.Width, out.Height, len(uri), len(out.DataURI))
			if output != "" {
				return os.WriteFile(output, []byte(out.DataURI), 0o644)
			}
			fmt.Fprintln(cmd.OutOrStdout(), out.DataURI)
			return nil
		},
	}

	cmd.Flags().IntVar(&maxWidth, "max-width", 0, "Maximum output width (default from config, 800)")
	cmd.Flags().IntVar(&maxHeight, "max-height", 0, "Maximum output height (default from config, 600)")
	cmd.Flags().IntVarP(&quality, "quality", "q", 0, "JPEG quality 1-100 (default from config, 80)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write the data URI to a file instead of stdout")

	return cmd
}
