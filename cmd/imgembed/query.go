package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/eringen/imgembed"
)

// manifestFlag registers --manifest and returns a loader honouring it.
func manifestFlag(cmd *cobra.Command, opts *rootOptions) func() (*imgembed.Accessor, error) {
	var path string
	cmd.Flags().StringVarP(&path, "manifest", "m", "", "Manifest file to read (defaults to the configured output path)")
	return func() (*imgembed.Accessor, error) {
		p := opts.cfg.OutputPath
		override(cmd, "manifest", &p, path)
		return imgembed.Load(p)
	}
}

func newGetCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get <category> <filename>",
		Short: "Print the data URI of one image",
		Args:  cobra.ExactArgs(2),
	}
	load := manifestFlag(cmd, opts)
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		acc, err := load()
		if err != nil {
			return err
		}
		uri, ok := acc.GetImage(args[0], args[1])
		if !ok {
			return fmt.Errorf("image not found: %s/%s", args[0], args[1])
		}
		fmt.Fprintln(cmd.OutOrStdout(), uri)
		return nil
	}
	return cmd
}

func newFindCmd(opts *rootOptions) *cobra.Command {
	var withData bool
	cmd := &cobra.Command{
		Use:   "find <filename>",
		Short: "Find an image by filename in any category",
		Long: `Searches every category for filename. When the same filename exists in
more than one category, the first category in manifest order wins.`,
		Args: cobra.ExactArgs(1),
	}
	load := manifestFlag(cmd, opts)
	cmd.Flags().BoolVar(&withData, "with-data", false, "Include the data URI in the output")
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		acc, err := load()
		if err != nil {
			return err
		}
		found, ok := acc.FindImage(args[0])
		if !ok {
			return fmt.Errorf("image not found: %s", args[0])
		}
		if !withData {
			found.Base64 = ""
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(found)
	}
	return cmd
}

func newCategoriesCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "categories",
		Short: "List manifest categories",
		Args:  cobra.NoArgs,
	}
	load := manifestFlag(cmd, opts)
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		acc, err := load()
		if err != nil {
			return err
		}
		for _, c := range acc.Categories() {
			fmt.Fprintln(cmd.OutOrStdout(), c)
		}
		return nil
	}
	return cmd
}

func newListCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list <category>",
		Short: "List the images of a category",
		Args:  cobra.ExactArgs(1),
	}
	load := manifestFlag(cmd, opts)
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		acc, err := load()
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "FILENAME\tTYPE\tSIZE\tPATH")
		for _, e := range acc.GetImagesByCategory(args[0]) {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", e.Filename, e.MimeType, humanize.Bytes(uint64(e.Size)), e.Path)
		}
		return tw.Flush()
	}
	return cmd
}
