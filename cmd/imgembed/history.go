package main

import (
	"fmt"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/eringen/imgembed"
)

func newHistoryCmd(opts *rootOptions) *cobra.Command {
	var (
		limit  int
		dbPath string
	)

	cmd := &cobra.Command{
		Use:   "history [build-id]",
		Short: "Show past manifest builds",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := opts.cfg.DatabasePath
			override(cmd, "db", &path, dbPath)
			store, err := imgembed.NewStore(path)
			if err != nil {
				return err
			}
			defer store.Close()

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			if len(args) == 1 {
				id, err := strconv.ParseInt(args[0], 10, 64)
				if err != nil {
					return fmt.Errorf("invalid build id %q", args[0])
				}
				b, err := store.GetBuild(id)
				if err != nil {
					return fmt.Errorf("build %d: %w", id, err)
				}
				fmt.Fprintf(tw, "Build %d at %s\n", b.ID, b.StartedAt.Local().Format(time.DateTime))
				fmt.Fprintf(tw, "Source:\t%s\nOutput:\t%s\nImages:\t%d (%s)\nFailures:\t%d\n\n",
					b.SourceRoot, b.OutputPath, b.Images, humanize.Bytes(uint64(b.TotalBytes)), b.Failures)
				fmt.Fprintln(tw, "CATEGORY\tIMAGES\tSIZE")
				for _, c := range b.Categories {
					fmt.Fprintf(tw, "%s\t%d\t%s\n", c.Name, c.Images, humanize.Bytes(uint64(c.TotalBytes)))
				}
				return tw.Flush()
			}

			builds, err := store.ListBuilds(limit)
			if err != nil {
				return err
			}
			if len(builds) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No builds recorded.")
				return nil
			}
			fmt.Fprintln(tw, "ID\tWHEN\tIMAGES\tSIZE\tFAILURES\tOUTPUT")
			for _, b := range builds {
				fmt.Fprintf(tw, "%d\t%s\t%d\t%s\t%d\t%s\n",
					b.ID, humanize.Time(b.StartedAt), b.Images, humanize.Bytes(uint64(b.TotalBytes)), b.Failures, b.OutputPath)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Number of builds to show (0 for all)")
	cmd.Flags().StringVar(&dbPath, "db", "", "Build history database")

	return cmd
}
