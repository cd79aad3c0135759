package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/vertextoedge/txtfetch/internal/service/fetcher"
)

func newPlanCmd(a *app) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Print the download order without downloading anything",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fsManager, err := a.newFileSystem()
			if err != nil {
				return err
			}

			f := fetcher.New(nil, a.newLoader(), nil, fsManager, nil, nil, a.logger.Named("fetcher"))
			plan, err := f.Plan(cmd.Context())
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "#\tSLUG\tURL")
			for i, task := range plan.Pending {
				fmt.Fprintf(w, "%d\t%s\t%s\n", i+1, task.DestinationFileName, task.ContentURL)
			}
			if all {
				for _, task := range plan.Existing {
					fmt.Fprintf(w, "-\t%s\t%s\n", task.DestinationFileName, task.ContentURL)
				}
			}
			if err := w.Flush(); err != nil {
				return err
			}

			c := plan.Catalog
			fmt.Fprintf(cmd.OutOrStdout(),
				"\n%d to download, %d on disk, %d duplicates, %d not found, %d invalid\n",
				len(plan.Pending), len(plan.Existing), c.Duplicates, len(c.NotFound), c.Invalid)
			return nil
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "also list tasks whose file already exists")
	return cmd
}
