package main

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/vertextoedge/txtfetch/internal/domain"
	"github.com/vertextoedge/txtfetch/internal/service/progress"
)

var errLedgerDisabled = errors.New("run ledger is disabled (database.enabled=false)")

func newRunsCmd(a *app) *cobra.Command {
	var (
		limit  int
		status string
	)

	cmd := &cobra.Command{
		Use:   "runs [run-id]",
		Short: "List recent runs, or the task results of one run",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.openStore()
			if err != nil {
				return err
			}
			if store == nil {
				return errLedgerDisabled
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)

			if len(args) == 0 {
				runs, err := store.ListRuns(limit)
				if err != nil {
					return err
				}
				fmt.Fprintln(w, "ID\tSTARTED\tDURATION\tDONE\tFAILED\tSKIPPED\tSIZE\tERROR")
				for _, r := range runs {
					duration := "running"
					if !r.FinishedAt.IsZero() {
						duration = progress.FormatDuration(r.Duration())
					}
					fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%d\t%s\t%s\n",
						r.ID, humanize.Time(r.StartedAt), duration,
						r.Completed, r.Failed, r.Skipped,
						humanize.Bytes(uint64(r.Bytes)), r.Error)
				}
				return w.Flush()
			}

			taskStatus := domain.TaskStatus(status)
			if status != "" && !taskStatus.IsValid() {
				return fmt.Errorf("invalid status %q: %w", status, domain.ErrInvalidInput)
			}

			run, err := store.GetRun(args[0])
			if err != nil {
				return fmt.Errorf("run %s: %w", args[0], err)
			}
			results, err := store.GetRunResults(run.ID, taskStatus)
			if err != nil {
				return err
			}

			fmt.Fprintln(w, "SLUG\tSTATUS\tATTEMPTS\tSIZE\tERROR")
			for _, res := range results {
				fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n",
					res.Slug, res.Status, res.Attempts,
					humanize.Bytes(uint64(res.Bytes)), res.Error)
			}
			return w.Flush()
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "number of runs to list")
	cmd.Flags().StringVar(&status, "status", "", "only show results with this status (completed, failed, skipped)")
	return cmd
}
