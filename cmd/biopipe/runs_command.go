package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"biopipe/internal/runlog"
)

func newRunsCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "runs [run-id]",
		Short: "Show recorded pipeline runs",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := runlog.Open(cfg)
			if err != nil {
				return fmt.Errorf("open run log: %w", err)
			}
			defer store.Close()

			if len(args) == 1 {
				return printRunEvents(cmd, store, args[0])
			}
			return printRuns(cmd, store, limit)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of runs to show")
	return cmd
}

func printRuns(cmd *cobra.Command, store *runlog.Store, limit int) error {
	runs, err := store.ListRuns(cmd.Context(), limit)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if len(runs) == 0 {
		fmt.Fprintln(out, "No recorded runs")
		return nil
	}

	rows := make([][]string, 0, len(runs))
	for _, run := range runs {
		duration := ""
		if run.FinishedAt != nil {
			duration = run.FinishedAt.Sub(run.StartedAt).Round(time.Millisecond).String()
		}
		dateRange := run.StartDate
		if run.EndDate != "" && run.EndDate != run.StartDate {
			dateRange += ".." + run.EndDate
		}
		rows = append(rows, []string{
			run.ID[:8],
			run.Modality,
			dateRange,
			run.Status,
			run.StartedAt.Local().Format("2006-01-02 15:04:05"),
			duration,
		})
	}
	fmt.Fprintln(out, renderTable(
		[]string{"Run", "Modality", "Dates", "Status", "Started", "Duration"}, rows))
	return nil
}

func printRunEvents(cmd *cobra.Command, store *runlog.Store, prefix string) error {
	runs, err := store.ListRuns(cmd.Context(), 0)
	if err != nil {
		return err
	}
	var runID string
	for _, run := range runs {
		if run.ID == prefix || (len(prefix) >= 4 && len(run.ID) >= len(prefix) && run.ID[:len(prefix)] == prefix) {
			runID = run.ID
			break
		}
	}
	if runID == "" {
		return fmt.Errorf("no run matching %q", prefix)
	}

	events, err := store.Events(cmd.Context(), runID)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if len(events) == 0 {
		fmt.Fprintln(out, "No events for run", runID)
		return nil
	}
	rows := make([][]string, 0, len(events))
	for _, event := range events {
		rows = append(rows, []string{
			event.CreatedAt.Local().Format("15:04:05"),
			event.Stage,
			event.Level,
			event.Message,
		})
	}
	fmt.Fprintln(out, renderTable([]string{"Time", "Stage", "Level", "Message"}, rows))
	return nil
}
