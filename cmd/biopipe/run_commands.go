package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"biopipe/internal/runlog"
	"biopipe/internal/workflow"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var startDate, endDate, modality string
	var workers int

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the full pipeline: stage, decode, segment, extract",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if startDate != "" {
				cfg.Pipeline.StartDate = startDate
			}
			if endDate != "" {
				cfg.Pipeline.EndDate = endDate
			}
			if modality != "" {
				cfg.Pipeline.Modality = strings.ToLower(strings.TrimSpace(modality))
			}
			if workers > 0 {
				cfg.Pipeline.Workers = workers
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			return executeStages(ctx, cmd, workflow.All())
		},
	}

	cmd.Flags().StringVar(&startDate, "start-date", "", "First session date to process (YYYY-MM-DD)")
	cmd.Flags().StringVar(&endDate, "end-date", "", "Last session date to process (YYYY-MM-DD)")
	cmd.Flags().StringVar(&modality, "modality", "", "Signal family to process (peripheral or eeg)")
	cmd.Flags().IntVar(&workers, "workers", 0, "Concurrent subjects during decoding")
	return cmd
}

// newStageCommands builds one command per individual pipeline stage.
func newStageCommands(ctx *commandContext) []*cobra.Command {
	stages := []struct {
		use   string
		short string
		set   workflow.StageSet
	}{
		{"stage", "Stage raw session folders for the configured date range", workflow.StageSet{Stage: true}},
		{"decode", "Decode staged chunks into per-subject signal tables", workflow.StageSet{Decode: true}},
		{"segment", "Split grouped tables into experiment phases", workflow.StageSet{Segment: true}},
		{"extract", "Compute the feature table from segmented signals", workflow.StageSet{Extract: true}},
	}

	commands := make([]*cobra.Command, 0, len(stages))
	for _, stage := range stages {
		commands = append(commands, &cobra.Command{
			Use:   stage.use,
			Short: stage.short,
			RunE: func(cmd *cobra.Command, args []string) error {
				if _, err := ctx.ensureConfig(); err != nil {
					return err
				}
				return executeStages(ctx, cmd, stage.set)
			},
		})
	}
	return commands
}

func executeStages(ctx *commandContext, cmd *cobra.Command, stages workflow.StageSet) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	logger, err := ctx.ensureLogger()
	if err != nil {
		return err
	}

	store, err := runlog.Open(cfg)
	if err != nil {
		return fmt.Errorf("open run log: %w", err)
	}
	defer store.Close()

	manager := workflow.NewManager(cfg, logger, store)
	runErr := manager.Run(cmd.Context(), stages)
	if workflow.Halted(runErr) {
		fmt.Fprintln(cmd.OutOrStdout(), "Pipeline halted: an upstream stage produced no output. See the log for details.")
		return nil
	}
	return runErr
}
