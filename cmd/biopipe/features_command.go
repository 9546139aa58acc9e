package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"biopipe/internal/extract"
)

func newFeaturesCommand(ctx *commandContext) *cobra.Command {
	var capped bool

	cmd := &cobra.Command{
		Use:   "features",
		Short: "List extracted feature tables",
		Long: "List the feature tables produced by past extraction runs, newest first.\n" +
			"With --capped, also writes an outlier-capped copy of the newest table\n" +
			"(values clamped to 1.5 times the interquartile range beyond the quartiles).",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			tables, err := listFeatureTables(cfg.Paths.FeaturesDir)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(tables) == 0 {
				fmt.Fprintln(out, "No feature tables found. Run 'biopipe run' or 'biopipe extract' first.")
				return nil
			}
			for _, path := range tables {
				fmt.Fprintln(out, path)
			}

			if capped {
				newest := tables[0]
				target := strings.TrimSuffix(newest, ".csv") + "_capped.csv"
				if err := extract.CapFeatureTable(newest, target); err != nil {
					return fmt.Errorf("cap feature table: %w", err)
				}
				fmt.Fprintf(out, "Wrote capped table to %s\n", target)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&capped, "capped", false, "Write an outlier-capped copy of the newest table")
	return cmd
}

// listFeatureTables returns feature table paths, newest date folder first.
func listFeatureTables(featuresDir string) ([]string, error) {
	entries, err := os.ReadDir(featuresDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var dates []string
	for _, entry := range entries {
		if entry.IsDir() {
			dates = append(dates, entry.Name())
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(dates)))

	var tables []string
	for _, date := range dates {
		files, err := os.ReadDir(filepath.Join(featuresDir, date))
		if err != nil {
			continue
		}
		for _, file := range files {
			name := file.Name()
			if !file.IsDir() && strings.HasSuffix(name, ".csv") && !strings.HasSuffix(name, "_capped.csv") {
				tables = append(tables, filepath.Join(featuresDir, date, name))
			}
		}
	}
	return tables, nil
}
