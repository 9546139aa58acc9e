package segmenter

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"biopipe/internal/config"
	"biopipe/internal/logging"
	"biopipe/internal/pipeline"
	"biopipe/internal/testsupport"
)

func TestSegmentSizes(t *testing.T) {
	cases := []struct {
		n      int
		ratios []int
		want   []int
	}{
		{1200, []int{1, 5, 5}, []int{109, 545, 546}},
		{1200, []int{1, 5}, []int{200, 1000}},
		{10, []int{1, 1, 1}, []int{3, 3, 4}},
		{2, []int{1, 5, 5}, []int{0, 0, 2}},
	}
	for _, tc := range cases {
		got := SegmentSizes(tc.n, tc.ratios)
		if len(got) != len(tc.want) {
			t.Fatalf("SegmentSizes(%d, %v) = %v, want %v", tc.n, tc.ratios, got, tc.want)
		}
		sum := 0
		for i := range got {
			sum += got[i]
			if got[i] != tc.want[i] {
				t.Errorf("SegmentSizes(%d, %v) = %v, want %v", tc.n, tc.ratios, got, tc.want)
				break
			}
		}
		if sum != tc.n {
			t.Errorf("sizes %v sum to %d, want %d", got, sum, tc.n)
		}
	}
}

func writeGroupedTable(t *testing.T, cfg *config.Config, group, subject, name string, rows int) {
	t.Helper()
	data := make([][]string, rows)
	for i := range data {
		data[i] = []string{fmt.Sprint(i), fmt.Sprint(i * 2)}
	}
	testsupport.WriteCSV(t, filepath.Join(cfg.Paths.GroupedDir, group, subject, name),
		[]string{"unix_timestamp", "eda"}, data)
}

func TestRunSplitsPhasesWithoutLosingRows(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	writeGroupedTable(t, cfg, "Breathing", "TARIS05", "eda_TARIS05.csv", 1200)

	s := New(cfg, logging.NewNop())
	result, err := s.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.FilesSegmented != 1 {
		t.Fatalf("files segmented = %d, want 1", result.FilesSegmented)
	}

	destDir := filepath.Join(cfg.Paths.SegmentedDir, "Breathing", "TARIS05")
	wantSizes := map[string]int{"baseline": 109, "intervention": 545, "test": 546}
	var joined []string
	for _, phase := range []string{"baseline", "intervention", "test"} {
		data, err := os.ReadFile(filepath.Join(destDir, "eda_TARIS05_"+phase+".csv"))
		if err != nil {
			t.Fatalf("phase %s: %v", phase, err)
		}
		lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
		if lines[0] != "unix_timestamp,eda" {
			t.Fatalf("phase %s header = %q", phase, lines[0])
		}
		if got := len(lines) - 1; got != wantSizes[phase] {
			t.Errorf("phase %s rows = %d, want %d", phase, got, wantSizes[phase])
		}
		joined = append(joined, lines[1:]...)
	}

	// Concatenating phases in order must reproduce the input rows exactly.
	for i, line := range joined {
		if want := fmt.Sprintf("%d,%d", i, i*2); line != want {
			t.Fatalf("row %d = %q, want %q", i, line, want)
		}
	}
}

func TestRunMirrorsNestedFolders(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	writeGroupedTable(t, cfg, "Control", filepath.Join("TARIS05", "session1"), "eda_TARIS05.csv", 12)

	s := New(cfg, logging.NewNop())
	result, err := s.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.FilesSegmented != 1 {
		t.Fatalf("files segmented = %d, want 1", result.FilesSegmented)
	}

	nested := filepath.Join(cfg.Paths.SegmentedDir, "Control", "TARIS05", "session1")
	for _, phase := range []string{"baseline", "test"} {
		if _, err := os.Stat(filepath.Join(nested, "eda_TARIS05_"+phase+".csv")); err != nil {
			t.Errorf("phase %s missing from mirrored nested folder: %v", phase, err)
		}
	}
}

func TestRunSkipsEmptyTable(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	writeGroupedTable(t, cfg, "Control", "TARIS05", "eda_TARIS05.csv", 0)

	s := New(cfg, logging.NewNop())
	result, err := s.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.FilesSegmented != 1 {
		t.Fatalf("files segmented = %d, want 1", result.FilesSegmented)
	}
	entries, err := os.ReadDir(filepath.Join(cfg.Paths.SegmentedDir, "Control", "TARIS05"))
	if err == nil && len(entries) > 0 {
		t.Errorf("empty table should yield no phase files, got %d", len(entries))
	}
}

func TestRunSkipsUnruledFolders(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	// Unmapped subject folder sits directly under the grouped root.
	writeGroupedTable(t, cfg, "TARIS09", "", "eda_TARIS09.csv", 10)

	s := New(cfg, logging.NewNop())
	result, err := s.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.FilesSegmented != 0 {
		t.Fatalf("files segmented = %d, want 0", result.FilesSegmented)
	}
}

func TestRunRejectsMismatchedRule(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Segmentation.Groups["Control"] = config.GroupRule{
		Phases: []string{"baseline", "test"},
		Ratios: []int{1},
	}
	writeGroupedTable(t, cfg, "Control", "TARIS05", "eda_TARIS05.csv", 10)

	s := New(cfg, logging.NewNop())
	_, err := s.Run(context.Background())
	if !errors.Is(err, pipeline.ErrConfiguration) {
		t.Fatalf("err = %v, want configuration error", err)
	}
	if _, statErr := os.Stat(filepath.Join(cfg.Paths.SegmentedDir, "Control")); statErr == nil {
		t.Error("no output should be written for a bad rule")
	}
}

func TestRunEmptyTreeIsNullResult(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	s := New(cfg, logging.NewNop())
	result, err := s.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.FilesSegmented != 0 || result.FilesFailed != 0 {
		t.Fatalf("result = %+v, want zero", result)
	}
}
