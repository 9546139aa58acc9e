package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultValidates(t *testing.T) {
	cfg := Default()
	if err := cfg.normalize(); err != nil {
		t.Fatalf("normalize default config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate default config: %v", err)
	}
}

func TestNormalizeFillsStageDirectories(t *testing.T) {
	cfg := Default()
	cfg.Paths.DataRoot = t.TempDir()
	if err := cfg.normalize(); err != nil {
		t.Fatal(err)
	}

	want := map[string]string{
		cfg.Paths.UnprocessedDir: "unprocessed",
		cfg.Paths.RawDir:         "raw",
		cfg.Paths.DecodedDir:     "decoded",
		cfg.Paths.GroupedDir:     "grouped",
		cfg.Paths.SegmentedDir:   "segmented",
		cfg.Paths.FeaturesDir:    "features",
		cfg.Paths.LogDir:         "logs",
	}
	for got, name := range want {
		if got != filepath.Join(cfg.Paths.DataRoot, name) {
			t.Errorf("%s directory = %q, want under data root", name, got)
		}
	}
}

func TestLoadParsesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[paths]
data_root = "` + dir + `"

[pipeline]
modality = "eeg"
workers = 4
start_date = "2026-01-14"
end_date = "2026-02-18"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, resolved, exists, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !exists {
		t.Fatal("expected config file to be reported as existing")
	}
	if resolved != path {
		t.Fatalf("resolved path = %q, want %q", resolved, path)
	}
	if cfg.Pipeline.Modality != "eeg" {
		t.Fatalf("modality = %q", cfg.Pipeline.Modality)
	}
	if cfg.Pipeline.Workers != 4 {
		t.Fatalf("workers = %d", cfg.Pipeline.Workers)
	}
	// Defaults survive a partial file.
	if len(cfg.Segmentation.Groups) != 3 {
		t.Fatalf("expected default segmentation groups, got %d", len(cfg.Segmentation.Groups))
	}
}

func TestValidateRejectsMismatchedRule(t *testing.T) {
	cfg := Default()
	cfg.Segmentation.Groups["Control"] = GroupRule{
		Phases: []string{"baseline", "test"},
		Ratios: []int{1},
	}
	if err := cfg.normalize(); err != nil {
		t.Fatal(err)
	}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error for mismatched phases/ratios")
	}
	if !strings.Contains(err.Error(), "Control") {
		t.Fatalf("error should name the group: %v", err)
	}
}

func TestValidateRejectsBadModality(t *testing.T) {
	cfg := Default()
	cfg.Pipeline.Modality = "thermal"
	if err := cfg.normalize(); err != nil {
		t.Fatal(err)
	}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation error for unknown modality")
	}
}

func TestValidateRejectsInvertedDateRange(t *testing.T) {
	cfg := Default()
	cfg.Pipeline.StartDate = "2026-02-18"
	cfg.Pipeline.EndDate = "2026-01-14"
	if err := cfg.normalize(); err != nil {
		t.Fatal(err)
	}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation error for inverted date range")
	}
}

func TestEnsureDirectories(t *testing.T) {
	cfg := Default()
	cfg.Paths.DataRoot = filepath.Join(t.TempDir(), "root")
	if err := cfg.normalize(); err != nil {
		t.Fatal(err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatal(err)
	}
	for _, dir := range []string{cfg.Paths.RawDir, cfg.Paths.DecodedDir, cfg.Paths.GroupedDir, cfg.Paths.SegmentedDir, cfg.Paths.FeaturesDir, cfg.Paths.LogDir} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("stat %s: %v", dir, err)
		}
		if !info.IsDir() {
			t.Fatalf("%s is not a directory", dir)
		}
	}
}
