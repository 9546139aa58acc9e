package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"biopipe/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
// All stage directories exist when it returns.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataRoot = base
	cfg.Paths.UnprocessedDir = filepath.Join(base, "unprocessed")
	cfg.Paths.RawDir = filepath.Join(base, "raw")
	cfg.Paths.DecodedDir = filepath.Join(base, "decoded")
	cfg.Paths.GroupedDir = filepath.Join(base, "grouped")
	cfg.Paths.SegmentedDir = filepath.Join(base, "segmented")
	cfg.Paths.FeaturesDir = filepath.Join(base, "features")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Pipeline.MetadataCSV = filepath.Join(base, "participants.csv")

	for _, opt := range opts {
		opt(&cfg)
	}

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	if err := os.MkdirAll(cfg.Paths.UnprocessedDir, 0o755); err != nil {
		t.Fatalf("mkdir unprocessed: %v", err)
	}

	return &cfg
}

// WithModality overrides the pipeline modality on the test config.
func WithModality(modality string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Pipeline.Modality = modality
	}
}

// WithWorkers overrides the decode worker count on the test config.
func WithWorkers(workers int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Pipeline.Workers = workers
	}
}
