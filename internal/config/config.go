package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths enumerates every directory the pipeline reads or writes. Each stage
// owns exactly one output directory and only reads the previous stage's.
type Paths struct {
	DataRoot       string `toml:"data_root"`
	UnprocessedDir string `toml:"unprocessed_dir"`
	RawDir         string `toml:"raw_dir"`
	DecodedDir     string `toml:"decoded_dir"`
	GroupedDir     string `toml:"grouped_dir"`
	SegmentedDir   string `toml:"segmented_dir"`
	FeaturesDir    string `toml:"features_dir"`
	LogDir         string `toml:"log_dir"`
}

// Pipeline contains run-level settings shared by every stage.
type Pipeline struct {
	MetadataCSV string `toml:"metadata_csv"`
	StartDate   string `toml:"start_date"`
	EndDate     string `toml:"end_date"`
	Modality    string `toml:"modality"`
	Workers     int    `toml:"workers"`
}

// GroupRule pairs ordered phase labels with their ratio weights for one
// experimental group.
type GroupRule struct {
	Phases []string `toml:"phases"`
	Ratios []int    `toml:"ratios"`
}

// Segmentation contains the per-group phase splitting rules.
type Segmentation struct {
	Groups map[string]GroupRule `toml:"groups"`
}

// Extraction contains signal-processing parameters for both feature families.
type Extraction struct {
	SamplingRate     int     `toml:"sampling_rate"`
	EEGSamplingRate  int     `toml:"eeg_sampling_rate"`
	EEGWindowSeconds int     `toml:"eeg_window_seconds"`
	AlphaLowHz       float64 `toml:"alpha_low_hz"`
	AlphaHighHz      float64 `toml:"alpha_high_hz"`
	BetaLowHz        float64 `toml:"beta_low_hz"`
	BetaHighHz       float64 `toml:"beta_high_hz"`
	BaselineSeconds  int     `toml:"baseline_seconds"`
	PhaseSeconds     int     `toml:"phase_seconds"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for the pipeline.
//
// Configuration sections by subsystem:
//   - Paths: the pipeline directory tree, constructed once and passed to every stage
//   - Pipeline: metadata table location, date range, modality, worker count
//   - Segmentation: per-group phase labels and ratio weights
//   - Extraction: sampling rates, analysis window, frequency bands
//   - Logging: log format and level
type Config struct {
	Paths        Paths        `toml:"paths"`
	Pipeline     Pipeline     `toml:"pipeline"`
	Segmentation Segmentation `toml:"segmentation"`
	Extraction   Extraction   `toml:"extraction"`
	Logging      Logging      `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/biopipe/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath("~/.config/biopipe/config.toml")
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("biopipe.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the stage output directories. The unprocessed
// directory is created best-effort; it normally belongs to the external sync
// process and may live on storage that is temporarily offline.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{
		c.Paths.RawDir,
		c.Paths.DecodedDir,
		c.Paths.GroupedDir,
		c.Paths.SegmentedDir,
		c.Paths.FeaturesDir,
		c.Paths.LogDir,
	} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if strings.TrimSpace(c.Paths.UnprocessedDir) != "" {
		_ = os.MkdirAll(c.Paths.UnprocessedDir, 0o755)
	}
	return nil
}

// RunLogPath returns the SQLite run log location inside the log directory.
func (c *Config) RunLogPath() string {
	return filepath.Join(c.Paths.LogDir, "runlog.db")
}

// LockPath returns the lock file guarding against concurrent pipeline runs.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.DataRoot, "biopipe.lock")
}

// GroupRuleFor returns the segmentation rule for the named group.
func (c *Config) GroupRuleFor(group string) (GroupRule, bool) {
	rule, ok := c.Segmentation.Groups[group]
	return rule, ok
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
