package config

import (
	"fmt"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizePipeline(); err != nil {
		return err
	}
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataRoot) == "" {
		c.Paths.DataRoot = defaultDataRoot
	}
	if c.Paths.DataRoot, err = expandPath(c.Paths.DataRoot); err != nil {
		return fmt.Errorf("paths.data_root: %w", err)
	}

	// Unset stage directories hang off the data root under fixed names.
	fills := []struct {
		field *string
		name  string
		def   string
	}{
		{&c.Paths.UnprocessedDir, "paths.unprocessed_dir", "unprocessed"},
		{&c.Paths.RawDir, "paths.raw_dir", "raw"},
		{&c.Paths.DecodedDir, "paths.decoded_dir", "decoded"},
		{&c.Paths.GroupedDir, "paths.grouped_dir", "grouped"},
		{&c.Paths.SegmentedDir, "paths.segmented_dir", "segmented"},
		{&c.Paths.FeaturesDir, "paths.features_dir", "features"},
		{&c.Paths.LogDir, "paths.log_dir", "logs"},
	}
	for _, fill := range fills {
		if strings.TrimSpace(*fill.field) == "" {
			*fill.field = filepath.Join(c.Paths.DataRoot, fill.def)
			continue
		}
		if *fill.field, err = expandPath(*fill.field); err != nil {
			return fmt.Errorf("%s: %w", fill.name, err)
		}
	}
	return nil
}

func (c *Config) normalizePipeline() error {
	c.Pipeline.Modality = strings.ToLower(strings.TrimSpace(c.Pipeline.Modality))
	if c.Pipeline.Modality == "" {
		c.Pipeline.Modality = defaultModality
	}
	if c.Pipeline.Workers <= 0 {
		c.Pipeline.Workers = defaultWorkers
	}
	if strings.TrimSpace(c.Pipeline.MetadataCSV) != "" {
		expanded, err := expandPath(c.Pipeline.MetadataCSV)
		if err != nil {
			return fmt.Errorf("pipeline.metadata_csv: %w", err)
		}
		c.Pipeline.MetadataCSV = expanded
	} else {
		c.Pipeline.MetadataCSV = filepath.Join(c.Paths.DataRoot, "participants.csv")
	}
	c.Pipeline.StartDate = strings.TrimSpace(c.Pipeline.StartDate)
	c.Pipeline.EndDate = strings.TrimSpace(c.Pipeline.EndDate)
	return nil
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
