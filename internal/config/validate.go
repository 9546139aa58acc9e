package config

import (
	"fmt"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

// Validate checks configuration invariants that indicate caller programming
// errors rather than data conditions. It is called by Load after normalize.
func (c *Config) Validate() error {
	switch c.Pipeline.Modality {
	case "peripheral", "eeg":
	default:
		return fmt.Errorf("pipeline.modality: unsupported value %q (expected peripheral or eeg)", c.Pipeline.Modality)
	}

	if err := validateDate("pipeline.start_date", c.Pipeline.StartDate); err != nil {
		return err
	}
	if err := validateDate("pipeline.end_date", c.Pipeline.EndDate); err != nil {
		return err
	}
	if c.Pipeline.StartDate != "" && c.Pipeline.EndDate != "" {
		start, _ := time.Parse(dateLayout, c.Pipeline.StartDate)
		end, _ := time.Parse(dateLayout, c.Pipeline.EndDate)
		if end.Before(start) {
			return fmt.Errorf("pipeline.end_date %s precedes pipeline.start_date %s", c.Pipeline.EndDate, c.Pipeline.StartDate)
		}
	}

	for group, rule := range c.Segmentation.Groups {
		if len(rule.Phases) == 0 {
			return fmt.Errorf("segmentation.groups.%s: no phases configured", group)
		}
		if len(rule.Phases) != len(rule.Ratios) {
			return fmt.Errorf("segmentation.groups.%s: %d phases but %d ratios", group, len(rule.Phases), len(rule.Ratios))
		}
		for i, ratio := range rule.Ratios {
			if ratio <= 0 {
				return fmt.Errorf("segmentation.groups.%s: ratio %d for phase %q must be positive", group, ratio, rule.Phases[i])
			}
		}
	}

	if c.Extraction.SamplingRate <= 0 {
		return fmt.Errorf("extraction.sampling_rate must be positive, got %d", c.Extraction.SamplingRate)
	}
	if c.Extraction.EEGSamplingRate <= 0 {
		return fmt.Errorf("extraction.eeg_sampling_rate must be positive, got %d", c.Extraction.EEGSamplingRate)
	}
	if c.Extraction.EEGWindowSeconds <= 0 {
		return fmt.Errorf("extraction.eeg_window_seconds must be positive, got %d", c.Extraction.EEGWindowSeconds)
	}
	if c.Extraction.AlphaLowHz >= c.Extraction.AlphaHighHz {
		return fmt.Errorf("extraction: alpha band [%g, %g] is empty", c.Extraction.AlphaLowHz, c.Extraction.AlphaHighHz)
	}
	if c.Extraction.BetaLowHz >= c.Extraction.BetaHighHz {
		return fmt.Errorf("extraction: beta band [%g, %g] is empty", c.Extraction.BetaLowHz, c.Extraction.BetaHighHz)
	}

	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}

	return nil
}

func validateDate(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	if _, err := time.Parse(dateLayout, value); err != nil {
		return fmt.Errorf("%s: expected YYYY-MM-DD, got %q", field, value)
	}
	return nil
}
