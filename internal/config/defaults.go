package config

const (
	defaultDataRoot         = "~/.local/share/biopipe"
	defaultLogFormat        = "console"
	defaultLogLevel         = "info"
	defaultModality         = "peripheral"
	defaultWorkers          = 1
	defaultSamplingRate     = 64
	defaultEEGSamplingRate  = 256
	defaultEEGWindowSeconds = 60
	defaultAlphaLowHz       = 8.0
	defaultAlphaHighHz      = 13.0
	defaultBetaLowHz        = 13.0
	defaultBetaHighHz       = 30.0
	defaultBaselineSeconds  = 300
	defaultPhaseSeconds     = 600
)

// Default returns a Config populated with repository defaults. The
// segmentation rules mirror the study protocol: the control group has no
// intervention phase.
func Default() Config {
	return Config{
		Paths: Paths{
			DataRoot: defaultDataRoot,
		},
		Pipeline: Pipeline{
			Modality: defaultModality,
			Workers:  defaultWorkers,
		},
		Segmentation: Segmentation{
			Groups: map[string]GroupRule{
				"Control":   {Phases: []string{"baseline", "test"}, Ratios: []int{1, 5}},
				"Breathing": {Phases: []string{"baseline", "intervention", "test"}, Ratios: []int{1, 5, 5}},
				"Raga":      {Phases: []string{"baseline", "intervention", "test"}, Ratios: []int{1, 5, 5}},
			},
		},
		Extraction: Extraction{
			SamplingRate:     defaultSamplingRate,
			EEGSamplingRate:  defaultEEGSamplingRate,
			EEGWindowSeconds: defaultEEGWindowSeconds,
			AlphaLowHz:       defaultAlphaLowHz,
			AlphaHighHz:      defaultAlphaHighHz,
			BetaLowHz:        defaultBetaLowHz,
			BetaHighHz:       defaultBetaHighHz,
			BaselineSeconds:  defaultBaselineSeconds,
			PhaseSeconds:     defaultPhaseSeconds,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
