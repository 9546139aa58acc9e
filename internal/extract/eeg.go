package extract

import (
	"log/slog"
	"math"

	"biopipe/internal/config"
	"biopipe/internal/logging"
	"biopipe/internal/sigproc"
)

// eegFeatureNames are the brain-wave feature columns, in output order.
var eegFeatureNames = []string{
	"Alpha_Asymmetry", "HFD_F3", "HFD_F4", "Beta_Alpha_Ratio_F3", "Beta_Alpha_Ratio_F4",
}

// higuchiKMax is the largest time scale used for the fractal-dimension
// estimate, matching the windows' length comfortably.
const higuchiKMax = 10

// eegFeatures computes windowed frontal features from the two channels and
// averages them across complete windows. It returns ok=false when not a
// single complete window fits, which callers treat as "skip this segment".
func eegFeatures(cfg *config.Config, logger *slog.Logger, phase string, f3, f4 []float64) ([]float64, bool) {
	fs := cfg.Extraction.EEGSamplingRate
	windowLen := cfg.Extraction.EEGWindowSeconds * fs

	n := len(f3)
	if len(f4) < n {
		n = len(f4)
	}

	expected := cfg.Extraction.PhaseSeconds * fs
	if isBaselinePhase(phase) {
		expected = cfg.Extraction.BaselineSeconds * fs
	}
	if diff := n - expected; diff > fs || diff < -fs {
		logger.Warn("segment length differs from protocol duration",
			logging.String(logging.FieldPhase, phase),
			logging.Int("samples", n),
			logging.Int("expected", expected))
	}

	windows := n / windowLen
	if windows == 0 {
		return nil, false
	}

	sums := make([]float64, len(eegFeatureNames))
	counts := make([]int, len(eegFeatureNames))
	degenerate := 0
	for w := 0; w < windows; w++ {
		f3Win := f3[w*windowLen : (w+1)*windowLen]
		f4Win := f4[w*windowLen : (w+1)*windowLen]
		for i, value := range windowFeatures(cfg, f3Win, f4Win) {
			if math.IsNaN(value) || math.IsInf(value, 0) {
				degenerate++
				continue
			}
			sums[i] += value
			counts[i]++
		}
	}
	if degenerate > 0 {
		logger.Warn("degenerate window features excluded from means",
			logging.String(logging.FieldPhase, phase),
			logging.Int("excluded", degenerate),
			logging.Int("windows", windows))
	}

	features := make([]float64, len(eegFeatureNames))
	for i := range features {
		if counts[i] == 0 {
			features[i] = math.NaN()
			continue
		}
		features[i] = sums[i] / float64(counts[i])
	}
	return features, true
}

// windowFeatures band-limits both channels and computes the five features
// for one window.
func windowFeatures(cfg *config.Config, f3, f4 []float64) []float64 {
	fs := float64(cfg.Extraction.EEGSamplingRate)
	nperseg := cfg.Extraction.EEGSamplingRate * 2
	ext := cfg.Extraction

	f3 = cleanWindow(f3, fs, ext.BetaHighHz)
	f4 = cleanWindow(f4, fs, ext.BetaHighHz)

	freqsF3, psdF3 := sigproc.Welch(f3, fs, nperseg)
	freqsF4, psdF4 := sigproc.Welch(f4, fs, nperseg)
	alphaF3 := sigproc.BandPower(freqsF3, psdF3, ext.AlphaLowHz, ext.AlphaHighHz)
	alphaF4 := sigproc.BandPower(freqsF4, psdF4, ext.AlphaLowHz, ext.AlphaHighHz)
	betaF3 := sigproc.BandPower(freqsF3, psdF3, ext.BetaLowHz, ext.BetaHighHz)
	betaF4 := sigproc.BandPower(freqsF4, psdF4, ext.BetaLowHz, ext.BetaHighHz)

	// Degenerate band power yields 0 rather than a log/division blowup.
	asymmetry := 0.0
	if alphaF3 > 0 && alphaF4 > 0 {
		asymmetry = math.Log(alphaF4) - math.Log(alphaF3)
	}

	ratio := func(beta, alpha float64) float64 {
		if alpha <= 0 {
			return 0
		}
		return beta / alpha
	}

	return []float64{
		asymmetry,
		sigproc.HiguchiFD(f3, higuchiKMax),
		sigproc.HiguchiFD(f4, higuchiKMax),
		ratio(betaF3, alphaF3),
		ratio(betaF4, alphaF4),
	}
}

// cleanWindow band-pass filters one analysis window between 0.5 Hz and the
// upper analysis band edge. The tap count shrinks for windows shorter than
// the default kernel.
func cleanWindow(win []float64, fs, high float64) []float64 {
	taps := 129
	if taps >= len(win) {
		taps = len(win) - 1
		if taps%2 == 0 {
			taps--
		}
	}
	if taps < 3 {
		return win
	}
	return sigproc.BandpassFIR(win, fs, 0.5, high, taps)
}

// isBaselinePhase reports whether the phase label denotes the pre-task
// resting period. "rest" is an accepted alias for "baseline".
func isBaselinePhase(phase string) bool {
	return phase == "baseline" || phase == "rest"
}
