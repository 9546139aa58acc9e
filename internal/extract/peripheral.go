package extract

import (
	"math"

	"biopipe/internal/sigproc"
)

// minEDASamples is the smallest electrodermal segment worth analyzing;
// anything at or below it yields the NaN feature vector.
const minEDASamples = 15

// minBVPSamples is the smallest pulse segment worth analyzing.
const minBVPSamples = 100

// edaFeatureNames are the electrodermal feature columns, in output order.
var edaFeatureNames = []string{
	"scl_mean", "scl_std", "phasic_mean", "scr_count", "scr_amp_mean", "signal_quality",
}

// bvpFeatureNames are the pulse-derived heart-rate-variability columns.
var bvpFeatureNames = []string{
	"mean_rri", "sdnn", "rmssd", "heart_rate", "pnn50", "sd1", "sd2",
}

// edaFeatures computes tonic/phasic skin-conductance features from the
// z-scored segment. A segment of minEDASamples or fewer returns all NaN
// rather than unstable estimates.
func edaFeatures(signal []float64, fs int) []float64 {
	if len(signal) <= minEDASamples {
		return nanVector(len(edaFeatureNames))
	}

	normalized := sigproc.ZScore(signal)
	tonic, phasic := sigproc.TonicPhasic(normalized, 4*fs)

	// SCR onsets: phasic rises of at least 0.1 normalized units, no closer
	// than a second.
	peaks := sigproc.FindPeaks(phasic, 0.1, fs)
	scrAmpMean := 0.0
	if len(peaks) > 0 {
		amps := make([]float64, len(peaks))
		for i, p := range peaks {
			amps[i] = phasic[p]
		}
		scrAmpMean = sigproc.Mean(amps)
	}

	quality := sigproc.PopulationStd(normalized)
	quality *= quality

	return []float64{
		sigproc.Mean(tonic),
		sigproc.PopulationStd(tonic),
		sigproc.Mean(phasic),
		float64(len(peaks)),
		scrAmpMean,
		quality,
	}
}

// bvpFeatures computes time-domain and Poincaré heart-rate-variability
// features from a blood-volume-pulse segment. Too few samples, or too few
// detected beat intervals, returns all NaN.
func bvpFeatures(signal []float64, fs int) []float64 {
	if len(signal) < minBVPSamples {
		return nanVector(len(bvpFeatureNames))
	}

	// Baseline-correct against the median, scale onto [0,1], then clean the
	// waveform before beat detection.
	corrected := make([]float64, len(signal))
	median := sigproc.Median(signal)
	for i, v := range signal {
		corrected[i] = v - median
	}
	filtered := sigproc.BandpassFIR(sigproc.MinMaxScale(corrected), float64(fs), 0.5, 8, 129)

	// Beats can come no faster than 150 bpm.
	minDistance := int(float64(fs) * 60 / 150)
	peaks := sigproc.FindPeaks(filtered, 0, minDistance)
	if len(peaks) < 3 {
		return nanVector(len(bvpFeatureNames))
	}

	rri := make([]float64, len(peaks)-1)
	for i := 1; i < len(peaks); i++ {
		rri[i-1] = float64(peaks[i]-peaks[i-1]) / float64(fs)
	}

	meanRRI := sigproc.Mean(rri)
	sdnn := sigproc.SampleStd(rri)
	diffs := sigproc.Diff(rri)
	rmssd := sigproc.RMS(diffs)

	over50ms := 0
	for _, d := range diffs {
		if math.Abs(d) > 0.05 {
			over50ms++
		}
	}
	pnn50 := float64(over50ms) / float64(len(diffs)) * 100

	sd1, sd2 := poincareAxes(rri)

	heartRate := math.NaN()
	if meanRRI > 0 {
		heartRate = 60 / meanRRI
	}

	return []float64{meanRRI, sdnn, rmssd, heartRate, pnn50, sd1, sd2}
}

// poincareAxes rotates successive-interval pairs 45° and reports the sample
// standard deviation of the dispersion along each axis. The pairs cover n-1
// intervals, so this differs slightly from deriving SD2 through the SDNN
// identity.
func poincareAxes(rri []float64) (sd1, sd2 float64) {
	minor := make([]float64, len(rri)-1)
	major := make([]float64, len(rri)-1)
	for i := 0; i+1 < len(rri); i++ {
		minor[i] = (rri[i] - rri[i+1]) / math.Sqrt2
		major[i] = (rri[i] + rri[i+1]) / math.Sqrt2
	}
	return sigproc.SampleStd(minor), sigproc.SampleStd(major)
}

func nanVector(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}
