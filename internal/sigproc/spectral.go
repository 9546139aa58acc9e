package sigproc

import (
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/integrate"
	"gonum.org/v1/gonum/stat"
)

// Welch estimates the one-sided power spectral density of the signal using
// Welch's method: Hann-windowed segments of nperseg samples with 50% overlap,
// mean-detrended, periodograms averaged. Frequencies are in Hz and the
// density in signal-units²/Hz. A signal shorter than nperseg is estimated
// from a single shortened segment.
func Welch(signal []float64, fs float64, nperseg int) (freqs, psd []float64) {
	if len(signal) == 0 || fs <= 0 {
		return nil, nil
	}
	if nperseg > len(signal) {
		nperseg = len(signal)
	}
	if nperseg < 2 {
		return nil, nil
	}

	window := hann(nperseg)
	var windowPower float64
	for _, w := range window {
		windowPower += w * w
	}
	scale := 1 / (fs * windowPower)

	step := nperseg / 2
	if step < 1 {
		step = 1
	}

	fft := fourier.NewFFT(nperseg)
	bins := nperseg/2 + 1
	psd = make([]float64, bins)
	segment := make([]float64, nperseg)
	coeffs := make([]complex128, bins)

	segments := 0
	for start := 0; start+nperseg <= len(signal); start += step {
		copy(segment, signal[start:start+nperseg])
		mean := stat.Mean(segment, nil)
		for i := range segment {
			segment[i] = (segment[i] - mean) * window[i]
		}
		fft.Coefficients(coeffs, segment)
		for i, c := range coeffs {
			power := cmplx.Abs(c)
			psd[i] += power * power * scale
		}
		segments++
	}
	if segments == 0 {
		return nil, nil
	}

	for i := range psd {
		psd[i] /= float64(segments)
		// One-sided: interior bins carry both halves of the spectrum.
		if i != 0 && !(nperseg%2 == 0 && i == bins-1) {
			psd[i] *= 2
		}
	}

	freqs = make([]float64, bins)
	for i := range freqs {
		freqs[i] = fs * float64(i) / float64(nperseg)
	}
	return freqs, psd
}

// BandPower integrates the spectral density over [low, high] Hz with the
// trapezoid rule. Fewer than two bins inside the band yields zero.
func BandPower(freqs, psd []float64, low, high float64) float64 {
	var bandFreqs, bandPSD []float64
	for i, f := range freqs {
		if f >= low && f <= high {
			bandFreqs = append(bandFreqs, f)
			bandPSD = append(bandPSD, psd[i])
		}
	}
	if len(bandFreqs) < 2 {
		return 0
	}
	return integrate.Trapezoidal(bandFreqs, bandPSD)
}

func hann(n int) []float64 {
	window := make([]float64, n)
	if n == 1 {
		window[0] = 1
		return window
	}
	for i := range window {
		window[i] = 0.5 * (1 - math.Cos(2*math.Pi*float64(i)/float64(n-1)))
	}
	return window
}
