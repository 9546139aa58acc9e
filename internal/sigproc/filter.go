package sigproc

import "math"

// BandpassFIR designs a linear-phase windowed-sinc bandpass filter and
// applies it with group-delay compensation, so the output stays aligned with
// the input. taps must be odd; low and high are edge frequencies in Hz.
func BandpassFIR(signal []float64, fs, low, high float64, taps int) []float64 {
	if len(signal) == 0 {
		return nil
	}
	if taps%2 == 0 {
		taps++
	}
	kernel := bandpassKernel(fs, low, high, taps)
	return convolveSame(signal, kernel)
}

// bandpassKernel builds the Hamming-windowed impulse response as the
// difference of two lowpass sinc kernels.
func bandpassKernel(fs, low, high float64, taps int) []float64 {
	f1 := low / fs
	f2 := high / fs
	mid := float64(taps-1) / 2

	kernel := make([]float64, taps)
	for n := range kernel {
		x := float64(n) - mid
		window := 0.54 - 0.46*math.Cos(2*math.Pi*float64(n)/float64(taps-1))
		kernel[n] = (2*f2*sinc(2*f2*x) - 2*f1*sinc(2*f1*x)) * window
	}

	// Normalize unity gain at the passband center.
	fc := (f1 + f2) / 2
	var gainRe, gainIm float64
	for n, h := range kernel {
		angle := 2 * math.Pi * fc * float64(n)
		gainRe += h * math.Cos(angle)
		gainIm -= h * math.Sin(angle)
	}
	gain := math.Hypot(gainRe, gainIm)
	if gain > 0 {
		for n := range kernel {
			kernel[n] /= gain
		}
	}
	return kernel
}

func sinc(x float64) float64 {
	if x == 0 {
		return 1
	}
	return math.Sin(math.Pi*x) / (math.Pi * x)
}

// convolveSame convolves with zero padding and trims the filter's group
// delay, returning a slice the same length as the input.
func convolveSame(signal, kernel []float64) []float64 {
	delay := (len(kernel) - 1) / 2
	out := make([]float64, len(signal))
	for i := range out {
		var sum float64
		for k, h := range kernel {
			j := i + delay - k
			if j >= 0 && j < len(signal) {
				sum += h * signal[j]
			}
		}
		out[i] = sum
	}
	return out
}

// MovingAverage returns the centered moving average of the signal with the
// given window length. Windows shrink symmetrically at the edges.
func MovingAverage(signal []float64, window int) []float64 {
	if window < 1 {
		window = 1
	}
	half := window / 2
	out := make([]float64, len(signal))
	for i := range signal {
		lo := i - half
		if lo < 0 {
			lo = 0
		}
		hi := i + half
		if hi >= len(signal) {
			hi = len(signal) - 1
		}
		var sum float64
		for j := lo; j <= hi; j++ {
			sum += signal[j]
		}
		out[i] = sum / float64(hi-lo+1)
	}
	return out
}

// TonicPhasic splits a skin-conductance signal into its slow tonic level and
// the fast phasic residual using a moving-average baseline of the given
// window (in samples).
func TonicPhasic(signal []float64, window int) (tonic, phasic []float64) {
	tonic = MovingAverage(signal, window)
	phasic = make([]float64, len(signal))
	for i := range signal {
		phasic[i] = signal[i] - tonic[i]
	}
	return tonic, phasic
}
