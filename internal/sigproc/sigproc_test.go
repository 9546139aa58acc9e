package sigproc

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sine(freq, fs float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.Sin(2 * math.Pi * freq * float64(i) / fs)
	}
	return out
}

func rms(x []float64) float64 {
	var sum float64
	for _, v := range x {
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(x)))
}

func TestWelchLocatesTone(t *testing.T) {
	const fs = 64.0
	signal := sine(4, fs, 1024)

	freqs, psd := Welch(signal, fs, 256)
	require.NotEmpty(t, psd)
	require.Equal(t, len(freqs), len(psd))

	peak := 0
	for i := range psd {
		if psd[i] > psd[peak] {
			peak = i
		}
	}
	assert.InDelta(t, 4.0, freqs[peak], 0.5)

	// Total power integrates back to roughly the signal variance (0.5 for a
	// unit-amplitude tone).
	total := BandPower(freqs, psd, 0, fs/2)
	assert.InDelta(t, 0.5, total, 0.1)
}

func TestBandPowerSeparatesBands(t *testing.T) {
	const fs = 64.0
	signal := sine(10, fs, 2048)

	freqs, psd := Welch(signal, fs, 256)
	inBand := BandPower(freqs, psd, 8, 13)
	outBand := BandPower(freqs, psd, 20, 30)
	assert.Greater(t, inBand, 100*outBand)
}

func TestBandPowerTooFewBins(t *testing.T) {
	assert.Zero(t, BandPower([]float64{1, 2, 3}, []float64{1, 1, 1}, 2.4, 2.6))
}

func TestBandpassFIRPassesAndRejects(t *testing.T) {
	const fs = 64.0
	const n = 1024

	pass := BandpassFIR(sine(10, fs, n), fs, 8, 13, 129)
	stop := BandpassFIR(sine(1, fs, n), fs, 8, 13, 129)

	mid := func(x []float64) []float64 { return x[n/4 : 3*n/4] }
	assert.InDelta(t, rms(mid(sine(10, fs, n))), rms(mid(pass)), 0.15)
	assert.Less(t, rms(mid(stop)), 0.1)
}

func TestHiguchiFD(t *testing.T) {
	smooth := sine(2, 64, 512)
	assert.InDelta(t, 1.0, HiguchiFD(smooth, 10), 0.35)

	rng := rand.New(rand.NewSource(7))
	noise := make([]float64, 512)
	for i := range noise {
		noise[i] = rng.NormFloat64()
	}
	assert.Greater(t, HiguchiFD(noise, 10), 1.5)

	constant := make([]float64, 512)
	assert.True(t, math.IsNaN(HiguchiFD(constant, 10)))
	assert.True(t, math.IsNaN(HiguchiFD(smooth[:5], 10)))
}

func TestFindPeaks(t *testing.T) {
	signal := []float64{0, 1, 0, 2, 0, 3, 0}
	assert.Equal(t, []int{1, 3, 5}, FindPeaks(signal, 0, 1))
	assert.Equal(t, []int{3, 5}, FindPeaks(signal, 1.5, 1))
	// Distance pruning keeps the taller of two close peaks.
	assert.Equal(t, []int{1, 5}, FindPeaks(signal, 0, 3))
	assert.Empty(t, FindPeaks([]float64{1, 1, 1}, 0, 1))
}

func TestTonicPhasicReconstructs(t *testing.T) {
	signal := []float64{1, 2, 4, 2, 1, 3, 5, 3}
	tonic, phasic := TonicPhasic(signal, 4)
	require.Len(t, tonic, len(signal))
	for i := range signal {
		assert.InDelta(t, signal[i], tonic[i]+phasic[i], 1e-12)
	}

	flat := []float64{2, 2, 2, 2}
	tonic, phasic = TonicPhasic(flat, 3)
	for i := range flat {
		assert.InDelta(t, 2, tonic[i], 1e-12)
		assert.InDelta(t, 0, phasic[i], 1e-12)
	}
}

func TestStats(t *testing.T) {
	x := []float64{2, 4, 4, 4, 5, 5, 7, 9}
	assert.InDelta(t, 5, Mean(x), 1e-12)
	assert.InDelta(t, 2, PopulationStd(x), 1e-12)
	assert.Greater(t, SampleStd(x), PopulationStd(x))

	assert.True(t, math.IsNaN(Mean(nil)))
	assert.True(t, math.IsNaN(SampleStd([]float64{1})))

	assert.Equal(t, []float64{1, 1}, Diff([]float64{1, 2, 3}))
	assert.InDelta(t, math.Sqrt(100.0/6.0), RMS([]float64{3, -4, 5, 3, -4, 5}), 1e-12)
}

func TestMedian(t *testing.T) {
	assert.InDelta(t, 3, Median([]float64{5, 1, 3}), 1e-12)
	assert.InDelta(t, 2.5, Median([]float64{4, 1, 2, 3}), 1e-12)
	assert.True(t, math.IsNaN(Median(nil)))
}

func TestZScore(t *testing.T) {
	z := ZScore([]float64{2, 4, 4, 4, 5, 5, 7, 9})
	assert.InDelta(t, 0, Mean(z), 1e-12)
	assert.InDelta(t, 1, PopulationStd(z), 1e-12)

	flat := ZScore([]float64{3, 3, 3})
	for _, v := range flat {
		assert.Zero(t, v)
	}
}

func TestMinMaxScale(t *testing.T) {
	scaled := MinMaxScale([]float64{10, 20, 15})
	assert.Equal(t, []float64{0, 1, 0.5}, scaled)

	flat := MinMaxScale([]float64{7, 7})
	assert.Equal(t, []float64{0, 0}, flat)
}

func TestCapOutliersIQR(t *testing.T) {
	x := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 100}
	capped := CapOutliersIQR(x)
	require.Len(t, capped, len(x))
	assert.Less(t, capped[10], 100.0)
	for i := 0; i < 10; i++ {
		assert.Equal(t, x[i], capped[i])
	}

	withNaN := []float64{1, math.NaN(), 3}
	out := CapOutliersIQR(withNaN)
	assert.True(t, math.IsNaN(out[1]))

	// Too few finite values: returned unchanged.
	small := []float64{1, 2, 1000}
	assert.Equal(t, small, CapOutliersIQR(small))
}
