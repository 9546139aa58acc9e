package sigproc

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Mean is the arithmetic mean, NaN for an empty slice.
func Mean(x []float64) float64 {
	if len(x) == 0 {
		return math.NaN()
	}
	return stat.Mean(x, nil)
}

// SampleStd is the standard deviation with Bessel's correction (n-1), NaN
// for fewer than two samples.
func SampleStd(x []float64) float64 {
	if len(x) < 2 {
		return math.NaN()
	}
	return stat.StdDev(x, nil)
}

// PopulationStd is the uncorrected (n-denominator) standard deviation, NaN
// for an empty slice.
func PopulationStd(x []float64) float64 {
	if len(x) == 0 {
		return math.NaN()
	}
	return stat.PopStdDev(x, nil)
}

// Diff returns successive differences: out[i] = x[i+1] - x[i].
func Diff(x []float64) []float64 {
	if len(x) < 2 {
		return nil
	}
	out := make([]float64, len(x)-1)
	for i := range out {
		out[i] = x[i+1] - x[i]
	}
	return out
}

// RMS is the root mean square, NaN for an empty slice.
func RMS(x []float64) float64 {
	if len(x) == 0 {
		return math.NaN()
	}
	var sum float64
	for _, v := range x {
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(x)))
}

// Median returns the middle value, NaN for an empty slice.
func Median(x []float64) float64 {
	if len(x) == 0 {
		return math.NaN()
	}
	sorted := append([]float64(nil), x...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}

// ZScore returns the signal shifted to zero mean and scaled to unit variance.
// A constant signal comes back as all zeros.
func ZScore(x []float64) []float64 {
	out := make([]float64, len(x))
	if len(x) == 0 {
		return out
	}
	mean := stat.Mean(x, nil)
	std := stat.PopStdDev(x, nil)
	for i, v := range x {
		if std > 0 {
			out[i] = (v - mean) / std
		}
	}
	return out
}

// MinMaxScale maps the signal onto [0, 1]. A constant signal comes back as
// all zeros.
func MinMaxScale(x []float64) []float64 {
	out := make([]float64, len(x))
	if len(x) == 0 {
		return out
	}
	lo, hi := x[0], x[0]
	for _, v := range x {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	if hi == lo {
		return out
	}
	for i, v := range x {
		out[i] = (v - lo) / (hi - lo)
	}
	return out
}

// CapOutliersIQR clamps values outside the Tukey fences (1.5×IQR beyond the
// quartiles) to the fence values, returning a new slice. NaNs pass through
// untouched and are excluded from the quartile estimate.
func CapOutliersIQR(x []float64) []float64 {
	finite := make([]float64, 0, len(x))
	for _, v := range x {
		if !math.IsNaN(v) {
			finite = append(finite, v)
		}
	}
	out := append([]float64(nil), x...)
	if len(finite) < 4 {
		return out
	}
	sort.Float64s(finite)
	q1 := stat.Quantile(0.25, stat.Empirical, finite, nil)
	q3 := stat.Quantile(0.75, stat.Empirical, finite, nil)
	iqr := q3 - q1
	lower := q1 - 1.5*iqr
	upper := q3 + 1.5*iqr

	for i, v := range out {
		switch {
		case math.IsNaN(v):
		case v < lower:
			out[i] = lower
		case v > upper:
			out[i] = upper
		}
	}
	return out
}
