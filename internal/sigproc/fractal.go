package sigproc

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// HiguchiFD estimates the Higuchi fractal dimension of the signal: curve
// lengths are computed at time scales 1..kmax and the dimension is the slope
// of log(length) against log(1/k). Returns NaN when the signal is too short
// or degenerate (constant input has zero curve length at every scale).
func HiguchiFD(signal []float64, kmax int) float64 {
	n := len(signal)
	if kmax < 2 || n < kmax+1 {
		return math.NaN()
	}

	logLength := make([]float64, 0, kmax)
	logScale := make([]float64, 0, kmax)
	for k := 1; k <= kmax; k++ {
		var total float64
		counted := 0
		for m := 0; m < k; m++ {
			points := (n - m - 1) / k
			if points < 1 {
				continue
			}
			var length float64
			for i := 1; i <= points; i++ {
				length += math.Abs(signal[m+i*k] - signal[m+(i-1)*k])
			}
			// Normalize to the full series length at this scale.
			length *= float64(n-1) / (float64(points) * float64(k) * float64(k))
			total += length
			counted++
		}
		if counted == 0 || total == 0 {
			return math.NaN()
		}
		logLength = append(logLength, math.Log(total/float64(counted)))
		logScale = append(logScale, math.Log(1/float64(k)))
	}

	_, slope := stat.LinearRegression(logScale, logLength, nil, false)
	return slope
}
