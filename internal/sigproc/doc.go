// Package sigproc holds the numeric building blocks shared by the feature
// extractors: FIR filtering, Welch spectral estimation, Higuchi fractal
// dimension, peak detection, and robust summary statistics.
package sigproc
