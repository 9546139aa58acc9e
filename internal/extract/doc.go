// Package extract computes feature tables from segmented signal tables.
// Two families exist: peripheral (electrodermal activity plus blood-volume
// pulse, one combined row per subject and phase) and brain-wave (windowed
// frontal-channel spectral and fractal features). Segments too short to
// support a stable estimate yield NaN vectors so downstream analysis sees
// the subject rather than a silent gap.
package extract
