// Package segmenter splits grouped signal tables into contiguous experiment
// phases. Each group carries its own phase names and integer ratios; segment
// sizes are floored shares of the row count with the last phase absorbing
// the remainder, so no row is ever dropped or duplicated.
package segmenter
