// Package edfio decodes the binary chunk container written by the recording
// hardware: a fixed-width self-describing header followed by interleaved
// 16-bit sample records, one block per signal per record. Each signal carries
// its own sampling frequency; the chunk carries one start timestamp from
// which per-sample timestamps are synthesized.
package edfio
