package edfio

import (
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/OpenPSG/edf"
)

// Series is one decoded signal from a chunk: the raw values plus everything
// needed to reconstruct per-sample timestamps.
type Series struct {
	Label        string
	StartMicros  int64
	SamplingRate float64
	Values       []float64
}

// Timestamps synthesizes integer microsecond timestamps for the series:
// start + i * (1e6 / samplingRate), rounded to the nearest integer. They are
// monotonically non-decreasing within a chunk by construction.
func (s Series) Timestamps() []int64 {
	step := 1e6 / s.SamplingRate
	out := make([]int64, len(s.Values))
	for i := range s.Values {
		out[i] = int64(math.Round(float64(s.StartMicros) + float64(i)*step))
	}
	return out
}

// ReadChunk decodes every signal in one binary chunk file. Signal labels are
// normalized via NormalizeLabel, so "EEG F3" and "F3" both decode as "f3".
func ReadChunk(path string) ([]Series, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	reader, err := edf.Open(file)
	if err != nil {
		return nil, fmt.Errorf("chunk %s: %w", path, err)
	}

	// edf.Reader keeps its parsed header private; re-scan the fixed-width
	// fields needed for series construction.
	meta, err := scanMeta(file)
	if err != nil {
		return nil, fmt.Errorf("chunk %s: %w", path, err)
	}
	if meta.recordSeconds <= 0 {
		return nil, fmt.Errorf("chunk %s: non-positive record duration", path)
	}
	if meta.records < 0 {
		return nil, fmt.Errorf("chunk %s: unknown record count", path)
	}

	series := make([]Series, len(meta.labels))
	for i, label := range meta.labels {
		sr, err := reader.Signal(i)
		if err != nil {
			return nil, fmt.Errorf("chunk %s: signal %q: %w", path, label, err)
		}
		values := make([]float64, meta.records*meta.samples[i])
		n, err := sr.Read(values)
		if err != nil && err != io.EOF {
			return nil, fmt.Errorf("chunk %s: signal %q: %w", path, label, err)
		}
		series[i] = Series{
			Label:        NormalizeLabel(label),
			StartMicros:  meta.startMicros,
			SamplingRate: float64(meta.samples[i]) / meta.recordSeconds,
			Values:       values[:n],
		}
	}
	return series, nil
}

// chunkMeta holds the header fields the container library parses but does not
// export: recording start, record geometry, and per-signal layout.
type chunkMeta struct {
	startMicros   int64
	records       int
	recordSeconds float64
	labels        []string
	samples       []int
}

func scanMeta(r io.ReadSeeker) (*chunkMeta, error) {
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	fixed := make([]byte, 256)
	if _, err := io.ReadFull(r, fixed); err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	field := func(b []byte, lo, hi int) string {
		return strings.TrimSpace(string(b[lo:hi]))
	}

	startDate, err := time.Parse("02.01.06", field(fixed, 168, 176))
	if err != nil {
		return nil, fmt.Errorf("parse start date: %w", err)
	}
	startClock, err := time.Parse("15.04.05", field(fixed, 176, 184))
	if err != nil {
		return nil, fmt.Errorf("parse start time: %w", err)
	}
	start := time.Date(startDate.Year(), startDate.Month(), startDate.Day(),
		startClock.Hour(), startClock.Minute(), startClock.Second(), 0, time.UTC)

	records, err := strconv.Atoi(field(fixed, 236, 244))
	if err != nil {
		return nil, fmt.Errorf("parse record count: %w", err)
	}
	recordSeconds, err := strconv.ParseFloat(field(fixed, 244, 252), 64)
	if err != nil {
		return nil, fmt.Errorf("parse record duration: %w", err)
	}
	signalCount, err := strconv.Atoi(field(fixed, 252, 256))
	if err != nil {
		return nil, fmt.Errorf("parse signal count: %w", err)
	}
	if signalCount < 0 {
		return nil, fmt.Errorf("negative signal count %d", signalCount)
	}

	// Per-signal headers are grouped by field, not by signal: all labels
	// first, then each remaining field in turn. Samples-per-record sits after
	// label(16), transducer(80), dimension(8), four calibration fields(8 each)
	// and prefiltering(80).
	rest := make([]byte, signalCount*256)
	if _, err := io.ReadFull(r, rest); err != nil {
		return nil, fmt.Errorf("read signal headers: %w", err)
	}
	meta := &chunkMeta{
		startMicros:   start.UnixMicro(),
		records:       records,
		recordSeconds: recordSeconds,
		labels:        make([]string, signalCount),
		samples:       make([]int, signalCount),
	}
	samplesOffset := signalCount * 216
	for i := 0; i < signalCount; i++ {
		meta.labels[i] = field(rest, i*16, (i+1)*16)
		samples, err := strconv.Atoi(field(rest, samplesOffset+i*8, samplesOffset+(i+1)*8))
		if err != nil || samples <= 0 {
			return nil, fmt.Errorf("signal %q: bad samples per record", meta.labels[i])
		}
		meta.samples[i] = samples
	}
	return meta, nil
}

// NormalizeLabel canonicalizes a signal label for lookup.
func NormalizeLabel(label string) string {
	normalized := strings.ToLower(strings.TrimSpace(label))
	normalized = strings.TrimPrefix(normalized, "eeg ")
	return strings.TrimSpace(normalized)
}

// ChunkExt is the recognized chunk file extension.
const ChunkExt = ".edf"

// IsChunk reports whether the filename looks like a binary chunk file.
func IsChunk(name string) bool {
	return strings.HasSuffix(strings.ToLower(name), ChunkExt)
}
