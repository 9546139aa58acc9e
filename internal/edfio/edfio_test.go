package edfio_test

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"biopipe/internal/edfio"
	"biopipe/internal/testsupport"
)

func TestReadChunkRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "TARIS05.edf")
	start := time.Date(2026, 1, 17, 10, 30, 0, 0, time.UTC)
	eda := testsupport.Ramp(100, 8)
	bvp := testsupport.Ramp(-200, 8)

	testsupport.WriteEDFChunk(t, path, start, 4,
		testsupport.ChunkSignal{Label: "EDA", Values: eda},
		testsupport.ChunkSignal{Label: "BVP", Values: bvp},
	)

	series, err := edfio.ReadChunk(path)
	require.NoError(t, err)
	require.Len(t, series, 2)

	assert.Equal(t, "eda", series[0].Label)
	assert.Equal(t, "bvp", series[1].Label)
	assert.Equal(t, eda, series[0].Values)
	assert.Equal(t, bvp, series[1].Values)
	assert.InDelta(t, 4.0, series[0].SamplingRate, 1e-9)
	assert.Equal(t, start.UnixMicro(), series[0].StartMicros)
}

func TestReadChunkCalibrationBounds(t *testing.T) {
	path := filepath.Join(t.TempDir(), "TARIS05.edf")
	start := time.Date(2026, 1, 17, 10, 30, 0, 0, time.UTC)
	// The fixture calibration bounds themselves must survive the container's
	// fixed-width header fields and decode back exactly.
	values := []float64{-5000, -1, 0, 1, 2500, 5000, 42, 7}

	testsupport.WriteEDFChunk(t, path, start, 4,
		testsupport.ChunkSignal{Label: "EDA", Values: values})

	series, err := edfio.ReadChunk(path)
	require.NoError(t, err)
	require.Len(t, series, 1)
	assert.Equal(t, values, series[0].Values)
}

func TestTimestampsSynthesis(t *testing.T) {
	series := edfio.Series{
		StartMicros:  1_000_000,
		SamplingRate: 64,
		Values:       make([]float64, 3),
	}
	got := series.Timestamps()
	// step = 1e6/64 = 15625 exactly
	assert.Equal(t, []int64{1_000_000, 1_015_625, 1_031_250}, got)
}

func TestTimestampsRounding(t *testing.T) {
	series := edfio.Series{
		StartMicros:  0,
		SamplingRate: 3, // step 333333.33…
		Values:       make([]float64, 4),
	}
	got := series.Timestamps()
	assert.Equal(t, []int64{0, 333333, 666667, 1000000}, got)
	for i := 1; i < len(got); i++ {
		assert.GreaterOrEqual(t, got[i], got[i-1])
	}
}

func TestNormalizeLabel(t *testing.T) {
	assert.Equal(t, "f3", edfio.NormalizeLabel("EEG F3"))
	assert.Equal(t, "f4", edfio.NormalizeLabel(" f4 "))
	assert.Equal(t, "eda", edfio.NormalizeLabel("EDA"))
}

func TestReadChunkRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.edf")
	testsupport.WriteCSV(t, path, []string{"not", "a", "chunk"}, nil)

	_, err := edfio.ReadChunk(path)
	require.Error(t, err)
}

func TestIsChunk(t *testing.T) {
	assert.True(t, edfio.IsChunk("TARIS05_1.edf"))
	assert.True(t, edfio.IsChunk("TARIS05.EDF"))
	assert.False(t, edfio.IsChunk("eda_TARIS05.csv"))
}
