package testsupport

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/OpenPSG/edf"
)

// ChunkSignal is one named signal to embed in a fixture chunk.
type ChunkSignal struct {
	Label  string
	Values []float64
}

// WriteEDFChunk writes a binary chunk fixture containing the given signals.
// The calibration maps digital range onto the identical physical range, so
// integer-valued samples within ±5000 round-trip exactly. The bounds are
// chosen so their formatted values fit the container's 8-byte header fields.
// Every signal must hold a multiple of samplingRate samples (whole one-second
// records).
func WriteEDFChunk(t testing.TB, path string, start time.Time, samplingRate int, signals ...ChunkSignal) {
	t.Helper()

	if len(signals) == 0 {
		t.Fatal("WriteEDFChunk requires at least one signal")
	}
	records := len(signals[0].Values) / samplingRate
	for _, sig := range signals {
		if len(sig.Values)%samplingRate != 0 {
			t.Fatalf("signal %s has %d samples, not a multiple of %d", sig.Label, len(sig.Values), samplingRate)
		}
		if len(sig.Values)/samplingRate != records {
			t.Fatalf("signal %s length differs from first signal", sig.Label)
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	file, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer file.Close()

	hdr := edf.Header{
		Version:            edf.Version0,
		PatientID:          "X",
		RecordingID:        "biopipe test fixture",
		StartTime:          start,
		DataRecordDuration: time.Second,
		SignalCount:        len(signals),
	}
	for _, sig := range signals {
		hdr.Signals = append(hdr.Signals, edf.Signal{
			Label:             sig.Label,
			PhysicalDimension: "uV",
			PhysicalMin:       -5000,
			PhysicalMax:       5000,
			DigitalMin:        -5000,
			DigitalMax:        5000,
			SamplesPerRecord:  samplingRate,
		})
	}

	writer, err := edf.Create(file, hdr)
	if err != nil {
		t.Fatalf("create chunk fixture: %v", err)
	}
	for rec := 0; rec < records; rec++ {
		record := make([][]float64, len(signals))
		for i, sig := range signals {
			record[i] = sig.Values[rec*samplingRate : (rec+1)*samplingRate]
		}
		if err := writer.WriteRecord(record); err != nil {
			t.Fatalf("write record %d: %v", rec, err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close chunk fixture: %v", err)
	}
}

// WriteCSV writes a delimited table fixture with the given header and rows.
func WriteCSV(t testing.TB, path string, header []string, rows [][]string) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	file, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write(header); err != nil {
		t.Fatal(err)
	}
	if err := writer.WriteAll(rows); err != nil {
		t.Fatal(err)
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		t.Fatal(err)
	}
}

// Ramp returns n integer-valued samples starting at base, stepping by one.
// Handy for fixtures whose values must survive the chunk calibration exactly.
func Ramp(base, n int) []float64 {
	values := make([]float64, n)
	for i := range values {
		values[i] = float64(base + i)
	}
	return values
}
