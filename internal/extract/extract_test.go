package extract

import (
	"context"
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"biopipe/internal/logging"
	"biopipe/internal/testsupport"
)

func allNaN(t *testing.T, features []float64) {
	t.Helper()
	for i, v := range features {
		if !math.IsNaN(v) {
			t.Errorf("feature %d = %v, want NaN", i, v)
		}
	}
}

func TestEDAFeaturesThreshold(t *testing.T) {
	fs := 64

	short := make([]float64, minEDASamples)
	for i := range short {
		short[i] = 5
	}
	allNaN(t, edaFeatures(short, fs))

	long := make([]float64, minEDASamples+1)
	for i := range long {
		long[i] = 5 + 0.001*float64(i)
	}
	features := edaFeatures(long, fs)
	if math.IsNaN(features[0]) {
		t.Error("scl_mean should be finite above the sample threshold")
	}
	// Quality is the z-scored signal's variance: exactly one for any
	// non-constant input.
	if got := features[5]; math.Abs(got-1) > 1e-9 {
		t.Errorf("signal_quality = %v, want 1", got)
	}
	// No detected responses reports a zero amplitude, not NaN.
	if got := features[4]; math.IsNaN(got) {
		t.Error("scr_amp_mean must be 0 when no responses are found")
	}
}

func TestBVPFeaturesThreshold(t *testing.T) {
	fs := 64
	allNaN(t, bvpFeatures(make([]float64, minBVPSamples-1), fs))

	// 1 Hz pulse for ten seconds: one beat per second.
	signal := make([]float64, 10*fs)
	for i := range signal {
		signal[i] = math.Sin(2 * math.Pi * float64(i) / float64(fs))
	}
	features := bvpFeatures(signal, fs)
	meanRRI, heartRate := features[0], features[3]
	if math.Abs(meanRRI-1.0) > 0.05 {
		t.Errorf("mean_rri = %v, want ~1.0", meanRRI)
	}
	if math.Abs(heartRate-60) > 3 {
		t.Errorf("heart_rate = %v, want ~60", heartRate)
	}
}

func TestPoincareAxes(t *testing.T) {
	rri := []float64{0.8, 1.0, 0.9, 1.1}
	sd1, sd2 := poincareAxes(rri)

	// Minor axis: sample std of (0.8-1.0, 1.0-0.9, 0.9-1.1)/sqrt2.
	if want := math.Sqrt(0.03) / math.Sqrt2; math.Abs(sd1-want) > 1e-12 {
		t.Errorf("sd1 = %v, want %v", sd1, want)
	}
	// Major axis: sample std of (1.8, 1.9, 2.0)/sqrt2.
	if want := 0.1 / math.Sqrt2; math.Abs(sd2-want) > 1e-12 {
		t.Errorf("sd2 = %v, want %v", sd2, want)
	}
}

func signalRows(values []float64) [][]string {
	rows := make([][]string, len(values))
	for i, v := range values {
		rows[i] = []string{fmt.Sprint(i), strconv.FormatFloat(v, 'g', -1, 64)}
	}
	return rows
}

func readTable(t *testing.T, path string) [][]string {
	t.Helper()
	file, err := os.Open(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer file.Close()
	records, err := csv.NewReader(file).ReadAll()
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return records
}

func fixedClock(e *Extractor) {
	e.now = func() time.Time {
		return time.Date(2026, 1, 20, 12, 0, 0, 0, time.UTC)
	}
}

func TestRunPeripheral(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	subjectDir := filepath.Join(cfg.Paths.SegmentedDir, "Control", "TARIS05")

	eda := make([]float64, 200)
	for i := range eda {
		eda[i] = 5 + 0.01*math.Sin(float64(i)/10)
	}
	bvp := make([]float64, 10*cfg.Extraction.SamplingRate)
	for i := range bvp {
		bvp[i] = math.Sin(2 * math.Pi * float64(i) / float64(cfg.Extraction.SamplingRate))
	}
	testsupport.WriteCSV(t, filepath.Join(subjectDir, "eda_TARIS05_baseline.csv"),
		[]string{"unix_timestamp", "eda"}, signalRows(eda))
	testsupport.WriteCSV(t, filepath.Join(subjectDir, "bvp_TARIS05_baseline.csv"),
		[]string{"unix_timestamp", "bvp"}, signalRows(bvp))
	// Test phase has only an electrodermal table; pulse columns become NaN.
	testsupport.WriteCSV(t, filepath.Join(subjectDir, "eda_TARIS05_test.csv"),
		[]string{"unix_timestamp", "eda"}, signalRows(eda))

	e := New(cfg, logging.NewNop())
	fixedClock(e)
	result, err := e.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Rows != 2 {
		t.Fatalf("rows = %d, want 2", result.Rows)
	}
	wantPath := filepath.Join(cfg.Paths.FeaturesDir, "2026-01-20", "peripheral_features.csv")
	if result.OutputPath != wantPath {
		t.Fatalf("output path = %s, want %s", result.OutputPath, wantPath)
	}

	records := readTable(t, wantPath)
	header := records[0]
	if header[0] != "subject_id" || header[len(header)-2] != "phase" || header[len(header)-1] != "group" {
		t.Fatalf("unexpected header %v", header)
	}
	if len(header) != 1+6+7+2 {
		t.Fatalf("header width = %d, want 16", len(header))
	}

	baseline := records[1]
	if baseline[0] != "TARIS05" || baseline[len(baseline)-2] != "baseline" || baseline[len(baseline)-1] != "Control" {
		t.Fatalf("baseline row identity fields wrong: %v", baseline)
	}
	if baseline[1] == "NaN" {
		t.Error("baseline scl_mean should be finite")
	}

	testRow := records[2]
	if testRow[len(testRow)-2] != "test" {
		t.Fatalf("second row phase = %s, want test", testRow[len(testRow)-2])
	}
	// Pulse family columns are NaN when the table is absent.
	if testRow[7] != "NaN" {
		t.Errorf("mean_rri = %s, want NaN for missing pulse table", testRow[7])
	}
}

func TestRunNullResult(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	e := New(cfg, logging.NewNop())
	fixedClock(e)

	result, err := e.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Rows != 0 || result.OutputPath != "" {
		t.Fatalf("result = %+v, want null", result)
	}
	if entries, err := os.ReadDir(cfg.Paths.FeaturesDir); err == nil && len(entries) > 0 {
		t.Error("null result must not write files")
	}
}

func TestRunEEG(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithModality("eeg"))
	cfg.Extraction.EEGSamplingRate = 64
	cfg.Extraction.EEGWindowSeconds = 2
	cfg.Extraction.BaselineSeconds = 4
	cfg.Extraction.PhaseSeconds = 4

	fs := cfg.Extraction.EEGSamplingRate
	n := 4 * fs
	rows := make([][]string, n)
	for i := range rows {
		alpha := math.Sin(2 * math.Pi * 10 * float64(i) / float64(fs))
		beta := 0.3 * math.Sin(2*math.Pi*20*float64(i)/float64(fs))
		v := strconv.FormatFloat(alpha+beta, 'g', -1, 64)
		rows[i] = []string{fmt.Sprint(i), v, v}
	}
	subjectDir := filepath.Join(cfg.Paths.SegmentedDir, "Control", "TARIS05")
	testsupport.WriteCSV(t, filepath.Join(subjectDir, "eeg_TARIS05_baseline.csv"),
		[]string{"unix_timestamp", "f3", "f4"}, rows)
	// Shorter than one analysis window: skipped entirely.
	testsupport.WriteCSV(t, filepath.Join(subjectDir, "eeg_TARIS05_test.csv"),
		[]string{"unix_timestamp", "f3", "f4"}, rows[:fs])

	e := New(cfg, logging.NewNop())
	fixedClock(e)
	result, err := e.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Rows != 1 {
		t.Fatalf("rows = %d, want 1", result.Rows)
	}

	records := readTable(t, result.OutputPath)
	row := records[1]
	if row[len(row)-1] != "control" {
		t.Errorf("group = %s, want lowercased", row[len(row)-1])
	}
	asymmetry, err := strconv.ParseFloat(row[1], 64)
	if err != nil || math.Abs(asymmetry) > 0.1 {
		t.Errorf("Alpha_Asymmetry = %s, want ~0 for identical channels", row[1])
	}
	for i, name := range eegFeatureNames {
		if row[i+1] == "NaN" {
			t.Errorf("%s is NaN, want finite", name)
		}
	}
}

func TestRunEEGShortSegment(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithModality("eeg"))
	cfg.Extraction.EEGSamplingRate = 64
	cfg.Extraction.EEGWindowSeconds = 2
	cfg.Extraction.BaselineSeconds = 8
	cfg.Extraction.PhaseSeconds = 8

	// Six seconds where the protocol expects eight: three of four analysis
	// windows are present, so a row is still produced from what fits.
	fs := cfg.Extraction.EEGSamplingRate
	n := 6 * fs
	rows := make([][]string, n)
	for i := range rows {
		v := strconv.FormatFloat(math.Sin(2*math.Pi*10*float64(i)/float64(fs)), 'g', -1, 64)
		rows[i] = []string{fmt.Sprint(i), v, v}
	}
	subjectDir := filepath.Join(cfg.Paths.SegmentedDir, "Control", "TARIS05")
	testsupport.WriteCSV(t, filepath.Join(subjectDir, "eeg_TARIS05_baseline.csv"),
		[]string{"unix_timestamp", "f3", "f4"}, rows)

	e := New(cfg, logging.NewNop())
	fixedClock(e)
	result, err := e.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Rows != 1 {
		t.Fatalf("rows = %d, want 1", result.Rows)
	}

	records := readTable(t, result.OutputPath)
	row := records[1]
	for i, name := range eegFeatureNames {
		if row[i+1] == "NaN" {
			t.Errorf("%s is NaN, want finite", name)
		}
	}
}

func TestCapFeatureTable(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	in := filepath.Join(cfg.Paths.FeaturesDir, "peripheral_features.csv")
	rows := [][]string{
		{"TARIS01", "1", "baseline"},
		{"TARIS02", "2", "baseline"},
		{"TARIS03", "3", "baseline"},
		{"TARIS04", "4", "baseline"},
		{"TARIS05", "5", "baseline"},
		{"TARIS06", "1000", "baseline"},
	}
	testsupport.WriteCSV(t, in, []string{"subject_id", "scl_mean", "phase"}, rows)

	out := filepath.Join(cfg.Paths.FeaturesDir, "peripheral_features_capped.csv")
	if err := CapFeatureTable(in, out); err != nil {
		t.Fatalf("CapFeatureTable: %v", err)
	}

	records := readTable(t, out)
	if records[1][0] != "TARIS01" || records[1][2] != "baseline" {
		t.Errorf("identity columns must pass through: %v", records[1])
	}
	capped, err := strconv.ParseFloat(records[6][1], 64)
	if err != nil {
		t.Fatalf("capped cell: %v", err)
	}
	if capped >= 1000 {
		t.Errorf("outlier not capped: %v", capped)
	}
	if records[2][1] != "2" {
		t.Errorf("inlier changed: %v", records[2][1])
	}
}
