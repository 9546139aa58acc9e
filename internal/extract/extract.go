package extract

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"biopipe/internal/config"
	"biopipe/internal/logging"
)

// Extractor computes per-subject, per-phase feature rows from the segmented
// tree and writes one feature table per run.
type Extractor struct {
	cfg    *config.Config
	logger *slog.Logger
	now    func() time.Time
}

// Result summarizes an extraction run. Rows == 0 with a nil error is the
// null result: nothing matched, no file written.
type Result struct {
	Rows       int
	OutputPath string
}

// New constructs the extraction stage.
func New(cfg *config.Config, logger *slog.Logger) *Extractor {
	return &Extractor{
		cfg:    cfg,
		logger: logging.NewComponentLogger(logger, "extract"),
		now:    time.Now,
	}
}

// Run enumerates group and subject folders in sorted order, dispatches each
// segmented table by its filename convention, accumulates feature rows in
// memory, and writes the table once at the end under a date-stamped folder.
func (e *Extractor) Run(ctx context.Context) (*Result, error) {
	logger := logging.WithContext(ctx, e.logger)

	groups, err := sortedDirs(e.cfg.Paths.SegmentedDir)
	if err != nil {
		return nil, err
	}

	var rows [][]string
	for _, group := range groups {
		subjects, err := sortedDirs(filepath.Join(e.cfg.Paths.SegmentedDir, group))
		if err != nil {
			return nil, err
		}
		for _, subject := range subjects {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			subjectDir := filepath.Join(e.cfg.Paths.SegmentedDir, group, subject)
			subjectLogger := logger.With(
				logging.String(logging.FieldGroup, group),
				logging.String(logging.FieldSubject, subject))

			var subjectRows [][]string
			if e.cfg.Pipeline.Modality == "eeg" {
				subjectRows = e.eegSubjectRows(subjectLogger, subjectDir, group, subject)
			} else {
				subjectRows = e.peripheralSubjectRows(subjectLogger, subjectDir, group, subject)
			}
			rows = append(rows, subjectRows...)
		}
	}

	if len(rows) == 0 {
		logger.Warn("no features extracted; nothing to write",
			logging.String(logging.FieldPath, e.cfg.Paths.SegmentedDir))
		return &Result{}, nil
	}

	outPath := filepath.Join(e.cfg.Paths.FeaturesDir,
		e.now().UTC().Format("2006-01-02"),
		e.cfg.Pipeline.Modality+"_features.csv")
	if err := writeTable(outPath, e.header(), rows); err != nil {
		return nil, err
	}
	logger.Info("feature table written",
		logging.String(logging.FieldPath, outPath),
		logging.Int("rows", len(rows)))
	return &Result{Rows: len(rows), OutputPath: outPath}, nil
}

func (e *Extractor) header() []string {
	header := []string{"subject_id"}
	if e.cfg.Pipeline.Modality == "eeg" {
		header = append(header, eegFeatureNames...)
	} else {
		header = append(header, edaFeatureNames...)
		header = append(header, bvpFeatureNames...)
	}
	return append(header, "phase", "group")
}

// peripheralSubjectRows produces one row per phase that has at least one of
// the two signal tables; the missing family is filled with NaN.
func (e *Extractor) peripheralSubjectRows(logger *slog.Logger, subjectDir, group, subject string) [][]string {
	byPhase := map[string]map[string]string{}
	for _, name := range listTables(subjectDir) {
		signal, phase, ok := parseTableName(name)
		if !ok {
			logger.Warn("unrecognized table name; skipping", logging.String(logging.FieldPath, name))
			continue
		}
		if signal != "eda" && signal != "bvp" {
			continue
		}
		if byPhase[phase] == nil {
			byPhase[phase] = map[string]string{}
		}
		byPhase[phase][signal] = filepath.Join(subjectDir, name)
	}

	fs := e.cfg.Extraction.SamplingRate
	var rows [][]string
	for _, phase := range e.phaseOrder(group, byPhase) {
		signals := byPhase[phase]

		// A missing table is an expected absence and leaves its family NaN;
		// a broken table excludes the whole subject/phase row.
		eda := nanVector(len(edaFeatureNames))
		failed := false
		if path, ok := signals["eda"]; ok {
			if columns, err := readColumns(path, "eda"); err != nil {
				logger.Error("reading electrodermal table failed",
					logging.String(logging.FieldPhase, phase), logging.Error(err))
				failed = true
			} else {
				eda = edaFeatures(columns["eda"], fs)
			}
		} else {
			logger.Info("no electrodermal table for phase", logging.String(logging.FieldPhase, phase))
		}

		bvp := nanVector(len(bvpFeatureNames))
		if path, ok := signals["bvp"]; ok {
			if columns, err := readColumns(path, "bvp"); err != nil {
				logger.Error("reading pulse table failed",
					logging.String(logging.FieldPhase, phase), logging.Error(err))
				failed = true
			} else {
				bvp = bvpFeatures(columns["bvp"], fs)
			}
		}
		if failed {
			continue
		}

		row := []string{subject}
		for _, v := range eda {
			row = append(row, formatFeature(v))
		}
		for _, v := range bvp {
			row = append(row, formatFeature(v))
		}
		rows = append(rows, append(row, phase, group))
	}
	return rows
}

// eegSubjectRows produces one row per phase with a complete window's worth
// of both channels; segments with zero complete windows are skipped.
func (e *Extractor) eegSubjectRows(logger *slog.Logger, subjectDir, group, subject string) [][]string {
	byPhase := map[string]string{}
	for _, name := range listTables(subjectDir) {
		signal, phase, ok := parseTableName(name)
		if !ok || signal != "eeg" {
			continue
		}
		byPhase[phase] = filepath.Join(subjectDir, name)
	}

	var rows [][]string
	for _, phase := range e.phaseOrderEEG(group, byPhase) {
		columns, err := readColumns(byPhase[phase], "f3", "f4")
		if err != nil {
			logger.Error("reading brain-wave table failed",
				logging.String(logging.FieldPhase, phase), logging.Error(err))
			continue
		}
		features, ok := eegFeatures(e.cfg, logger, phase, columns["f3"], columns["f4"])
		if !ok {
			logger.Warn("segment shorter than one analysis window; skipping",
				logging.String(logging.FieldPhase, phase))
			continue
		}
		row := []string{subject}
		for _, v := range features {
			row = append(row, formatFeature(v))
		}
		rows = append(rows, append(row, phase, strings.ToLower(group)))
	}
	return rows
}

// phaseOrder yields phases in the group's configured order when a rule
// exists, with any extra phases appended alphabetically.
func (e *Extractor) phaseOrder(group string, byPhase map[string]map[string]string) []string {
	present := make(map[string]bool, len(byPhase))
	for phase := range byPhase {
		present[phase] = true
	}
	return orderPhases(e.cfg, group, present)
}

func (e *Extractor) phaseOrderEEG(group string, byPhase map[string]string) []string {
	present := make(map[string]bool, len(byPhase))
	for phase := range byPhase {
		present[phase] = true
	}
	return orderPhases(e.cfg, group, present)
}

func orderPhases(cfg *config.Config, group string, present map[string]bool) []string {
	var ordered []string
	if rule, ok := cfg.GroupRuleFor(group); ok {
		for _, phase := range rule.Phases {
			if present[phase] {
				ordered = append(ordered, phase)
				delete(present, phase)
			}
		}
	}
	rest := make([]string, 0, len(present))
	for phase := range present {
		rest = append(rest, phase)
	}
	sort.Strings(rest)
	return append(ordered, rest...)
}

// parseTableName splits "<signal>_<subject>_<phase>.csv" into its signal and
// phase parts.
func parseTableName(name string) (signal, phase string, ok bool) {
	base := strings.TrimSuffix(name, ".csv")
	parts := strings.Split(base, "_")
	if len(parts) < 3 {
		return "", "", false
	}
	return parts[0], parts[len(parts)-1], true
}

func listTables(dir string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".csv") {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)
	return names
}

func sortedDirs(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}
