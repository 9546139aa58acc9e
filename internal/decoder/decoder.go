package decoder

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"biopipe/internal/config"
	"biopipe/internal/edfio"
	"biopipe/internal/logging"
)

// subjectPattern recovers the canonical subject ID from a chunk or table
// filename, e.g. TARIS12 from "TARIS12_1.edf" or "eda_TARIS12.csv".
var subjectPattern = regexp.MustCompile(`TARIS\d+`)

// Decoder converts binary chunks under the canonical raw tree into
// per-subject, per-signal flat tables, then regroups subjects by
// experimental group.
type Decoder struct {
	cfg    *config.Config
	logger *slog.Logger
}

// Result summarizes a decode run.
type Result struct {
	ChunksDecoded int
	ChunksFailed  int
	Subjects      []string
}

// New constructs the decoding stage.
func New(cfg *config.Config, logger *slog.Logger) *Decoder {
	return &Decoder{cfg: cfg, logger: logging.NewComponentLogger(logger, "decoder")}
}

// Run executes the rename, decode, and group steps in order.
func (d *Decoder) Run(ctx context.Context, dates []string, mapping map[string][]string) (*Result, error) {
	if err := d.Rename(ctx, dates); err != nil {
		return nil, err
	}
	result, err := d.Decode(ctx)
	if err != nil {
		return nil, err
	}
	if err := d.Group(ctx, mapping); err != nil {
		return nil, err
	}
	return result, nil
}

// Rename canonicalizes chunk filenames within each date folder: a subject's
// chunks become <subjectID>_<index> (1-based) when more than one exists, else
// <subjectID>. Chunks are enumerated in lexical order per directory; this
// ordering is the committed append-order contract for the decode step.
func (d *Decoder) Rename(ctx context.Context, dates []string) error {
	logger := logging.WithContext(ctx, d.logger)

	if len(dates) == 0 {
		entries, err := os.ReadDir(d.cfg.Paths.RawDir)
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		for _, entry := range entries {
			if entry.IsDir() {
				dates = append(dates, entry.Name())
			}
		}
		sort.Strings(dates)
	}

	for _, date := range dates {
		dateDir := filepath.Join(d.cfg.Paths.RawDir, date)
		subjects, err := os.ReadDir(dateDir)
		if err != nil {
			logger.Debug("no raw folder for date", logging.String("date", date))
			continue
		}
		for _, subjectEntry := range subjects {
			if err := ctx.Err(); err != nil {
				return err
			}
			if !subjectEntry.IsDir() {
				continue
			}
			subject := subjectEntry.Name()
			if err := renameSubjectChunks(filepath.Join(dateDir, subject), subject, logger); err != nil {
				logger.Error("chunk rename failed",
					logging.String(logging.FieldSubject, subject),
					logging.Error(err))
			}
		}
	}
	return nil
}

// renameSubjectChunks renames chunks per directory containing them.
func renameSubjectChunks(subjectDir, subject string, logger *slog.Logger) error {
	chunkDirs := map[string][]string{}
	err := filepath.WalkDir(subjectDir, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !entry.IsDir() && edfio.IsChunk(entry.Name()) {
			dir := filepath.Dir(path)
			chunkDirs[dir] = append(chunkDirs[dir], entry.Name())
		}
		return nil
	})
	if err != nil {
		return err
	}

	dirs := make([]string, 0, len(chunkDirs))
	for dir := range chunkDirs {
		dirs = append(dirs, dir)
	}
	sort.Strings(dirs)

	for _, dir := range dirs {
		names := chunkDirs[dir]
		sort.Strings(names)
		for i, name := range names {
			target := subject + edfio.ChunkExt
			if len(names) > 1 {
				target = fmt.Sprintf("%s_%d%s", subject, i+1, edfio.ChunkExt)
			}
			if name == target {
				continue
			}
			if err := os.Rename(filepath.Join(dir, name), filepath.Join(dir, target)); err != nil {
				return err
			}
			logger.Debug("renamed chunk",
				logging.String(logging.FieldSubject, subject),
				logging.String("from", name),
				logging.String("to", target))
		}
	}
	return nil
}

// Decode converts every chunk found under the raw tree into per-subject
// per-signal tables in the decoded directory. Subjects are processed
// concurrently up to the configured worker count; one subject's chunks are
// always appended sequentially in discovery order so multi-chunk series
// concatenate deterministically. A decode failure for one chunk is logged
// and the remaining chunks continue.
func (d *Decoder) Decode(ctx context.Context) (*Result, error) {
	logger := logging.WithContext(ctx, d.logger)

	chunksBySubject, subjects, err := d.discoverChunks()
	if err != nil {
		return nil, err
	}
	if len(subjects) == 0 {
		logger.Warn("no chunks found under raw tree", logging.String(logging.FieldPath, d.cfg.Paths.RawDir))
		return &Result{}, nil
	}

	workers := d.cfg.Pipeline.Workers
	if workers < 1 {
		workers = 1
	}
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(workers)

	results := make([]Result, len(subjects))
	for i, subject := range subjects {
		i, subject := i, subject
		group.Go(func() error {
			subjectCtx := logging.WithSubject(groupCtx, subject)
			results[i] = d.decodeSubject(subjectCtx, subject, chunksBySubject[subject])
			return groupCtx.Err()
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}

	total := &Result{Subjects: subjects}
	for _, r := range results {
		total.ChunksDecoded += r.ChunksDecoded
		total.ChunksFailed += r.ChunksFailed
	}
	logger.Info("decode step finished",
		logging.Int("chunks_decoded", total.ChunksDecoded),
		logging.Int("chunks_failed", total.ChunksFailed),
		logging.Int("subjects", len(subjects)))
	return total, nil
}

// discoverChunks walks the raw tree once and buckets chunk paths by subject,
// preserving walk (lexical) order within each bucket.
func (d *Decoder) discoverChunks() (map[string][]string, []string, error) {
	chunks := map[string][]string{}
	err := filepath.WalkDir(d.cfg.Paths.RawDir, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if entry.IsDir() || !edfio.IsChunk(entry.Name()) {
			return nil
		}
		subject := SubjectFromFilename(entry.Name())
		chunks[subject] = append(chunks[subject], path)
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	subjects := make([]string, 0, len(chunks))
	for subject := range chunks {
		subjects = append(subjects, subject)
	}
	sort.Strings(subjects)
	return chunks, subjects, nil
}

func (d *Decoder) decodeSubject(ctx context.Context, subject string, chunkPaths []string) Result {
	logger := logging.WithContext(ctx, d.logger)

	var result Result
	var prevStart int64
	for i, path := range chunkPaths {
		series, err := edfio.ReadChunk(path)
		if err != nil {
			logger.Error("chunk decode failed", logging.String(logging.FieldPath, path), logging.Error(err))
			result.ChunksFailed++
			continue
		}
		if len(series) > 0 {
			if i > 0 && series[0].StartMicros < prevStart {
				// Order stays as discovered; surfaced for domain owners.
				logger.Warn("chunk start precedes earlier chunk; appending in discovery order",
					logging.String(logging.FieldPath, path))
			}
			prevStart = series[0].StartMicros
		}

		var appendErr error
		switch d.cfg.Pipeline.Modality {
		case "eeg":
			appendErr = d.appendEEG(subject, path, series, logger)
		default:
			appendErr = d.appendPeripheral(subject, path, series, logger)
		}
		if appendErr != nil {
			logger.Error("appending decoded series failed", logging.String(logging.FieldPath, path), logging.Error(appendErr))
			result.ChunksFailed++
			continue
		}
		result.ChunksDecoded++
	}
	return result
}

// peripheralChannels are the signal labels decoded for peripheral runs.
var peripheralChannels = []string{"eda", "bvp"}

func (d *Decoder) appendPeripheral(subject, chunkPath string, series []edfio.Series, logger *slog.Logger) error {
	for _, label := range peripheralChannels {
		found, ok := findSeries(series, label)
		if !ok {
			logger.Info("channel not present in chunk",
				logging.String("channel", label),
				logging.String(logging.FieldPath, chunkPath))
			continue
		}
		outPath := filepath.Join(d.cfg.Paths.DecodedDir, fmt.Sprintf("%s_%s.csv", label, subject))
		timestamps := found.Timestamps()
		rows := make([][]string, len(found.Values))
		for i, value := range found.Values {
			rows[i] = []string{formatTimestamp(timestamps[i]), formatValue(value)}
		}
		if err := appendTable(outPath, []string{"unix_timestamp", label}, rows); err != nil {
			return err
		}
	}
	return nil
}

func (d *Decoder) appendEEG(subject, chunkPath string, series []edfio.Series, logger *slog.Logger) error {
	f3, okF3 := findSeries(series, "f3")
	f4, okF4 := findSeries(series, "f4")
	if !okF3 || !okF4 {
		logger.Info("required channels not present in chunk",
			logging.String(logging.FieldPath, chunkPath),
			logging.Bool("f3", okF3),
			logging.Bool("f4", okF4))
		return nil
	}

	n := len(f3.Values)
	if len(f4.Values) < n {
		n = len(f4.Values)
	}
	timestamps := f3.Timestamps()
	rows := make([][]string, n)
	for i := 0; i < n; i++ {
		rows[i] = []string{formatTimestamp(timestamps[i]), formatValue(f3.Values[i]), formatValue(f4.Values[i])}
	}
	outPath := filepath.Join(d.cfg.Paths.DecodedDir, fmt.Sprintf("eeg_%s.csv", subject))
	return appendTable(outPath, []string{"unix_timestamp", "f3", "f4"}, rows)
}

// Group moves every decoded table into a per-subject subfolder, then moves
// each subject subfolder into its experimental-group folder. Subjects absent
// from the mapping stay directly under the grouped root, invisible to later
// stages; that signals a metadata gap, not a fatal condition.
func (d *Decoder) Group(ctx context.Context, mapping map[string][]string) error {
	logger := logging.WithContext(ctx, d.logger)

	entries, err := os.ReadDir(d.cfg.Paths.DecodedDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return err
		}
		subject := SubjectFromFilename(name)
		if subject == "" {
			logger.Warn("decoded table without recognizable subject", logging.String(logging.FieldPath, name))
			continue
		}
		destDir := filepath.Join(d.cfg.Paths.GroupedDir, subject)
		if err := os.MkdirAll(destDir, 0o755); err != nil {
			return err
		}
		if err := os.Rename(filepath.Join(d.cfg.Paths.DecodedDir, name), filepath.Join(destDir, name)); err != nil {
			logger.Error("moving decoded table failed", logging.String(logging.FieldPath, name), logging.Error(err))
		}
	}

	groups := make([]string, 0, len(mapping))
	for group := range mapping {
		groups = append(groups, group)
	}
	sort.Strings(groups)

	for _, group := range groups {
		groupDir := filepath.Join(d.cfg.Paths.GroupedDir, group)
		if err := os.MkdirAll(groupDir, 0o755); err != nil {
			return err
		}
		for _, subject := range mapping[group] {
			current := filepath.Join(d.cfg.Paths.GroupedDir, subject)
			if _, err := os.Stat(current); err != nil {
				continue
			}
			if err := os.Rename(current, filepath.Join(groupDir, subject)); err != nil {
				logger.Error("moving subject folder failed",
					logging.String(logging.FieldSubject, subject),
					logging.String(logging.FieldGroup, group),
					logging.Error(err))
			}
		}
	}
	return nil
}

// SubjectFromFilename recovers the canonical subject ID from a filename,
// falling back to the leading token before the first underscore or dot.
func SubjectFromFilename(name string) string {
	if match := subjectPattern.FindString(name); match != "" {
		return match
	}
	base := name
	if idx := strings.IndexAny(base, "_."); idx > 0 {
		base = base[:idx]
	}
	return base
}
