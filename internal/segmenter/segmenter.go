package segmenter

import (
	"context"
	"encoding/csv"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"biopipe/internal/config"
	"biopipe/internal/logging"
	"biopipe/internal/pipeline"
)

// Segmenter splits each grouped signal table into consecutive experiment
// phases, sized by the configured per-group ratios.
type Segmenter struct {
	cfg    *config.Config
	logger *slog.Logger
}

// Result summarizes a segmentation run.
type Result struct {
	FilesSegmented int
	FilesFailed    int
}

// New constructs the segmentation stage.
func New(cfg *config.Config, logger *slog.Logger) *Segmenter {
	return &Segmenter{cfg: cfg, logger: logging.NewComponentLogger(logger, "segmenter")}
}

// Run walks the grouped tree and splits every table under a known group into
// its phase files, mirroring the directory layout into the segmented tree.
// Folders directly under the grouped root with no configured rule are left
// alone. A missing or empty grouped tree is a null result, not an error.
func (s *Segmenter) Run(ctx context.Context) (*Result, error) {
	logger := logging.WithContext(ctx, s.logger)

	entries, err := os.ReadDir(s.cfg.Paths.GroupedDir)
	if err != nil && !os.IsNotExist(err) {
		return nil, err
	}

	result := &Result{}
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !entry.IsDir() {
			continue
		}
		group := entry.Name()
		rule, ok := s.cfg.GroupRuleFor(group)
		if !ok {
			logger.Debug("no segmentation rule for folder; skipping",
				logging.String(logging.FieldGroup, group))
			continue
		}
		if err := s.segmentGroup(ctx, group, rule, result); err != nil {
			return nil, err
		}
	}

	if result.FilesSegmented == 0 && result.FilesFailed == 0 {
		logger.Warn("no grouped tables to segment",
			logging.String(logging.FieldPath, s.cfg.Paths.GroupedDir))
	} else {
		logger.Info("segmentation finished",
			logging.Int("files_segmented", result.FilesSegmented),
			logging.Int("files_failed", result.FilesFailed))
	}
	return result, nil
}

func (s *Segmenter) segmentGroup(ctx context.Context, group string, rule config.GroupRule, result *Result) error {
	logger := logging.WithContext(ctx, s.logger)

	// The rule is checked once up front so a bad configuration fails before
	// a single table has been read.
	if len(rule.Phases) != len(rule.Ratios) {
		return pipeline.Wrap(pipeline.ErrConfiguration, "segment", group,
			fmt.Sprintf("%d phases but %d ratios", len(rule.Phases), len(rule.Ratios)), nil)
	}
	for _, ratio := range rule.Ratios {
		if ratio <= 0 {
			return pipeline.Wrap(pipeline.ErrConfiguration, "segment", group, "non-positive ratio", nil)
		}
	}

	// The decoder nests tables one level deep (group/subject), but the walk
	// mirrors arbitrary nesting so hand-arranged trees segment too.
	groupDir := filepath.Join(s.cfg.Paths.GroupedDir, group)
	return filepath.WalkDir(groupDir, func(src string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".csv") {
			return nil
		}
		rel, err := filepath.Rel(groupDir, src)
		if err != nil {
			return err
		}
		destDir := filepath.Join(s.cfg.Paths.SegmentedDir, group, filepath.Dir(rel))
		if err := s.segmentFile(src, destDir, entry.Name(), rule); err != nil {
			logger.Error("segmenting table failed",
				logging.String(logging.FieldGroup, group),
				logging.String(logging.FieldPath, src),
				logging.Error(err))
			result.FilesFailed++
			return nil
		}
		result.FilesSegmented++
		return nil
	})
}

// segmentFile splits one table into len(rule.Phases) consecutive slices and
// writes each as <base>_<phase>.csv with the original header.
func (s *Segmenter) segmentFile(src, destDir, name string, rule config.GroupRule) error {
	file, err := os.Open(src)
	if err != nil {
		return err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	records, err := reader.ReadAll()
	if err != nil {
		return err
	}
	// A table with no data rows is silently skipped: no phase files.
	if len(records) <= 1 {
		return nil
	}
	header, rows := records[0], records[1:]

	sizes := SegmentSizes(len(rows), rule.Ratios)
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return err
	}

	base := strings.TrimSuffix(name, ".csv")
	offset := 0
	for i, phase := range rule.Phases {
		slice := rows[offset : offset+sizes[i]]
		offset += sizes[i]
		dest := filepath.Join(destDir, fmt.Sprintf("%s_%s.csv", base, phase))
		if err := writeTable(dest, header, slice); err != nil {
			return err
		}
	}
	return nil
}

// SegmentSizes apportions n rows across the ratios: each segment gets
// floor(n*r_i/sum) rows and the last segment absorbs the remainder, so the
// sizes always sum to n and only the last segment can exceed its floor share.
func SegmentSizes(n int, ratios []int) []int {
	total := 0
	for _, r := range ratios {
		total += r
	}
	sizes := make([]int, len(ratios))
	assigned := 0
	for i, r := range ratios[:len(ratios)-1] {
		sizes[i] = n * r / total
		assigned += sizes[i]
	}
	sizes[len(ratios)-1] = n - assigned
	return sizes
}

func writeTable(path string, header []string, rows [][]string) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}

	writer := csv.NewWriter(file)
	if err := writer.Write(header); err != nil {
		file.Close()
		return err
	}
	if err := writer.WriteAll(rows); err != nil {
		file.Close()
		return err
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}
