package stager

import (
	"context"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"biopipe/internal/config"
	"biopipe/internal/logging"
	"biopipe/internal/metadata"
)

const dateLayout = "2006-01-02"

// Stager copies raw device session folders into the canonical
// raw/<date>/<subjectID> tree for the configured date range.
type Stager struct {
	cfg    *config.Config
	logger *slog.Logger
}

// Result reports which dates were materialized by a staging run. An empty
// date set is the stage's null result: nothing matched the range.
type Result struct {
	Dates []string
}

// New constructs the staging stage.
func New(cfg *config.Config, logger *slog.Logger) *Stager {
	return &Stager{cfg: cfg, logger: logging.NewComponentLogger(logger, "stager")}
}

// Run stages every metadata row whose session date falls inside the
// configured inclusive range. A missing source folder is an expected absence
// (recordings not yet synced) and is skipped; a copy failure for one row is
// logged and does not abort the remaining rows. Restaging a (date, subject)
// pair replaces the destination folder entirely.
func (s *Stager) Run(ctx context.Context, table *metadata.Table) (*Result, error) {
	logger := logging.WithContext(ctx, s.logger)

	start, end, err := s.dateRange()
	if err != nil {
		return nil, err
	}

	records := table.InRange(start, end)
	if len(records) == 0 {
		logger.Warn("no metadata rows in requested date range",
			logging.String("start_date", s.cfg.Pipeline.StartDate),
			logging.String("end_date", s.cfg.Pipeline.EndDate))
		return &Result{}, nil
	}

	dates := map[string]struct{}{}
	for _, record := range records {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		day := record.SessionDate.Format(dateLayout)
		subject := record.SubjectID()

		sourceDir := filepath.Join(s.cfg.Paths.UnprocessedDir, day)
		if _, err := os.Stat(sourceDir); err != nil {
			logger.Debug("no unprocessed folder for date",
				logging.String("date", day),
				logging.String(logging.FieldSubject, subject))
			continue
		}

		matches, err := deviceFolders(sourceDir, record.DeviceID)
		if err != nil {
			logger.Error("listing unprocessed date folder failed",
				logging.String(logging.FieldPath, sourceDir),
				logging.Error(err))
			continue
		}
		if len(matches) == 0 {
			logger.Debug("no session folder for device",
				logging.String("date", day),
				logging.String("device", record.DeviceID))
			continue
		}

		for _, folder := range matches {
			source := filepath.Join(sourceDir, folder)
			dest := filepath.Join(s.cfg.Paths.RawDir, day, subject)
			if err := replaceTree(source, dest); err != nil {
				logger.Error("staging copy failed",
					logging.String(logging.FieldSubject, subject),
					logging.String(logging.FieldPath, source),
					logging.Error(err))
				continue
			}
			logger.Info("staged session folder",
				logging.String(logging.FieldSubject, subject),
				logging.String("date", day),
				logging.String("device_folder", folder))
			dates[day] = struct{}{}
		}
	}

	result := &Result{Dates: make([]string, 0, len(dates))}
	for day := range dates {
		result.Dates = append(result.Dates, day)
	}
	sort.Strings(result.Dates)
	return result, nil
}

func (s *Stager) dateRange() (time.Time, time.Time, error) {
	var start, end time.Time
	var err error
	if s.cfg.Pipeline.StartDate != "" {
		if start, err = time.Parse(dateLayout, s.cfg.Pipeline.StartDate); err != nil {
			return start, end, err
		}
	}
	if s.cfg.Pipeline.EndDate != "" {
		if end, err = time.Parse(dateLayout, s.cfg.Pipeline.EndDate); err != nil {
			return start, end, err
		}
	}
	return start, end, nil
}

// deviceFolders lists directories under dir whose name is prefixed by the
// device ID, in lexical order.
func deviceFolders(dir, deviceID string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var matches []string
	for _, entry := range entries {
		if entry.IsDir() && strings.HasPrefix(entry.Name(), deviceID) {
			matches = append(matches, entry.Name())
		}
	}
	sort.Strings(matches)
	return matches, nil
}

// replaceTree copies src to dst, discarding any previous dst contents first.
func replaceTree(src, dst string) error {
	if err := os.RemoveAll(dst); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	return copyTree(src, dst)
}

func copyTree(src, dst string) error {
	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if d.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		return copyFile(path, target)
	})
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}
