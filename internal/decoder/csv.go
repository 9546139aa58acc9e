package decoder

import (
	"encoding/csv"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"biopipe/internal/edfio"
)

// findSeries locates a decoded signal by normalized label.
func findSeries(series []edfio.Series, label string) (edfio.Series, bool) {
	for _, s := range series {
		if s.Label == label {
			return s, true
		}
	}
	return edfio.Series{}, false
}

// appendTable appends rows to a flat table, writing the header only when the
// file does not exist yet. Chunks decoded later land strictly after earlier
// rows whatever their timestamps say.
func appendTable(path string, header []string, rows [][]string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	_, statErr := os.Stat(path)
	writeHeader := errors.Is(statErr, fs.ErrNotExist)
	if statErr != nil && !writeHeader {
		return statErr
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}

	writer := csv.NewWriter(file)
	if writeHeader {
		if err := writer.Write(header); err != nil {
			file.Close()
			return err
		}
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

func formatTimestamp(micros int64) string {
	return strconv.FormatInt(micros, 10)
}

func formatValue(value float64) string {
	return strconv.FormatFloat(value, 'g', -1, 64)
}
