package extract

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// readColumns loads the named columns from a segmented table, by header
// lookup. Unparseable cells become an error; the decode stage only ever
// writes numeric cells.
func readColumns(path string, names ...string) (map[string][]float64, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%s: empty table", path)
	}

	indices := make(map[string]int, len(names))
	for _, name := range names {
		found := -1
		for i, field := range records[0] {
			if field == name {
				found = i
				break
			}
		}
		if found < 0 {
			return nil, fmt.Errorf("%s: column %q not found", path, name)
		}
		indices[name] = found
	}

	out := make(map[string][]float64, len(names))
	for _, name := range names {
		out[name] = make([]float64, 0, len(records)-1)
	}
	for rowIdx, record := range records[1:] {
		for name, col := range indices {
			if col >= len(record) {
				return nil, fmt.Errorf("%s: row %d too short", path, rowIdx+1)
			}
			value, err := strconv.ParseFloat(record[col], 64)
			if err != nil {
				return nil, fmt.Errorf("%s: row %d column %q: %w", path, rowIdx+1, name, err)
			}
			out[name] = append(out[name], value)
		}
	}
	return out, nil
}

// writeTable writes the accumulated feature table in one pass.
func writeTable(path string, header []string, rows [][]string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
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

// formatFeature renders a feature value; NaN cells read back as NaN.
func formatFeature(value float64) string {
	return strconv.FormatFloat(value, 'g', -1, 64)
}
