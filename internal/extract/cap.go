package extract

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"biopipe/internal/sigproc"
)

// CapFeatureTable rewrites a feature table with per-column Tukey-fence
// capping: every numeric column is clamped to 1.5×IQR beyond its quartiles.
// Identity columns (anything that does not parse as a number throughout)
// pass through unchanged.
func CapFeatureTable(inPath, outPath string) error {
	file, err := os.Open(inPath)
	if err != nil {
		return err
	}
	records, err := csv.NewReader(file).ReadAll()
	file.Close()
	if err != nil {
		return err
	}
	if len(records) < 2 {
		return fmt.Errorf("%s: no feature rows to cap", inPath)
	}
	header, rows := records[0], records[1:]

	for col := range header {
		values := make([]float64, len(rows))
		numeric := true
		for i, row := range rows {
			v, err := strconv.ParseFloat(row[col], 64)
			if err != nil {
				numeric = false
				break
			}
			values[i] = v
		}
		if !numeric {
			continue
		}
		for i, v := range sigproc.CapOutliersIQR(values) {
			rows[i][col] = formatFeature(v)
		}
	}

	return writeTable(outPath, header, rows)
}
