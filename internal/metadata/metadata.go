package metadata

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"biopipe/internal/pipeline"
)

// SubjectPrefix is the canonical subject identifier prefix. Participant 5
// becomes TARIS05.
const SubjectPrefix = "TARIS"

// sessionDateLayout matches the day.month.year format used in the
// participant metadata table.
const sessionDateLayout = "2.1.2006"

var titleCaser = cases.Title(language.English)

// Record is one participant row from the metadata table. The table is the
// source of truth for device assignment and group membership; it is loaded
// once and immutable for a pipeline run.
type Record struct {
	ParticipantID int
	DeviceID      string
	Group         string
	SessionDate   time.Time
}

// SubjectID formats the participant ID as the fixed-width canonical subject
// identifier used throughout the output trees.
func (r Record) SubjectID() string {
	return FormatSubjectID(r.ParticipantID)
}

// FormatSubjectID builds a canonical subject identifier from a participant ID.
func FormatSubjectID(participantID int) string {
	return fmt.Sprintf("%s%02d", SubjectPrefix, participantID)
}

// Table holds the loaded participant metadata in file order.
type Table struct {
	Records []Record
}

// Load reads and parses the participant metadata CSV. Header names are
// matched case-insensitively with surrounding whitespace stripped; both
// "Device ID" and the legacy "Empatica ID" header identify the device column.
func Load(path string) (*Table, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, pipeline.Wrap(pipeline.ErrNoInput, "metadata", "open table", path, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.TrimLeadingSpace = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, pipeline.Wrap(pipeline.ErrDecode, "metadata", "parse table", path, err)
	}
	if len(rows) == 0 {
		return nil, pipeline.Wrap(pipeline.ErrNoInput, "metadata", "parse table", "metadata table is empty", nil)
	}

	cols, err := resolveColumns(rows[0])
	if err != nil {
		return nil, err
	}

	table := &Table{Records: make([]Record, 0, len(rows)-1)}
	for i, row := range rows[1:] {
		record, err := parseRecord(row, cols)
		if err != nil {
			return nil, pipeline.Wrap(pipeline.ErrDecode, "metadata", "parse row", fmt.Sprintf("row %d", i+2), err)
		}
		table.Records = append(table.Records, record)
	}
	return table, nil
}

type columns struct {
	participant int
	device      int
	group       int
	date        int
}

func resolveColumns(header []string) (columns, error) {
	cols := columns{participant: -1, device: -1, group: -1, date: -1}
	for i, name := range header {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "participant id", "participant_id":
			cols.participant = i
		case "device id", "device_id", "empatica id", "empatica_id":
			cols.device = i
		case "group":
			cols.group = i
		case "date", "session date", "session_date":
			cols.date = i
		}
	}
	if cols.participant < 0 || cols.device < 0 || cols.group < 0 || cols.date < 0 {
		return cols, pipeline.Wrap(pipeline.ErrDecode, "metadata", "resolve columns",
			fmt.Sprintf("missing required columns in header %v", header), nil)
	}
	return cols, nil
}

func parseRecord(row []string, cols columns) (Record, error) {
	max := cols.participant
	for _, idx := range []int{cols.device, cols.group, cols.date} {
		if idx > max {
			max = idx
		}
	}
	if len(row) <= max {
		return Record{}, fmt.Errorf("expected at least %d columns, got %d", max+1, len(row))
	}

	id, err := strconv.Atoi(strings.TrimSpace(row[cols.participant]))
	if err != nil {
		return Record{}, fmt.Errorf("participant ID: %w", err)
	}
	if id <= 0 {
		return Record{}, fmt.Errorf("participant ID must be positive, got %d", id)
	}

	date, err := time.Parse(sessionDateLayout, strings.TrimSpace(row[cols.date]))
	if err != nil {
		return Record{}, fmt.Errorf("session date: %w", err)
	}

	return Record{
		ParticipantID: id,
		DeviceID:      strings.TrimSpace(row[cols.device]),
		Group:         CanonicalGroup(row[cols.group]),
		SessionDate:   date,
	}, nil
}

// CanonicalGroup normalizes a group label to title case ("control" → "Control").
func CanonicalGroup(label string) string {
	return titleCaser.String(strings.ToLower(strings.TrimSpace(label)))
}

// GroupMapping maps each group label to its canonical subject IDs, built from
// every record regardless of date filtering. The decoder's grouping step
// depends on this covering the whole study, not just the staged date range.
func (t *Table) GroupMapping() map[string][]string {
	mapping := make(map[string][]string)
	for _, record := range t.Records {
		subject := record.SubjectID()
		if containsString(mapping[record.Group], subject) {
			continue
		}
		mapping[record.Group] = append(mapping[record.Group], subject)
	}
	return mapping
}

// InRange returns the records whose session date falls inside the inclusive
// [start, end] range. Zero time bounds are open on that side.
func (t *Table) InRange(start, end time.Time) []Record {
	var out []Record
	for _, record := range t.Records {
		day := record.SessionDate
		if !start.IsZero() && day.Before(start) {
			continue
		}
		if !end.IsZero() && day.After(end) {
			continue
		}
		out = append(out, record)
	}
	return out
}

func containsString(values []string, target string) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}
