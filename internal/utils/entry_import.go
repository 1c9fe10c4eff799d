package utils

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/ArowuTest/bridgetunes-draw-console/internal/apperrors"
	"github.com/ArowuTest/bridgetunes-draw-console/internal/models"
)

// NoValidEntriesMessage is shown when an upload has no usable rows.
const NoValidEntriesMessage = "CSV contains no valid msisdn & points rows."

// maxLineBytes bounds a single upload line.
const maxLineBytes = 1 << 20

var (
	msisdnColumns = []string{"MSISDN", "Phone Number", "Phone", "Mobile", "Identifier"}
	pointsColumns = []string{"Points", "Weight", "Entries", "Tickets"}
)

// EntryImport is the result of reading an upload: the surviving entries in
// input order and how many data rows were looked at.
type EntryImport struct {
	Entries   []models.ParticipantEntry
	TotalRows int
}

// Skipped is the number of data rows that were dropped as invalid.
func (i *EntryImport) Skipped() int {
	return i.TotalRows - len(i.Entries)
}

// ParseEntries reads a delimited upload and returns its valid entries.
func ParseEntries(r io.Reader) ([]models.ParticipantEntry, error) {
	imp, err := ReadEntries(r)
	if err != nil {
		return nil, err
	}
	return imp.Entries, nil
}

// ReadEntries reads a CSV upload with a mandatory header row, one record
// per line. Rows without a non-empty identifier and a positive integer
// weight are dropped silently; a malformed line costs only itself. Only a
// failing read of r is reported, as *apperrors.ParseError.
func ReadEntries(r io.Reader) (*EntryImport, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	next := func() ([]string, error) {
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return nil, err
			}
			return nil, io.EOF
		}
		return splitLine(scanner.Text()), nil
	}
	return collectEntries(next)
}

// splitLine parses one CSV line. A line that is not valid CSV comes back as
// a single cell so it is counted and then rejected like any other bad row.
func splitLine(line string) []string {
	line = strings.TrimSuffix(line, "\r")
	if strings.TrimSpace(line) == "" {
		return []string{}
	}
	reader := csv.NewReader(strings.NewReader(line))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	row, err := reader.Read()
	if err != nil {
		return []string{line}
	}
	return row
}

// ParseEntriesFile reads an uploaded file by name. Excel workbooks are read
// from their first sheet, everything else is treated as CSV.
func ParseEntriesFile(name string, data []byte) (*EntryImport, error) {
	if strings.EqualFold(filepath.Ext(name), ".xlsx") {
		return readXLSXEntries(data)
	}
	return ReadEntries(bytes.NewReader(data))
}

// FilterEntries applies the upload row rules to entries that arrived
// already structured: identifiers are trimmed, and entries without one or
// without a positive weight are dropped.
func FilterEntries(entries []models.ParticipantEntry) []models.ParticipantEntry {
	var out []models.ParticipantEntry
	for _, e := range entries {
		msisdn := strings.TrimSpace(e.MSISDN)
		if msisdn == "" || e.Points <= 0 {
			continue
		}
		out = append(out, models.ParticipantEntry{MSISDN: msisdn, Points: e.Points})
	}
	return out
}

// RequireEntries fails when nothing survived validation, which must block
// submission of a manual draw.
func RequireEntries(entries []models.ParticipantEntry) error {
	if len(entries) == 0 {
		return apperrors.NewValidationError("", NoValidEntriesMessage)
	}
	return nil
}

func readXLSXEntries(data []byte) (*EntryImport, error) {
	f, err := xlsx.OpenBinary(data)
	if err != nil {
		return nil, &apperrors.ParseError{Err: eris.Wrap(err, "xlsx: open workbook")}
	}
	if len(f.Sheets) == 0 {
		return &EntryImport{}, nil
	}
	rows := f.Sheets[0].Rows
	i := 0
	next := func() ([]string, error) {
		if i >= len(rows) {
			return nil, io.EOF
		}
		row := rows[i]
		i++
		if row == nil {
			return []string{}, nil
		}
		cells := make([]string, len(row.Cells))
		for j, cell := range row.Cells {
			cells[j] = cell.String()
		}
		return cells, nil
	}
	return collectEntries(next)
}

// collectEntries consumes rows from next until io.EOF. The first row is the
// header; blank rows are ignored and do not count as data rows.
func collectEntries(next func() ([]string, error)) (*EntryImport, error) {
	header, err := nextNonBlank(next)
	if err == io.EOF {
		return &EntryImport{}, nil
	}
	if err != nil {
		return nil, &apperrors.ParseError{Err: eris.Wrap(err, "read header")}
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	msisdnIdx := findColumnIndex(header, msisdnColumns)
	pointsIdx := findColumnIndex(header, pointsColumns)
	if msisdnIdx == -1 || pointsIdx == -1 || msisdnIdx == pointsIdx {
		msisdnIdx, pointsIdx = 0, 1
	}

	result := &EntryImport{}
	for {
		row, err := nextNonBlank(next)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &apperrors.ParseError{Err: eris.Wrapf(err, "read row %d", result.TotalRows+1)}
		}
		result.TotalRows++

		entry, ok := parseEntryRow(row, msisdnIdx, pointsIdx)
		if !ok {
			continue
		}
		result.Entries = append(result.Entries, entry)
	}
	return result, nil
}

func nextNonBlank(next func() ([]string, error)) ([]string, error) {
	for {
		row, err := next()
		if err != nil {
			return nil, err
		}
		if !isBlankRow(row) {
			return row, nil
		}
	}
}

func parseEntryRow(row []string, msisdnIdx, pointsIdx int) (models.ParticipantEntry, bool) {
	if len(row) < 2 || msisdnIdx >= len(row) || pointsIdx >= len(row) {
		return models.ParticipantEntry{}, false
	}
	msisdn := strings.TrimSpace(row[msisdnIdx])
	if msisdn == "" {
		return models.ParticipantEntry{}, false
	}
	points, err := strconv.Atoi(strings.TrimSpace(row[pointsIdx]))
	if err != nil || points <= 0 {
		return models.ParticipantEntry{}, false
	}
	return models.ParticipantEntry{MSISDN: msisdn, Points: points}, true
}

func isBlankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// findColumnIndex finds the index of a column by possible names
func findColumnIndex(header []string, possibleNames []string) int {
	for i, h := range header {
		h = strings.ToLower(strings.TrimSpace(h))
		for _, name := range possibleNames {
			if strings.ToLower(name) == h {
				return i
			}
		}
	}
	return -1
}
