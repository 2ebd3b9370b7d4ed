package roster

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"grouping-server-go/grouping"
	"grouping-server-go/models"
)

// Required column names, matched exactly after trimming whitespace.
const (
	ColumnRoll  = "Roll"
	ColumnName  = "Name"
	ColumnEmail = "Email"
)

var requiredColumns = []string{ColumnRoll, ColumnName, ColumnEmail}

var (
	// ErrMissingColumns is the schema error: the header lacks Roll, Name or Email.
	ErrMissingColumns = errors.New("roster must contain columns: Roll, Name, Email")
	// ErrUnsupportedFormat is returned for uploads that are neither CSV nor XLSX.
	ErrUnsupportedFormat = errors.New("unsupported roster format, expected .csv or .xlsx")
	// ErrEmptyRoster is returned when the file has no header row.
	ErrEmptyRoster = errors.New("roster is empty")
)

// Format of an uploaded roster file
type Format int

const (
	FormatCSV Format = iota
	FormatXLSX
)

// DetectFormat picks the decoder from the file name's extension.
func DetectFormat(filename string) (Format, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		return FormatCSV, nil
	case ".xlsx":
		return FormatXLSX, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnsupportedFormat, filename)
	}
}

// Read decodes a roster named filename from r, choosing CSV or XLSX by extension.
func Read(r io.Reader, filename string) ([]models.Student, error) {
	format, err := DetectFormat(filename)
	if err != nil {
		return nil, err
	}
	if format == FormatXLSX {
		return ReadXLSX(r)
	}
	return ReadCSV(r)
}

// ReadCSV decodes a comma-separated roster with a header row. A leading
// UTF-8 byte order mark is skipped.
func ReadCSV(r io.Reader) ([]models.Student, error) {
	br := bufio.NewReader(r)
	if bom, err := br.Peek(3); err == nil && string(bom) == "\xef\xbb\xbf" {
		_, _ = br.Discard(3)
	}

	cr := csv.NewReader(br)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.LazyQuotes = true

	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse csv roster: %w", err)
	}
	return fromRows(rows)
}

// ReadXLSX decodes the first sheet of an Excel workbook. Row 1 is the header.
func ReadXLSX(r io.Reader) ([]models.Student, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open excel file: %w", err)
	}
	defer func() {
		if err := f.Close(); err != nil {
			slog.Warn("Error closing excel file", "error", err)
		}
	}()

	sheetName := f.GetSheetName(0)
	if sheetName == "" {
		return nil, errors.New("excel file does not contain any sheets")
	}

	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to get rows from sheet %s: %w", sheetName, err)
	}
	return fromRows(rows)
}

// fromRows maps raw rows onto students. The first row is the header; extra
// columns are ignored and fully blank rows are skipped.
func fromRows(rows [][]string) ([]models.Student, error) {
	if len(rows) == 0 {
		return nil, ErrEmptyRoster
	}

	index, err := columnIndex(rows[0])
	if err != nil {
		return nil, err
	}

	students := make([]models.Student, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if blank(row) {
			continue
		}
		students = append(students, grouping.NewStudent(
			cell(row, index[ColumnRoll]),
			cell(row, index[ColumnName]),
			cell(row, index[ColumnEmail]),
		))
	}
	return students, nil
}

func columnIndex(header []string) (map[string]int, error) {
	index := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.TrimSpace(h)
		if _, dup := index[h]; !dup {
			index[h] = i
		}
	}

	var missing []string
	for _, col := range requiredColumns {
		if _, ok := index[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w (missing %s)", ErrMissingColumns, strings.Join(missing, ", "))
	}
	return index, nil
}

func cell(row []string, i int) string {
	if i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func blank(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
