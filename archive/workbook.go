package archive

import (
	"fmt"
	"log/slog"
	"strconv"

	"github.com/xuri/excelize/v2"

	"grouping-server-go/models"
)

// Sheet names of the summary workbook.
const (
	RoundRobinSheet = "Round Robin"
	UniformSheet    = "Uniform"

	// WorkbookFileName is the suggested download name of the summary workbook.
	WorkbookFileName = "grouping_summary.xlsx"
)

// SummaryWorkbook renders both summary tables into an xlsx workbook, one
// sheet per strategy. Counts are stored as numbers.
func SummaryWorkbook(summary models.Summary) ([]byte, error) {
	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			slog.Warn("Error closing summary workbook", "error", err)
		}
	}()

	if err := f.SetSheetName(f.GetSheetName(0), RoundRobinSheet); err != nil {
		return nil, fmt.Errorf("failed to rename sheet: %w", err)
	}
	if _, err := f.NewSheet(UniformSheet); err != nil {
		return nil, fmt.Errorf("failed to create sheet %s: %w", UniformSheet, err)
	}

	if err := fillSheet(f, RoundRobinSheet, summary.RoundRobin); err != nil {
		return nil, err
	}
	if err := fillSheet(f, UniformSheet, summary.Uniform); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write summary workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func fillSheet(f *excelize.File, sheet string, table models.SummaryTable) error {
	for i, record := range TableRecords(table) {
		values := make([]interface{}, len(record))
		for j, v := range record {
			values[j] = v
			if i > 0 && j > 0 {
				if n, err := strconv.Atoi(v); err == nil {
					values[j] = n
				}
			}
		}
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return fmt.Errorf("failed to write row %d of sheet %s: %w", i+1, sheet, err)
		}
	}
	return nil
}
