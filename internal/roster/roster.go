// Package roster reads the tabular school roster and writes the
// enriched result table.
package roster

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/rosterfill/rosterfill/internal/model"
)

// Load reads the first sheet of an xlsx roster. The first row is the
// header and must contain the School and State/UT columns; every other
// column passes through untouched. Returns the records and the header
// in file order.
func Load(path string) ([]model.Record, []string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open roster: %w", err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, nil, fmt.Errorf("read sheet %s: %w", sheet, err)
	}
	if len(rows) == 0 {
		return nil, nil, fmt.Errorf("roster %s is empty", path)
	}

	header := rows[0]
	hasSchool, hasState := false, false
	for _, col := range header {
		switch col {
		case model.ColSchool:
			hasSchool = true
		case model.ColState:
			hasState = true
		}
	}
	if !hasSchool || !hasState {
		return nil, nil, fmt.Errorf("roster %s must have %q and %q columns", path, model.ColSchool, model.ColState)
	}

	var records []model.Record
	for _, row := range rows[1:] {
		rec := make(model.Record, len(header))
		empty := true
		for j, col := range header {
			val := ""
			if j < len(row) {
				val = row[j]
			}
			if val != "" {
				empty = false
			}
			rec[col] = val
		}
		if !empty {
			records = append(records, rec)
		}
	}

	return records, header, nil
}

// Export writes the records to an xlsx file: the original columns in
// header order followed by the enrichment columns, one row per record.
func Export(path string, header []string, records []model.Record) error {
	cols := outputColumns(header)

	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)

	if err := writeRow(f, sheet, 1, cols); err != nil {
		return err
	}

	for i, rec := range records {
		row := make([]string, len(cols))
		for j, col := range cols {
			row[j] = rec[col]
		}
		if err := writeRow(f, sheet, i+2, row); err != nil {
			return err
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save table: %w", err)
	}
	return nil
}

// outputColumns appends the enrichment columns missing from the input
// header.
func outputColumns(header []string) []string {
	cols := make([]string, len(header))
	copy(cols, header)

	present := make(map[string]bool, len(header))
	for _, col := range header {
		present[col] = true
	}
	for _, col := range model.EnrichmentColumns {
		if !present[col] {
			cols = append(cols, col)
		}
	}
	return cols
}

func writeRow(f *excelize.File, sheet string, row int, values []string) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return fmt.Errorf("row %d: %w", row, err)
	}

	cells := make([]interface{}, len(values))
	for i, v := range values {
		cells[i] = v
	}
	if err := f.SetSheetRow(sheet, cell, &cells); err != nil {
		return fmt.Errorf("write row %d: %w", row, err)
	}
	return nil
}
