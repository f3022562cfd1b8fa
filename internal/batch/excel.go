package batch

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/roach88/graphload/internal/record"
)

// Sheet names and headers of an Excel batch.
const (
	SheetRecords = "records"
	SheetValues  = "values"
)

var (
	recordsHeader = []string{"id", "type", "label", "asset"}
	valuesHeader  = []string{"record", "property", "kind", "value"}
)

// loadExcel reads a workbook with a "records" sheet and an optional
// "values" sheet. A value row's "value" column is the target of a link and
// the text otherwise.
func loadExcel(path string) ([]record.Record, []location, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, nil, &LoadError{Code: ErrCodeParse, Message: fmt.Sprintf("failed to open workbook: %v", err), Where: path}
	}
	defer f.Close()

	rows, err := sheetRows(f, SheetRecords, recordsHeader, true)
	if err != nil {
		return nil, nil, err
	}

	var (
		records []record.Record
		pos     []location
	)
	byID := make(map[string]int)
	for i, row := range rows {
		if isBlank(row) {
			continue
		}
		r := record.Record{
			ID:    cell(row, 0),
			Type:  cell(row, 1),
			Label: cell(row, 2),
			Asset: cell(row, 3),
		}
		if _, dup := byID[r.ID]; !dup {
			byID[r.ID] = len(records)
		}
		records = append(records, r)
		pos = append(pos, location{where: cellName(SheetRecords, 1, i+2)})
	}

	rows, err = sheetRows(f, SheetValues, valuesHeader, false)
	if err != nil {
		return nil, nil, err
	}
	var errs []error
	for i, row := range rows {
		if isBlank(row) {
			continue
		}
		id := cell(row, 0)
		idx, ok := byID[id]
		if !ok {
			errs = append(errs, &LoadError{
				Code:    ErrCodeUnknownRecord,
				Message: fmt.Sprintf("value for unknown record %q", id),
				Where:   cellName(SheetValues, 1, i+2),
			})
			continue
		}
		v := record.Value{Property: cell(row, 1), Kind: record.Kind(cell(row, 2))}
		if v.Kind == record.KindLink {
			v.Target = cell(row, 3)
		} else {
			v.Text = cell(row, 3)
		}
		records[idx].Values = append(records[idx].Values, v)
	}
	if len(errs) > 0 {
		return nil, nil, errors.Join(errs...)
	}
	return records, pos, nil
}

// sheetRows returns the data rows of a sheet after checking its header.
// A missing optional sheet has no rows.
func sheetRows(f *excelize.File, sheet string, header []string, required bool) ([][]string, error) {
	idx, err := f.GetSheetIndex(sheet)
	if err != nil || idx < 0 {
		if required {
			return nil, &LoadError{Code: ErrCodeBadSheet, Message: fmt.Sprintf("workbook has no %q sheet", sheet)}
		}
		return nil, nil
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeParse, Message: fmt.Sprintf("read sheet %q: %v", sheet, err)}
	}
	if len(rows) == 0 {
		return nil, nil
	}

	got := make([]string, len(header))
	for i := range header {
		got[i] = strings.ToLower(cell(rows[0], i))
	}
	if !slices.Equal(got, header) {
		return nil, &LoadError{
			Code:    ErrCodeBadSheet,
			Message: fmt.Sprintf("sheet %q: expected header %s, got %s", sheet, strings.Join(header, ","), strings.Join(got, ",")),
			Where:   cellName(sheet, 1, 1),
		}
	}
	return rows[1:], nil
}

// cell returns the trimmed cell i of row. Rows returned by GetRows omit
// trailing empty cells.
func cell(row []string, i int) string {
	if i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func isBlank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func cellName(sheet string, col, row int) string {
	name, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return sheet
	}
	return sheet + "!" + name
}
