package export

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

const (
	headerSheet = "Invoice Headers"
	lineSheet   = "Invoice Lines"
)

// BuildWorkbook renders bulk-interface data as an XLSX workbook with one
// sheet per section. Same column contract as the CSV; the workbook variant
// exists for reviewers who check a claim before it is loaded.
func BuildWorkbook(data *BulkData) (*excelize.File, error) {
	f := excelize.NewFile()

	if err := f.SetSheetName("Sheet1", headerSheet); err != nil {
		return nil, fmt.Errorf("rename header sheet: %w", err)
	}
	if _, err := f.NewSheet(lineSheet); err != nil {
		return nil, fmt.Errorf("create line sheet: %w", err)
	}

	if err := fillSheet(f, headerSheet, data.HeaderColumns, data.HeaderRows); err != nil {
		return nil, err
	}
	if err := fillSheet(f, lineSheet, data.LineColumns, data.LineRows); err != nil {
		return nil, err
	}

	return f, nil
}

func fillSheet(f *excelize.File, sheet string, columns []string, rows [][]string) error {
	for col, name := range columns {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, name); err != nil {
			return fmt.Errorf("set %s!%s: %w", sheet, cell, err)
		}
	}

	for rowIdx, row := range rows {
		for col, value := range row {
			cell, err := excelize.CoordinatesToCellName(col+1, rowIdx+2)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(sheet, cell, value); err != nil {
				return fmt.Errorf("set %s!%s: %w", sheet, cell, err)
			}
		}
	}

	return nil
}
