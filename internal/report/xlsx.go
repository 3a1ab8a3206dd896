package report

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// maxSheetName is the sheet name limit of the xlsx format.
const maxSheetName = 31

// WriteXLSX writes each table to its own sheet, header row in bold.
func WriteXLSX(w io.Writer, tables ...Table) error {
	if len(tables) == 0 {
		return fmt.Errorf("no table to write")
	}
	f := excelize.NewFile()
	defer f.Close()

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("header style: %w", err)
	}

	for i, t := range tables {
		name := sheetName(t.Name, i)
		if i == 0 {
			if err := f.SetSheetName(f.GetSheetName(0), name); err != nil {
				return fmt.Errorf("rename sheet: %w", err)
			}
		} else if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("new sheet %s: %w", name, err)
		}

		if err := setRow(f, name, 1, t.Header); err != nil {
			return err
		}
		if len(t.Header) > 0 {
			last, _ := excelize.CoordinatesToCellName(len(t.Header), 1)
			if err := f.SetCellStyle(name, "A1", last, bold); err != nil {
				return fmt.Errorf("style header: %w", err)
			}
		}
		for r, row := range t.Rows {
			if err := setRow(f, name, r+2, row); err != nil {
				return err
			}
		}
	}
	f.SetActiveSheet(0)

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func setRow(f *excelize.File, sheet string, row int, cells []string) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	values := make([]interface{}, len(cells))
	for i, c := range cells {
		values[i] = c
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("write %s row %d: %w", sheet, row, err)
	}
	return nil
}

func sheetName(name string, i int) string {
	if name == "" {
		name = fmt.Sprintf("Sheet%d", i+1)
	}
	r := []rune(name)
	if len(r) > maxSheetName {
		r = r[:maxSheetName]
	}
	return string(r)
}
