package exporter

import (
	"fmt"
	"io"
	"strconv"

	"github.com/xuri/excelize/v2"
)

// DefaultSheetName is used when WorkbookOptions.SheetName is empty.
const DefaultSheetName = "Sheet1"

// WorkbookOptions configures XLSX rendering
type WorkbookOptions struct {
	SheetName string
	Headers   []string
	Records   [][]string
	// NumericCells writes cells that parse as numbers as numeric values.
	NumericCells bool
}

// WriteXLSX renders a single-sheet workbook to out
func WriteXLSX(out io.Writer, options WorkbookOptions) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := options.SheetName
	if sheet == "" {
		sheet = DefaultSheetName
	}
	if sheet != DefaultSheetName {
		if err := f.SetSheetName(DefaultSheetName, sheet); err != nil {
			return fmt.Errorf("failed to name sheet: %w", err)
		}
	}

	row := 1
	if len(options.Headers) > 0 {
		if err := writeRow(f, sheet, row, options.Headers, false); err != nil {
			return err
		}
		style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
		if err == nil {
			last, _ := excelize.CoordinatesToCellName(len(options.Headers), 1)
			_ = f.SetCellStyle(sheet, "A1", last, style)
		}
		row++
	}

	for _, record := range options.Records {
		if err := writeRow(f, sheet, row, record, options.NumericCells); err != nil {
			return err
		}
		row++
	}

	if err := f.Write(out); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func writeRow(f *excelize.File, sheet string, row int, cells []string, numeric bool) error {
	values := make([]interface{}, len(cells))
	for i, cell := range cells {
		values[i] = cell
		if numeric {
			if n, err := strconv.ParseFloat(cell, 64); err == nil {
				values[i] = n
			}
		}
	}
	start, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, start, &values); err != nil {
		return fmt.Errorf("failed to write row %d: %w", row, err)
	}
	return nil
}
