package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// EncodeXLSX writes the bundle as a workbook with one sheet per category.
// The first row of each sheet holds the union of field names seen across that
// category's records, in first-appearance order.
func EncodeXLSX(w io.Writer, bundle *Bundle) error {
	f := excelize.NewFile()
	defer f.Close()

	headerStyle, err := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
		Font: &excelize.Font{Bold: true},
	})
	if err != nil {
		return fmt.Errorf("error creating header style: %w", err)
	}

	for i, cat := range bundle.Categories {
		index, err := f.NewSheet(cat.Name)
		if err != nil {
			return fmt.Errorf("error creating sheet %q: %w", cat.Name, err)
		}
		if i == 0 {
			f.SetActiveSheet(index)
		}

		headers, headerCol := categoryHeaders(cat)
		for name, col := range headerCol {
			cell, _ := excelize.CoordinatesToCellName(col, 1)
			_ = f.SetCellValue(cat.Name, cell, name)
			_ = f.SetCellStyle(cat.Name, cell, cell, headerStyle)
		}

		for r, rec := range cat.Records {
			for _, field := range rec.Fields {
				cell, _ := excelize.CoordinatesToCellName(headerCol[field.Key], r+2)
				_ = f.SetCellValue(cat.Name, cell, stringify(field.Value))
			}
		}

		if len(headers) > 0 {
			last, _ := excelize.ColumnNumberToName(len(headers))
			_ = f.SetColWidth(cat.Name, "A", last, 22)
		}
	}

	_ = f.DeleteSheet("Sheet1")

	return f.Write(w)
}

// categoryHeaders collects field names across all records in first-appearance
// order and maps each to its 1-based column.
func categoryHeaders(cat Category) ([]string, map[string]int) {
	var headers []string
	headerCol := make(map[string]int)
	for _, rec := range cat.Records {
		for _, f := range rec.Fields {
			if _, ok := headerCol[f.Key]; !ok {
				headers = append(headers, f.Key)
				headerCol[f.Key] = len(headers)
			}
		}
	}
	return headers, headerCol
}
