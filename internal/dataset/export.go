package dataset

import (
	"bytes"
	"encoding/csv"
	"fmt"

	"github.com/xuri/excelize/v2"
)

// Export formats.
const (
	ExportCSV   = "csv"
	ExportExcel = "excel"
)

// ExcelSheet is the sheet name used for Excel exports.
const ExcelSheet = "Data"

// Export serialises the dataset with a header row.
func Export(d *Dataset, format string) ([]byte, error) {
	switch format {
	case ExportCSV:
		return exportCSV(d)
	case ExportExcel:
		return exportExcel(d)
	default:
		return nil, fmt.Errorf("%w: export format %q (expected csv or excel)", ErrUnsupportedFormat, format)
	}
}

// ExportFilename returns the download name for an export format.
func ExportFilename(base, format string) string {
	if format == ExportExcel {
		return base + ".xlsx"
	}
	return base + ".csv"
}

func exportCSV(d *Dataset) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(d.Names()); err != nil {
		return nil, err
	}
	record := make([]string, d.Cols())
	for i := 0; i < d.Rows(); i++ {
		for j, c := range d.Columns() {
			record[j] = c.Label(i)
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func exportExcel(d *Dataset) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", ExcelSheet); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}

	header := make([]interface{}, d.Cols())
	for j, name := range d.Names() {
		header[j] = name
	}
	if err := f.SetSheetRow(ExcelSheet, "A1", &header); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}

	row := make([]interface{}, d.Cols())
	for i := 0; i < d.Rows(); i++ {
		for j, c := range d.Columns() {
			row[j] = c.Values[i]
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(ExcelSheet, cell, &row); err != nil {
			return nil, fmt.Errorf("write row %d: %w", i+1, err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("encode workbook: %w", err)
	}
	return buf.Bytes(), nil
}
