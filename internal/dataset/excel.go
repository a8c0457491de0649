package dataset

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

// Workbook is an xlsx raw-data table loaded fully into memory: a header row
// plus data rows. Mutations happen in memory; Save rewrites the sheet.
type Workbook struct {
	path    string
	outPath string
	sheet   string
	headers []string
	rows    [][]string
}

// OpenWorkbook reads the first sheet of an xlsx file. The first row is
// treated as the header.
func OpenWorkbook(path string) (*Workbook, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook %s: %w", path, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook %s has no sheets", path)
	}
	sheet := sheets[0]

	raw, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheet, err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("workbook %s: sheet %s is empty", path, sheet)
	}

	wb := &Workbook{
		path:    path,
		outPath: path,
		sheet:   sheet,
		headers: raw[0],
		rows:    raw[1:],
	}
	wb.pad()
	return wb, nil
}

// SetOutputPath redirects Save to a separate file so inputs stay untouched.
func (w *Workbook) SetOutputPath(path string) { w.outPath = path }

func (w *Workbook) Rows() int { return len(w.rows) }

func (w *Workbook) HasColumn(name string) bool {
	return w.columnIndex(name) >= 0
}

func (w *Workbook) Column(name string) ([]string, error) {
	idx := w.columnIndex(name)
	if idx < 0 {
		return nil, fmt.Errorf("column %q not found", name)
	}
	values := make([]string, len(w.rows))
	for i, row := range w.rows {
		values[i] = row[idx]
	}
	return values, nil
}

func (w *Workbook) SetColumn(name, after string, values []string) error {
	if len(values) != len(w.rows) {
		return fmt.Errorf("column %q: %d values for %d rows", name, len(values), len(w.rows))
	}

	idx := w.columnIndex(name)
	if idx < 0 {
		at := w.columnIndex(after) + 1
		if at == 0 {
			at = len(w.headers)
		}
		w.headers = insertAt(w.headers, at, name)
		for i := range w.rows {
			w.rows[i] = insertAt(w.rows[i], at, values[i])
		}
		return nil
	}

	for i := range w.rows {
		w.rows[i][idx] = values[i]
	}
	return nil
}

// Save rewrites the table to the output path as a fresh single-sheet file.
func (w *Workbook) Save() error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	if err := setRow(f, sheet, 1, w.headers); err != nil {
		return err
	}
	for i, row := range w.rows {
		if err := setRow(f, sheet, i+2, row); err != nil {
			return err
		}
	}

	if err := f.SaveAs(w.outPath); err != nil {
		return fmt.Errorf("save workbook %s: %w", w.outPath, err)
	}
	return nil
}

func (w *Workbook) columnIndex(name string) int {
	for i, h := range w.headers {
		if h == name {
			return i
		}
	}
	return -1
}

// pad extends rows to header width; excelize drops trailing empty cells.
func (w *Workbook) pad() {
	width := len(w.headers)
	for i, row := range w.rows {
		for len(row) < width {
			row = append(row, "")
		}
		w.rows[i] = row[:width]
	}
}

func insertAt(row []string, at int, value string) []string {
	if at > len(row) {
		at = len(row)
	}
	out := make([]string, 0, len(row)+1)
	out = append(out, row[:at]...)
	out = append(out, value)
	out = append(out, row[at:]...)
	return out
}

func setRow(f *excelize.File, sheet string, rowNum int, values []string) error {
	cells := make([]any, len(values))
	for i, v := range values {
		cells[i] = v
	}
	cell, err := excelize.CoordinatesToCellName(1, rowNum)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &cells); err != nil {
		return fmt.Errorf("write row %d: %w", rowNum, err)
	}
	return nil
}
