package importer

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/iliyamo/phdplan/internal/model"
)

// ErrSheetNotFound is returned when a workbook lacks a requested sheet.
var ErrSheetNotFound = errors.New("sheet not found")

// Workbook is an opened spreadsheet file.
type Workbook struct {
	file *excelize.File
}

// OpenWorkbook parses an .xlsx stream.
func OpenWorkbook(r io.Reader) (*Workbook, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	return &Workbook{file: f}, nil
}

func (w *Workbook) Close() error { return w.file.Close() }

// HasSheet reports whether the workbook contains the named sheet.
func (w *Workbook) HasSheet(name string) bool {
	idx, err := w.file.GetSheetIndex(name)
	return err == nil && idx >= 0
}

// Rows reads a sheet as header-keyed rows. The first row is the header.
// Cells are read raw, so date cells arrive as Excel serial numbers.
// Rows stay positional: element i is sheet row i+2, and an entirely
// blank line is kept as an empty Row.
func (w *Workbook) Rows(name string) ([]Row, error) {
	if !w.HasSheet(name) {
		return nil, fmt.Errorf("%w: %q", ErrSheetNotFound, name)
	}
	grid, err := w.file.GetRows(name, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", name, err)
	}
	if len(grid) == 0 {
		return nil, nil
	}
	header := make([]string, len(grid[0]))
	for i, h := range grid[0] {
		header[i] = strings.TrimSpace(h)
	}
	rows := make([]Row, 0, len(grid)-1)
	for _, cells := range grid[1:] {
		row := make(Row, len(header))
		for i, h := range header {
			if h == "" {
				continue
			}
			var v string
			if i < len(cells) {
				v = cells[i]
			}
			row[h] = v
		}
		if row.blank() {
			row = Row{}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// ReadSheet opens r and returns the rows of one sheet.
func ReadSheet(r io.Reader, name string) ([]Row, error) {
	wb, err := OpenWorkbook(r)
	if err != nil {
		return nil, err
	}
	defer wb.Close()
	return wb.Rows(name)
}

// ExportRow is one line of the task snapshot.
type ExportRow struct {
	ID          uint64
	Description string
	Date        model.Date
	Status      model.Status
	Priority    model.Priority
	Category    string
}

// ExportHeaders are the column titles written by WriteTasks. The
// description column uses a header the importer reads back as "what".
var ExportHeaders = []string{"ID", "O que", "Data", "Status", "Prioridade", "Categoria"}

// WriteTasks renders rows into a single-sheet workbook named sheet.
func WriteTasks(sheet string, rows []ExportRow) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, fmt.Errorf("failed to name sheet: %w", err)
	}
	header := make([]any, len(ExportHeaders))
	for i, h := range ExportHeaders {
		header[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return nil, err
	}

	dateFmt := "dd/mm/yyyy"
	dateStyle, err := f.NewStyle(&excelize.Style{CustomNumFmt: &dateFmt})
	if err != nil {
		return nil, fmt.Errorf("failed to create date style: %w", err)
	}

	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		var date any
		if !r.Date.IsZero() {
			date = r.Date.Time
		}
		values := []any{r.ID, r.Description, date, r.Status.String(), r.Priority.String(), r.Category}
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return nil, fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}
	if len(rows) > 0 {
		last, _ := excelize.CoordinatesToCellName(3, len(rows)+1)
		if err := f.SetCellStyle(sheet, "C2", last, dateStyle); err != nil {
			return nil, err
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to render workbook: %w", err)
	}
	return buf.Bytes(), nil
}
