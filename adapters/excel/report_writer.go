package excel

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"pahscreen/adapters/tabular"
	"pahscreen/internal/errors"
)

// ReportWriter exports result tables to an xlsx workbook for lab review
type ReportWriter struct {
	file *excelize.File
}

// NewReportWriter creates an empty workbook
func NewReportWriter() *ReportWriter {
	return &ReportWriter{file: excelize.NewFile()}
}

// AddSheet writes one table to a named sheet, header row first
func (w *ReportWriter) AddSheet(name string, t *tabular.Table) error {
	idx, err := w.file.NewSheet(name)
	if err != nil {
		return errors.IOError(fmt.Sprintf("failed to create sheet %s", name), err)
	}
	w.file.SetActiveSheet(idx)

	if err := w.writeRow(name, 1, t.Columns); err != nil {
		return err
	}
	for i, row := range t.Rows {
		if err := w.writeRow(name, i+2, row); err != nil {
			return err
		}
	}
	return nil
}

func (w *ReportWriter) writeRow(sheet string, rowNum int, cells []string) error {
	cell, err := excelize.CoordinatesToCellName(1, rowNum)
	if err != nil {
		return errors.IOError("failed to compute cell coordinate", err)
	}
	values := make([]interface{}, len(cells))
	for i, c := range cells {
		values[i] = c
	}
	if err := w.file.SetSheetRow(sheet, cell, &values); err != nil {
		return errors.IOError(fmt.Sprintf("failed to write row %d on sheet %s", rowNum, sheet), err)
	}
	return nil
}

// Save writes the workbook, dropping the default empty sheet first
func (w *ReportWriter) Save(path string) error {
	if idx, err := w.file.GetSheetIndex("Sheet1"); err == nil && idx >= 0 && w.file.SheetCount > 1 {
		_ = w.file.DeleteSheet("Sheet1")
	}
	if err := w.file.SaveAs(path); err != nil {
		return errors.IOError(fmt.Sprintf("failed to save workbook %s", path), err)
	}
	return w.file.Close()
}
