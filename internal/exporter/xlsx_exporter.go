package exporter

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"planos/internal/goals"
)

const (
	sheetName      = "Progresso"
	dateTimeFormat = "dd/mm/yyyy hh:mm"
)

// XLSXExporter exports progress entries to an Excel workbook with a single
// "Progresso" sheet.
type XLSXExporter struct{}

// NewXLSXExporter creates a new Excel exporter.
func NewXLSXExporter() *XLSXExporter {
	return &XLSXExporter{}
}

func (e *XLSXExporter) ContentType() string {
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}

func (e *XLSXExporter) FileName() string {
	return fileBaseName + ".xlsx"
}

// Export writes entries to w as an xlsx workbook.
func (e *XLSXExporter) Export(w io.Writer, entries []goals.ProgressEntry) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), sheetName); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	header := make([]any, len(columns))
	for i, c := range columns {
		header[i] = c
	}
	if err := f.SetSheetRow(sheetName, "A1", &header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	format := dateTimeFormat
	dateStyle, err := f.NewStyle(&excelize.Style{CustomNumFmt: &format})
	if err != nil {
		return fmt.Errorf("failed to create date style: %w", err)
	}
	if err := f.SetColStyle(sheetName, "B", dateStyle); err != nil {
		return fmt.Errorf("failed to style date column: %w", err)
	}

	for i, entry := range entries {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []any{entry.GoalTitle, entry.LoggedAt.UTC(), entry.Value, entry.Note}
		if err := f.SetSheetRow(sheetName, cell, &row); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	if err := f.SetColWidth(sheetName, "A", "A", 40); err != nil {
		return err
	}
	if err := f.SetColWidth(sheetName, "B", "B", 18); err != nil {
		return err
	}
	if err := f.SetColWidth(sheetName, "D", "D", 50); err != nil {
		return err
	}

	return f.Write(w)
}
