package exporter

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"planos/internal/goals"
)

// CSVExporter exports progress entries to CSV. The output is accepted by the
// progress CSV importer.
type CSVExporter struct{}

// NewCSVExporter creates a new CSV exporter.
func NewCSVExporter() *CSVExporter {
	return &CSVExporter{}
}

func (e *CSVExporter) ContentType() string {
	return "text/csv; charset=utf-8"
}

func (e *CSVExporter) FileName() string {
	return fileBaseName + ".csv"
}

// Export writes entries to w in CSV format.
func (e *CSVExporter) Export(w io.Writer, entries []goals.ProgressEntry) error {
	writer := csv.NewWriter(w)

	if err := writer.Write(columns); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, entry := range entries {
		if err := writer.Write(entryToRow(entry)); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	writer.Flush()
	return writer.Error()
}

func entryToRow(entry goals.ProgressEntry) []string {
	return []string{
		entry.GoalTitle,
		formatTime(entry.LoggedAt),
		strconv.FormatFloat(entry.Value, 'f', -1, 64),
		entry.Note,
	}
}

// formatTime formats a time to RFC3339 string.
func formatTime(value time.Time) string {
	if value.IsZero() {
		return ""
	}
	return value.UTC().Format(time.RFC3339)
}
