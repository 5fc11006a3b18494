package exporter

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"planos/internal/goals"
)

// ErrUnsupportedFormat is returned by ForFormat for unknown formats.
var ErrUnsupportedFormat = errors.New("unsupported export format")

// Base name of downloaded exports.
const fileBaseName = "progresso_planos_ano_novo"

// Column headers shared by the CSV and XLSX exports.
var columns = []string{"Objetivo", "Registrado em", "Valor", "Observação"}

// Exporter writes progress entries in one file format.
type Exporter interface {
	Export(w io.Writer, entries []goals.ProgressEntry) error
	ContentType() string
	FileName() string
}

// ForFormat returns the exporter for "xlsx" (the default when empty) or "csv".
func ForFormat(format string) (Exporter, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "xlsx":
		return NewXLSXExporter(), nil
	case "csv":
		return NewCSVExporter(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}
