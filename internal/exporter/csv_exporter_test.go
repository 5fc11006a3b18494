package exporter

import (
	"bytes"
	"encoding/csv"
	"errors"
	"testing"
	"time"

	"planos/internal/goals"
)

func sampleEntries() []goals.ProgressEntry {
	return []goals.ProgressEntry{
		{GoalID: 1, GoalTitle: "Correr 500 km", LoggedAt: time.Date(2025, 1, 31, 20, 0, 0, 0, time.UTC), Value: 42.5, Note: "janeiro"},
		{GoalID: 2, GoalTitle: "Ler, estudar e \"praticar\"", LoggedAt: time.Date(2025, 2, 28, 8, 30, 0, 0, time.UTC), Value: 3},
	}
}

func TestCSVExporter_ExportEmpty(t *testing.T) {
	var buf bytes.Buffer

	if err := NewCSVExporter().Export(&buf, nil); err != nil {
		t.Fatalf("export failed: %v", err)
	}

	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("failed to parse CSV: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 row (header), got %d", len(records))
	}
	if len(records[0]) != len(columns) || records[0][0] != "Objetivo" || records[0][3] != "Observação" {
		t.Fatalf("unexpected header %v", records[0])
	}
}

func TestCSVExporter_ExportEntries(t *testing.T) {
	var buf bytes.Buffer

	if err := NewCSVExporter().Export(&buf, sampleEntries()); err != nil {
		t.Fatalf("export failed: %v", err)
	}

	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("failed to parse CSV: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(records))
	}

	first := records[1]
	if first[0] != "Correr 500 km" || first[1] != "2025-01-31T20:00:00Z" || first[2] != "42.5" || first[3] != "janeiro" {
		t.Fatalf("unexpected first row %v", first)
	}
	if records[2][0] != "Ler, estudar e \"praticar\"" || records[2][2] != "3" {
		t.Fatalf("expected quoted title to round-trip, got %v", records[2])
	}
}

func TestForFormat(t *testing.T) {
	for format, wantName := range map[string]string{
		"":     "progresso_planos_ano_novo.xlsx",
		"XLSX": "progresso_planos_ano_novo.xlsx",
		"csv":  "progresso_planos_ano_novo.csv",
	} {
		exp, err := ForFormat(format)
		if err != nil {
			t.Fatalf("ForFormat(%q) returned error: %v", format, err)
		}
		if exp.FileName() != wantName {
			t.Errorf("ForFormat(%q).FileName() = %q, want %q", format, exp.FileName(), wantName)
		}
	}

	if _, err := ForFormat("pdf"); !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
}
