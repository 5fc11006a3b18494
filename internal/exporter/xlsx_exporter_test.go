package exporter

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestXLSXExporterWritesProgressSheet(t *testing.T) {
	var buf bytes.Buffer
	exp := NewXLSXExporter()

	require.NoError(t, exp.Export(&buf, sampleEntries()))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"Progresso"}, f.GetSheetList())

	rows, err := f.GetRows("Progresso")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"Objetivo", "Registrado em", "Valor", "Observação"}, rows[0])
	assert.Equal(t, "Correr 500 km", rows[1][0])
	assert.Equal(t, "42.5", rows[1][2])
	assert.Equal(t, "janeiro", rows[1][3])
	assert.Equal(t, "Ler, estudar e \"praticar\"", rows[2][0])
}

func TestXLSXExporterEmptyWorkbookHasHeader(t *testing.T) {
	var buf bytes.Buffer

	require.NoError(t, NewXLSXExporter().Export(&buf, nil))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Progresso")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", NewXLSXExporter().ContentType())
}
