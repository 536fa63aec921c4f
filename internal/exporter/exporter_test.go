package exporter

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return records
}

func TestCSVWriter_WriteCSV(t *testing.T) {
	tempDir := t.TempDir()
	writer := NewCSVWriter(tempDir, nil)

	tests := []struct {
		name     string
		path     string
		options  WriteOptions
		expected [][]string
	}{
		{
			name: "relative path creates parent directories",
			path: filepath.Join("acme", "plots", "01_plot_AandL.csv"),
			options: WriteOptions{
				Headers: []string{"", "FY23", "FY24"},
				Records: [][]string{{"Total Current Assets", "10", "12"}},
			},
			expected: [][]string{{"", "FY23", "FY24"}, {"Total Current Assets", "10", "12"}},
		},
		{
			name: "quoted cells survive",
			path: filepath.Join(tempDir, "abs.csv"),
			options: WriteOptions{
				Headers: []string{"", "FY24"},
				Records: [][]string{{"Revenue, net", "1,200"}},
			},
			expected: [][]string{{"", "FY24"}, {"Revenue, net", "1,200"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, writer.WriteCSV(tt.path, tt.options))
			assert.Equal(t, tt.expected, readCSV(t, writer.resolvePath(tt.path)))
		})
	}
}

func TestCSVWriter_OverwriteAndAppend(t *testing.T) {
	writer := NewCSVWriter(t.TempDir(), nil)

	require.NoError(t, writer.WriteSimpleCSV("out.csv", []string{"a"}, [][]string{{"1"}, {"2"}}))
	require.NoError(t, writer.WriteSimpleCSV("out.csv", []string{"a"}, [][]string{{"3"}}))
	assert.Equal(t, [][]string{{"a"}, {"3"}}, readCSV(t, writer.resolvePath("out.csv")))

	require.NoError(t, writer.AppendToCSV("out.csv", [][]string{{"4"}}))
	assert.Equal(t, [][]string{{"a"}, {"3"}, {"4"}}, readCSV(t, writer.resolvePath("out.csv")))
}

func TestCSVWriter_BOM(t *testing.T) {
	writer := NewCSVWriter(t.TempDir(), nil)
	require.NoError(t, writer.WriteCSV("bom.csv", WriteOptions{Headers: []string{"x"}, BOMPrefix: true}))

	data, err := os.ReadFile(writer.resolvePath("bom.csv"))
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte{0xEF, 0xBB, 0xBF}))
}

func TestWriteXLSX(t *testing.T) {
	var buf bytes.Buffer
	err := WriteXLSX(&buf, WorkbookOptions{
		SheetName:    "sales_data",
		Headers:      []string{"date", "product", "revenue"},
		Records:      [][]string{{"2024-01-01", "Widget", "1500.5"}},
		NumericCells: true,
	})
	require.NoError(t, err)

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("sales_data")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"date", "product", "revenue"}, rows[0])
	assert.Equal(t, "Widget", rows[1][1])

	value, err := f.GetCellValue("sales_data", "C2")
	require.NoError(t, err)
	assert.Equal(t, "1500.5", value)
}
