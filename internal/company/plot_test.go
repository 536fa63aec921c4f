package company

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bsanalyzer/internal/extraction"
	"bsanalyzer/pkg/contracts/domain"
)

func TestConvertValue(t *testing.T) {
	tests := []struct {
		in   string
		want interface{}
	}{
		{"--", nil},
		{" NA ", nil},
		{"", nil},
		{"1,234", json.Number("1234")},
		{"1,200.50", json.Number("1200.5")},
		{"-5.5", json.Number("-5.5")},
		{"0.80", json.Number("0.8")},
		{"abc", "abc"},
		{"12%", "12%"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ConvertValue(tt.in))
		})
	}
}

func TestTransformPlot(t *testing.T) {
	table := &extraction.Table{
		Header: []string{"", "2021", "2022", "--", "2023"},
		Rows: [][]string{
			{"Total Current Assets", "NA", "1,000", "5", "1,200.50"},
			{"Quick Ratio (X)", "--", "0.8", "", "NA"},
			{"Total Current Assets", "", "9", "", "9"},
			{"", "", "2", "", "1"},
			{"Short Row", "", "3"},
		},
	}

	records := TransformPlot(table)
	assert.Equal(t, []domain.PlotRecord{
		{
			"period":               "2022",
			"Total Current Assets": json.Number("1000"),
			"Quick Ratio (X)":      json.Number("0.8"),
			"Short Row":            json.Number("3"),
		},
		{
			"period":               "2023",
			"Total Current Assets": json.Number("1200.5"),
			"Quick Ratio (X)":      nil,
			"Short Row":            nil,
		},
	}, records)

	body, err := json.Marshal(records[1])
	require.NoError(t, err)
	assert.JSONEq(t, `{"period":"2023","Total Current Assets":1200.5,"Quick Ratio (X)":null,"Short Row":null}`, string(body))
}

func TestTransformPlotWithoutPeriods(t *testing.T) {
	table := &extraction.Table{
		Header: []string{"", "2023"},
		Rows:   [][]string{{"Total Current Assets", "--"}},
	}
	records := TransformPlot(table)
	assert.NotNil(t, records)
	assert.Empty(t, records)
}

func TestLoadPlot(t *testing.T) {
	w := newTestWorkspace(t, "", 0)
	plots := filepath.Join(w.Dir("acme"), "plots")
	writeFile(t, filepath.Join(plots, "06_plot_leverage.csv"),
		",2022,2023\nCurrent Ratio (X),1.2,1.5\nQuick Ratio (X),0.9,NA\n")
	writeFile(t, filepath.Join(plots, "empty.csv"), "")

	records, err := w.LoadPlot("acme", "06_plot_leverage")
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "2022", records[0]["period"])
	assert.Equal(t, json.Number("1.2"), records[0]["Current Ratio (X)"])
	assert.Equal(t, "2023", records[1]["period"])
	assert.Nil(t, records[1]["Quick Ratio (X)"])

	records, err = w.LoadPlot("acme", "empty")
	require.NoError(t, err)
	assert.Empty(t, records)

	_, err = w.LoadPlot("acme", "01_plot_AandL")
	assert.ErrorIs(t, err, ErrPlotNotFound)

	_, err = w.LoadPlot("acme", "../secrets")
	assert.ErrorIs(t, err, ErrInvalidName)
}
