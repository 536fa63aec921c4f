package company

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"bsanalyzer/internal/extraction"
	"bsanalyzer/pkg/contracts/domain"
)

// ErrPlotNotFound is returned when a company has no generated plot file of
// the requested name.
var ErrPlotNotFound = errors.New("plot data file not found")

// LoadPlot reads plots/<plotName>.csv of a company and pivots it with
// TransformPlot. An empty file yields no records.
func (w *Workspace) LoadPlot(companyID, plotName string) ([]domain.PlotRecord, error) {
	if err := ValidateName(companyID); err != nil {
		return nil, err
	}
	if err := ValidateName(plotName); err != nil {
		return nil, err
	}

	path := w.paths.PlotFile(companyID, plotName)
	if !w.files.FileExists(path) {
		return nil, ErrPlotNotFound
	}

	table, err := extraction.LoadTable(path)
	if errors.Is(err, extraction.ErrEmptyTable) {
		return []domain.PlotRecord{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read plot %s: %w", plotName, err)
	}
	return TransformPlot(table), nil
}

// TransformPlot turns a row-per-label table into one record per period.
//
// Columns titled "--" and columns without a single meaningful value are
// dropped first. The first remaining column holds the labels; the others are
// periods with the most recent rightmost, and records keep that column order
// so they run chronologically. Rows without a label are ignored and the first
// row wins when a label repeats.
func TransformPlot(t *extraction.Table) []domain.PlotRecord {
	var columns []int
	for i, title := range t.Header {
		if title != "--" && columnHasValue(t, i) {
			columns = append(columns, i)
		}
	}
	if len(columns) < 2 {
		return []domain.PlotRecord{}
	}

	labelColumn, periods := columns[0], columns[1:]
	records := make([]domain.PlotRecord, 0, len(periods))
	for _, col := range periods {
		record := domain.PlotRecord{domain.PeriodKey: t.Header[col]}
		for _, row := range t.Rows {
			label := cell(row, labelColumn)
			if label == "" {
				continue
			}
			if _, seen := record[label]; seen {
				continue
			}
			record[label] = ConvertValue(cell(row, col))
		}
		records = append(records, record)
	}
	return records
}

// ConvertValue maps a plot cell to its JSON value: nil for "--", "NA" and
// blanks, a number when the cell parses as a decimal once thousands
// separators are removed, and the cell text otherwise.
func ConvertValue(value string) interface{} {
	if isMissing(value) {
		return nil
	}
	d, err := decimal.NewFromString(strings.ReplaceAll(strings.TrimSpace(value), ",", ""))
	if err != nil {
		return value
	}
	return json.Number(d.String())
}

func isMissing(value string) bool {
	switch strings.TrimSpace(value) {
	case "", "--", "NA":
		return true
	}
	return false
}

func columnHasValue(t *extraction.Table, col int) bool {
	for _, row := range t.Rows {
		if !isMissing(cell(row, col)) {
			return true
		}
	}
	return false
}

func cell(row []string, i int) string {
	if i < len(row) {
		return row[i]
	}
	return ""
}
