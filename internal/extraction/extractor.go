package extraction

import (
	"fmt"
	"strings"

	"bsanalyzer/internal/textmatch"
)

// NotAvailable fills the value cells of placeholder rows.
const NotAvailable = "NA"

// Labels with special handling.
const (
	ExceptionalItems   = "Exceptional Items"
	ExtraordinaryItems = "Extraordinary Items"
)

// Diagnostic levels.
const (
	LevelWarning = "warning"
	LevelError   = "error"
)

// Diagnostic is a non-fatal finding recorded while processing one file.
type Diagnostic struct {
	Level   string `json:"level"`
	Message string `json:"message"`
}

func warnf(format string, args ...any) Diagnostic {
	return Diagnostic{Level: LevelWarning, Message: fmt.Sprintf(format, args...)}
}

// Result is the output of one recipe applied to one table.
type Result struct {
	Rows        [][]string
	Diagnostics []Diagnostic
	// Excluded counts source rows dropped by Exclude.
	Excluded int
}

func (r *Result) add(rows [][]string, diags []Diagnostic) {
	r.Rows = append(r.Rows, rows...)
	r.Diagnostics = append(r.Diagnostics, diags...)
}

// findRow returns the first labelled row whose label is exactly label.
func findRow(rows []labelledRow, label string) ([]string, bool) {
	for _, row := range rows {
		if row.label == label {
			return row.cells, true
		}
	}
	return nil, false
}

// relabel returns row fitted to the table width with its label replaced.
func (t *Table) relabel(row []string, label string) []string {
	out := t.fit(row)
	out[0] = label
	return out
}

// ExtractRows emits one row per target, in target order. A matched source
// row is copied under the target label; an unmatched target becomes a
// placeholder row.
func ExtractRows(t *Table, targets []string, m textmatch.Matcher) ([][]string, []Diagnostic) {
	rows := t.labelled()
	labels := t.Labels()

	out := make([][]string, 0, len(targets))
	var diags []Diagnostic
	for _, target := range targets {
		if matched, ok := m.Match(target, labels); ok {
			if row, found := findRow(rows, matched); found {
				out = append(out, t.relabel(row, target))
				continue
			}
		}
		out = append(out, t.placeholder(target))
		diags = append(diags, warnf("could not find match for %q", target))
	}
	return out, diags
}

// ExtractExceptional emits the "Exceptional Items" row, falling back to an
// "Extraordinary Items" row relabelled as exceptional, then to a placeholder.
func ExtractExceptional(t *Table, m textmatch.Matcher) ([]string, *Diagnostic) {
	rows := t.labelled()
	labels := t.Labels()

	for _, target := range []string{ExceptionalItems, ExtraordinaryItems} {
		if matched, ok := m.Match(target, labels); ok {
			if row, found := findRow(rows, matched); found {
				return t.relabel(row, ExceptionalItems), nil
			}
		}
	}

	diag := warnf("could not find match for %q or %q", ExceptionalItems, ExtraordinaryItems)
	return t.placeholder(ExceptionalItems), &diag
}

// ExtractBlock emits the rows strictly between the rows labelled start and
// end, keeping their source labels. Positions count labelled rows only; a
// label occurring more than once resolves to its last occurrence. Missing
// anchors, or a start that does not precede the end, yield no rows and a
// warning.
func ExtractBlock(t *Table, start, end string, m textmatch.Matcher) ([][]string, []Diagnostic) {
	rows := t.labelled()
	labels := t.Labels()

	startLabel, startOK := m.Match(start, labels)
	endLabel, endOK := m.Match(end, labels)

	var diags []Diagnostic
	if !startOK {
		diags = append(diags, warnf("could not find %q label", start))
	}
	if !endOK {
		diags = append(diags, warnf("could not find %q label", end))
	}
	if !startOK || !endOK {
		return nil, diags
	}

	startIndex, endIndex := -1, -1
	for i, row := range rows {
		if row.label == startLabel {
			startIndex = i
		}
		if row.label == endLabel {
			endIndex = i
		}
	}

	if startIndex < 0 || endIndex < 0 || startIndex >= endIndex {
		return nil, append(diags, warnf("could not extract %q block: %q at %d does not precede %q at %d",
			start, startLabel, startIndex, endLabel, endIndex))
	}

	out := make([][]string, 0, endIndex-startIndex-1)
	for _, row := range rows[startIndex+1 : endIndex] {
		out = append(out, t.fit(row.cells))
	}
	return out, diags
}

// mthsRemnant marks a malformed header fragment repeated inside some
// cash-flow exports.
const mthsRemnant = "12 mths"

// Excluded reports whether row should be dropped: a blank or "--" label, a
// label matching any of labels, or any cell containing "12 mths" in any case.
func Excluded(row []string, labels []string, m textmatch.Matcher) bool {
	if len(row) == 0 {
		return true
	}
	label := strings.TrimSpace(row[0])
	if label == "" || label == "--" {
		return true
	}
	if m.MatchAny(labels, label) {
		return true
	}
	for _, cell := range row {
		if strings.Contains(strings.ToLower(cell), mthsRemnant) {
			return true
		}
	}
	return false
}

// Exclude returns the rows of t that are not Excluded, in source order,
// together with the number of rows dropped.
func Exclude(t *Table, labels []string, m textmatch.Matcher) ([][]string, int) {
	kept := make([][]string, 0, len(t.Rows))
	excluded := 0
	for _, row := range t.Rows {
		if Excluded(row, labels, m) {
			excluded++
			continue
		}
		kept = append(kept, t.fit(row))
	}
	return kept, excluded
}
