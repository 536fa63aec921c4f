package extraction

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// Source text encodings reported by DecodeText.
const (
	EncodingUTF8   = "utf-8"
	EncodingLatin1 = "latin-1"
)

var (
	// ErrMalformedTable is returned for sources with fewer than two records.
	ErrMalformedTable = errors.New("file appears to be empty or malformed")
	// ErrEmptyTable is returned when a source holds no records at all.
	ErrEmptyTable = errors.New("file is empty")
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Table is a parsed tabular source file. The first column holds row labels;
// the remaining columns are period values. A Table is never mutated by the
// extraction functions.
type Table struct {
	Header   []string
	Rows     [][]string
	Encoding string
}

// DecodeText returns data as a string. Bytes that are not valid UTF-8 are
// decoded once as ISO-8859-1. A leading UTF-8 byte order mark is dropped.
func DecodeText(data []byte) (string, string) {
	if utf8.Valid(data) {
		return string(bytes.TrimPrefix(data, utf8BOM)), EncodingUTF8
	}
	// ISO-8859-1 maps every byte, so decoding cannot fail.
	decoded, _ := charmap.ISO8859_1.NewDecoder().Bytes(data)
	return string(decoded), EncodingLatin1
}

// ParseTable parses CSV text into a Table. Quoted cells may contain commas,
// rows may have any number of fields and every cell is trimmed.
func ParseTable(text string) (*Table, error) {
	reader := csv.NewReader(strings.NewReader(text))
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	var records [][]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse csv: %w", err)
		}
		for i := range record {
			record[i] = strings.TrimSpace(record[i])
		}
		records = append(records, record)
	}

	if len(records) == 0 {
		return nil, ErrEmptyTable
	}
	return &Table{Header: records[0], Rows: records[1:]}, nil
}

// LoadTable reads and parses a file, accepting a header-only table.
func LoadTable(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	text, encoding := DecodeText(data)
	table, err := ParseTable(text)
	if err != nil {
		return nil, err
	}
	table.Encoding = encoding
	return table, nil
}

// ReadTable is LoadTable for extraction sources: a source needs a header and
// at least one data row, otherwise ErrMalformedTable is returned.
func ReadTable(path string) (*Table, error) {
	table, err := LoadTable(path)
	if errors.Is(err, ErrEmptyTable) {
		return nil, ErrMalformedTable
	}
	if err != nil {
		return nil, err
	}
	if len(table.Rows) == 0 {
		return nil, ErrMalformedTable
	}
	return table, nil
}

// ValueColumns is the number of period columns.
func (t *Table) ValueColumns() int {
	if len(t.Header) == 0 {
		return 0
	}
	return len(t.Header) - 1
}

// Width is the number of cells in every extracted row.
func (t *Table) Width() int {
	return t.ValueColumns() + 1
}

// OutputHeader is the source header with the label column title blanked.
func (t *Table) OutputHeader() []string {
	header := make([]string, t.Width())
	copy(header[1:], t.Header[1:])
	return header
}

// labelledRow is a data row with a non-empty label.
type labelledRow struct {
	label string
	cells []string
}

// labelled returns the rows with a non-empty first cell, in file order.
func (t *Table) labelled() []labelledRow {
	rows := make([]labelledRow, 0, len(t.Rows))
	for _, row := range t.Rows {
		if len(row) > 0 && row[0] != "" {
			rows = append(rows, labelledRow{label: row[0], cells: row})
		}
	}
	return rows
}

// Labels returns the label set: first cells of labelled rows, in file order.
func (t *Table) Labels() []string {
	rows := t.labelled()
	labels := make([]string, len(rows))
	for i, row := range rows {
		labels[i] = row.label
	}
	return labels
}

// fit pads row with empty cells or truncates it to the table width.
func (t *Table) fit(row []string) []string {
	out := make([]string, t.Width())
	copy(out, row)
	return out
}

// placeholder is a row for a target label that could not be matched.
func (t *Table) placeholder(label string) []string {
	row := make([]string, t.Width())
	row[0] = label
	for i := 1; i < len(row); i++ {
		row[i] = NotAvailable
	}
	return row
}
