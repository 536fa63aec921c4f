package extraction

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bsanalyzer/internal/textmatch"
)

func mustTable(t *testing.T, lines ...string) *Table {
	t.Helper()
	table, err := ParseTable(strings.Join(lines, "\n") + "\n")
	require.NoError(t, err)
	return table
}

var matcher = textmatch.NewMatcher(textmatch.DefaultThreshold)

func TestDecodeText(t *testing.T) {
	tests := []struct {
		name     string
		input    []byte
		text     string
		encoding string
	}{
		{"utf-8", []byte("Año,1"), "Año,1", EncodingUTF8},
		{"bom stripped", append([]byte{0xEF, 0xBB, 0xBF}, []byte("a,b")...), "a,b", EncodingUTF8},
		{"latin-1 fallback", []byte("A\xf1o,1"), "Año,1", EncodingLatin1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text, encoding := DecodeText(tt.input)
			assert.Equal(t, tt.text, text)
			assert.Equal(t, tt.encoding, encoding)
		})
	}
}

func TestParseTable(t *testing.T) {
	table := mustTable(t,
		"Particulars,FY23,FY24",
		`"Revenue, net", 1200 ,1300`,
		"Short,1",
		`Broken "quote,2,3`,
	)

	assert.Equal(t, []string{"Particulars", "FY23", "FY24"}, table.Header)
	assert.Equal(t, 2, table.ValueColumns())
	assert.Equal(t, []string{"Revenue, net", "1200", "1300"}, table.Rows[0])
	assert.Equal(t, []string{"Short", "1"}, table.Rows[1])
	assert.Equal(t, `Broken "quote`, table.Rows[2][0])
	assert.Equal(t, []string{"", "FY23", "FY24"}, table.OutputHeader())

	_, err := ParseTable("")
	assert.ErrorIs(t, err, ErrEmptyTable)
}

func TestReadTable(t *testing.T) {
	dir := t.TempDir()
	write := func(name, content string) string {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
		return path
	}

	_, err := ReadTable(write("empty.csv", ""))
	assert.ErrorIs(t, err, ErrMalformedTable)

	_, err = ReadTable(write("header.csv", "Particulars,FY24\n"))
	assert.ErrorIs(t, err, ErrMalformedTable)

	_, err = ReadTable(filepath.Join(dir, "missing.csv"))
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrMalformedTable)

	table, err := ReadTable(write("ok.csv", "Particulars,FY24\nRevenue,1\n"))
	require.NoError(t, err)
	assert.Equal(t, EncodingUTF8, table.Encoding)

	headerOnly, err := LoadTable(filepath.Join(dir, "header.csv"))
	require.NoError(t, err)
	assert.Empty(t, headerOnly.Rows)
}

func TestLabels(t *testing.T) {
	table := mustTable(t,
		"Particulars,FY24",
		"Revenue,1",
		",2",
		"Costs,3",
	)
	assert.Equal(t, []string{"Revenue", "Costs"}, table.Labels())
}

func TestExtractRows(t *testing.T) {
	table := mustTable(t,
		"Particulars,Mar 22,Mar 23,Mar 24",
		"Total Current Assets,100,110,120",
		"Total Non-Current Assets,200,210",
		"Share Capital,10,10,10,99",
	)

	rows, diags := ExtractRows(table, AssetsAndLiabilitiesLabels, matcher)

	assert.Equal(t, [][]string{
		{"Total Current Liabilities", "NA", "NA", "NA"},
		{"Total Non-Current Liabilities", "NA", "NA", "NA"},
		{"Total Current Assets", "100", "110", "120"},
		{"Total Non-Current Assets", "200", "210", ""},
	}, rows)
	assert.Len(t, diags, 2)
	for _, row := range rows {
		assert.Len(t, row, table.Width())
	}
}

func TestExtractRowsRelabels(t *testing.T) {
	table := mustTable(t,
		"Particulars,FY23,FY24",
		"Total current liabilities.,50,55",
		"Total Current Liabilities,1,1",
		"Quick ratio (x),0.8,0.9,0.7",
	)

	rows, diags := ExtractRows(table, []string{"Total Current Liabilities", "Quick Ratio (X)"}, matcher)

	assert.Empty(t, diags)
	assert.Equal(t, [][]string{
		{"Total Current Liabilities", "50", "55"},
		{"Quick Ratio (X)", "0.8", "0.9"},
	}, rows)
}

func TestExtractExceptional(t *testing.T) {
	tests := []struct {
		name     string
		lines    []string
		expected []string
		warned   bool
	}{
		{
			name:     "exceptional present",
			lines:    []string{"Particulars,FY24", "Exceptional items,5", "Extraordinary Items,9"},
			expected: []string{"Exceptional Items", "5"},
		},
		{
			name:     "extraordinary fallback relabelled",
			lines:    []string{"Particulars,FY24", "Extraordinary Items,9"},
			expected: []string{"Exceptional Items", "9"},
		},
		{
			name:     "neither present",
			lines:    []string{"Particulars,FY24", "Revenue,1"},
			expected: []string{"Exceptional Items", "NA"},
			warned:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			row, diag := ExtractExceptional(mustTable(t, tt.lines...), matcher)
			assert.Equal(t, tt.expected, row)
			assert.Equal(t, tt.warned, diag != nil)
		})
	}
}

func plTable(t *testing.T) *Table {
	return mustTable(t,
		"Particulars,FY23,FY24",
		"Revenue,100,120",
		"EXPENSES,,",
		"Cost of Materials,30,35",
		",x,y",
		"Employee Cost,20,22",
		"Total Expenses,50,57",
		"Profit Before Tax,50,63",
		"Total Tax Expenses,10,12",
		"Exceptional Items,1,2",
	)
}

func TestExtractBlock(t *testing.T) {
	t.Run("rows strictly between anchors", func(t *testing.T) {
		rows, diags := ExtractBlock(plTable(t), ExpensesStart, ExpensesEnd, matcher)
		assert.Empty(t, diags)
		assert.Equal(t, [][]string{
			{"Cost of Materials", "30", "35"},
			{"Employee Cost", "20", "22"},
		}, rows)
	})

	t.Run("anchors out of order", func(t *testing.T) {
		table := mustTable(t,
			"Particulars,FY24",
			"Total Expenses,5",
			"Rent,2",
			"EXPENSES,",
		)
		rows, diags := ExtractBlock(table, ExpensesStart, ExpensesEnd, matcher)
		assert.Empty(t, rows)
		assert.Len(t, diags, 1)
	})

	t.Run("adjacent anchors", func(t *testing.T) {
		table := mustTable(t, "Particulars,FY24", "EXPENSES,", "Total Expenses,5")
		rows, diags := ExtractBlock(table, ExpensesStart, ExpensesEnd, matcher)
		assert.Empty(t, rows)
		assert.Empty(t, diags)
	})

	t.Run("missing anchor", func(t *testing.T) {
		table := mustTable(t, "Particulars,FY24", "Revenue,1", "Total Expenses,5")
		rows, diags := ExtractBlock(table, ExpensesStart, ExpensesEnd, matcher)
		assert.Empty(t, rows)
		require.Len(t, diags, 1)
		assert.Contains(t, diags[0].Message, "EXPENSES")
	})

	t.Run("duplicate anchor uses last occurrence", func(t *testing.T) {
		table := mustTable(t,
			"Particulars,FY24",
			"EXPENSES,",
			"Rent,1",
			"EXPENSES,",
			"Power,2",
			"Total Expenses,3",
		)
		rows, _ := ExtractBlock(table, ExpensesStart, ExpensesEnd, matcher)
		assert.Equal(t, [][]string{{"Power", "2"}}, rows)
	})
}

func TestExclude(t *testing.T) {
	table := mustTable(t,
		"Particulars,12 mths,12 mths",
		"Net Profit,10,20",
		"--,1,2",
		",3,4",
		`"Cash and cash equivalents, begin of year",5,6`,
		"Cash And Cash Equivalents End Of Year,7,8",
		"Dividends,12 Mths,5",
		"Net Cash From Operating Activities,30,40",
	)

	kept, excluded := Exclude(table, CashFlowExclusions, matcher)

	assert.Equal(t, 5, excluded)
	assert.Equal(t, [][]string{
		{"Net Profit", "10", "20"},
		{"Net Cash From Operating Activities", "30", "40"},
	}, kept)
}

func TestExcluded(t *testing.T) {
	assert.True(t, Excluded(nil, nil, matcher))
	assert.True(t, Excluded([]string{" -- ", "1"}, nil, matcher))
	assert.True(t, Excluded([]string{"Anything", "for 12 MTHS"}, nil, matcher))
	assert.False(t, Excluded([]string{"Revenue", "1"}, CashFlowExclusions, matcher))
}

func TestRecipes(t *testing.T) {
	recipes := DefaultRecipes()
	require.Len(t, recipes, 4)

	byName := map[string]Recipe{}
	for _, r := range recipes {
		byName[r.Name] = r
	}

	res := byName["plot03"].Extract(plTable(t), matcher)
	assert.Empty(t, res.Diagnostics)
	assert.Equal(t, [][]string{
		{"Cost of Materials", "30", "35"},
		{"Employee Cost", "20", "22"},
		{"Total Tax Expenses", "10", "12"},
		{"Exceptional Items", "1", "2"},
	}, res.Rows)

	ratios := mustTable(t,
		"Particulars,FY23,FY24",
		"Current Ratio (X),1.2,1.3",
		"Total Debt/Equity (X),0.5,0.4",
	)
	res = byName["plot06"].Extract(ratios, matcher)
	assert.Equal(t, [][]string{
		{"Current Ratio (X)", "1.2", "1.3"},
		{"Quick Ratio (X)", "NA", "NA"},
		{"Total Debt/Equity (X)", "0.5", "0.4"},
	}, res.Rows)
	assert.Len(t, res.Diagnostics, 1)
}

func TestSelectRecipes(t *testing.T) {
	all := DefaultRecipes()

	selected, err := SelectRecipes(all, nil)
	require.NoError(t, err)
	assert.Len(t, selected, 4)

	selected, err = SelectRecipes(all, []string{"plot06", "plot01"})
	require.NoError(t, err)
	require.Len(t, selected, 2)
	assert.Equal(t, "plot06", selected[0].Name)

	_, err = SelectRecipes(all, []string{"plot99"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "plot01, plot03, plot04, plot06")

	assert.Equal(t, []string{"01_plot_AandL", "03_plot_expenses", "04_plot_cashflow", "06_plot_leverage"}, OutputNames(all))
}
