package company

import (
	"bytes"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"bsanalyzer/internal/config"
)

var testDate = time.Date(2024, 3, 15, 9, 30, 0, 0, time.UTC)

func newTestWorkspace(t *testing.T, sourceDir string, budget int) *Workspace {
	t.Helper()
	paths := config.NewPaths(config.PathsConfig{
		BaseDir:       t.TempDir(),
		SourceDataDir: sourceDir,
	})
	return NewWorkspace(paths, budget, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestValidateName(t *testing.T) {
	tests := []struct {
		name  string
		input string
		valid bool
	}{
		{"plain id", "acme", true},
		{"file name", "sales_data.csv", true},
		{"spaces inside", "Acme Corp", true},
		{"empty", "", false},
		{"blank", "   ", false},
		{"slash", "a/b", false},
		{"backslash", `a\b`, false},
		{"parent", "..", false},
		{"embedded parent", "a..b", false},
		{"too long", strings.Repeat("x", 256), false},
		{"max length", strings.Repeat("x", 255), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateName(tt.input)
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalidName)
			}
		})
	}
}

func TestProvision(t *testing.T) {
	w := newTestWorkspace(t, "", 0)

	created, err := w.Provision("acme", testDate)
	require.NoError(t, err)
	assert.Equal(t, 8, created)

	sales, err := os.ReadFile(filepath.Join(w.Dir("acme"), "sales_data.csv"))
	require.NoError(t, err)
	assert.Equal(t, "Date,Product,Quantity,Revenue\n"+
		"2024-01-1,Product 1,0,0\n"+
		"2024-01-2,Product 2,10,1000\n"+
		"2024-01-3,Product 3,20,2000\n"+
		"2024-01-4,Product 4,30,3000\n"+
		"2024-01-5,Product 5,40,4000\n", string(sales))

	customers, err := os.ReadFile(filepath.Join(w.Dir("acme"), "customer_data.csv"))
	require.NoError(t, err)
	assert.Contains(t, string(customers), "CUST4,Customer 4,customer4@email.com,Region 1\n")

	hidden, err := os.ReadFile(filepath.Join(w.Dir("acme"), config.HiddenDataFile))
	require.NoError(t, err)
	assert.Equal(t, "InternalID,ConfidentialData,Score\n", string(hidden))

	prompt, err := os.ReadFile(filepath.Join(w.Dir("acme"), config.SystemPromptFile))
	require.NoError(t, err)
	assert.Contains(t, string(prompt), "You are an assistant for company: acme.")
	assert.Contains(t, string(prompt), "Current date: 2024-03-15")

	t.Run("existing files are kept", func(t *testing.T) {
		custom := filepath.Join(w.Dir("acme"), "inventory.csv")
		writeFile(t, custom, "ProductID,ProductName,Stock,Price\nP1,Widget,3,9.99\n")

		created, err := w.Provision("acme", testDate)
		require.NoError(t, err)
		assert.Zero(t, created)

		data, err := os.ReadFile(custom)
		require.NoError(t, err)
		assert.Contains(t, string(data), "Widget")
	})

	t.Run("invalid id", func(t *testing.T) {
		_, err := w.Provision("../escape", testDate)
		assert.ErrorIs(t, err, ErrInvalidName)
	})
}

func TestCompanies(t *testing.T) {
	w := newTestWorkspace(t, "", 0)

	ids, err := w.Companies()
	require.NoError(t, err)
	assert.Empty(t, ids)

	for _, id := range []string{"zeta", "acme"} {
		_, err := w.Provision(id, testDate)
		require.NoError(t, err)
	}
	ids, err = w.Companies()
	require.NoError(t, err)
	assert.Equal(t, []string{"acme", "zeta"}, ids)
}

func TestListVisible(t *testing.T) {
	w := newTestWorkspace(t, "", 0)

	files, err := w.ListVisible("nobody")
	require.NoError(t, err)
	assert.NotNil(t, files)
	assert.Empty(t, files)

	_, err = w.Provision("acme", testDate)
	require.NoError(t, err)
	writeFile(t, filepath.Join(w.Dir("acme"), "notes.txt"), "not data")
	writeFile(t, filepath.Join(w.Dir("acme"), "plots", "01_plot_AandL.csv"), ",2023\n")

	files, err = w.ListVisible("acme")
	require.NoError(t, err)
	assert.Equal(t, []string{
		"customer_data.csv",
		"employee_data.csv",
		"financials.csv",
		"inventory.csv",
		"marketing.csv",
		"operations.csv",
		"sales_data.csv",
	}, files)
}

func TestReadFile(t *testing.T) {
	w := newTestWorkspace(t, "", 0)
	_, err := w.Provision("acme", testDate)
	require.NoError(t, err)
	dir := w.Dir("acme")

	t.Run("sample data", func(t *testing.T) {
		data, err := w.ReadFile("acme", "sales_data.csv")
		require.NoError(t, err)
		assert.Equal(t, []string{"Date", "Product", "Quantity", "Revenue"}, data.Columns)
		require.Len(t, data.Data, 5)
		assert.Equal(t, []string{"2024-01-2", "Product 2", "10", "1000"}, data.Data[1])
	})

	t.Run("header only", func(t *testing.T) {
		data, err := w.ReadFile("acme", "inventory.csv")
		require.NoError(t, err)
		assert.Len(t, data.Columns, 4)
		assert.NotNil(t, data.Data)
		assert.Empty(t, data.Data)
	})

	t.Run("ragged rows fit the header", func(t *testing.T) {
		writeFile(t, filepath.Join(dir, "ragged.csv"), "a,b,c\n1\n1,2,3,4\n")
		data, err := w.ReadFile("acme", "ragged.csv")
		require.NoError(t, err)
		assert.Equal(t, [][]string{{"1", "", ""}, {"1", "2", "3"}}, data.Data)
	})

	t.Run("blank header", func(t *testing.T) {
		writeFile(t, filepath.Join(dir, "noheader.csv"), ",,\nx,y,z\n")
		data, err := w.ReadFile("acme", "noheader.csv")
		require.NoError(t, err)
		assert.Equal(t, []string{"Column_1", "Column_2", "Column_3"}, data.Columns)
	})

	t.Run("latin-1", func(t *testing.T) {
		writeFile(t, filepath.Join(dir, "legacy.csv"), "Name,City\nJos\xe9,Bogot\xe1\n")
		data, err := w.ReadFile("acme", "legacy.csv")
		require.NoError(t, err)
		assert.Equal(t, []string{"José", "Bogotá"}, data.Data[0])
	})

	t.Run("empty file", func(t *testing.T) {
		writeFile(t, filepath.Join(dir, "empty.csv"), "")
		data, err := w.ReadFile("acme", "empty.csv")
		require.NoError(t, err)
		assert.Empty(t, data.Columns)
		assert.Empty(t, data.Data)
	})

	errorCases := []struct {
		name    string
		company string
		file    string
		want    error
	}{
		{"hidden file", "acme", config.HiddenDataFile, ErrFileNotFound},
		{"missing file", "acme", "missing.csv", ErrFileNotFound},
		{"directory", "acme", "plots", ErrFileNotFound},
		{"unknown company", "globex", "sales_data.csv", ErrFileNotFound},
		{"traversal", "acme", "../acme/sales_data.csv", ErrInvalidName},
		{"bad company", "..", "sales_data.csv", ErrInvalidName},
	}
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "plots"), 0755))
	for _, tt := range errorCases {
		t.Run(tt.name, func(t *testing.T) {
			_, err := w.ReadFile(tt.company, tt.file)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestExportXLSX(t *testing.T) {
	w := newTestWorkspace(t, "", 0)
	_, err := w.Provision("acme", testDate)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, w.ExportXLSX("acme", "sales_data.csv", &buf))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"sales_data"}, f.GetSheetList())
	header, err := f.GetCellValue("sales_data", "A1")
	require.NoError(t, err)
	assert.Equal(t, "Date", header)
	revenue, err := f.GetCellValue("sales_data", "D3")
	require.NoError(t, err)
	assert.Equal(t, "1000", revenue)

	err = w.ExportXLSX("acme", config.HiddenDataFile, &bytes.Buffer{})
	assert.ErrorIs(t, err, ErrFileNotFound)
}

func TestSheetName(t *testing.T) {
	assert.Equal(t, "sales_data", sheetName("sales_data.csv"))
	assert.Equal(t, "Q1_Q2 results", sheetName("Q1:Q2 results.csv"))
	assert.Equal(t, strings.Repeat("a", 31), sheetName(strings.Repeat("a", 40)+".csv"))
	assert.Equal(t, "Sheet1", sheetName(".csv"))
}

func TestImportSource(t *testing.T) {
	source := t.TempDir()
	writeFile(t, filepath.Join(source, "ACME Corp", "ACME-BS.csv"), ",2023\nTotal Current Assets,10\n")
	writeFile(t, filepath.Join(source, "ACME Corp", "2023", "ACME-PL.csv"), ",2023\nEXPENSES,\n")
	writeFile(t, filepath.Join(source, "Globex", "GLOBEX-BS.csv"), ",2023\n")

	t.Run("copies the best matching folder", func(t *testing.T) {
		w := newTestWorkspace(t, source, 0)
		_, err := w.Provision("acme-corp", testDate)
		require.NoError(t, err)

		result, err := w.ImportSource("acme-corp")
		require.NoError(t, err)
		assert.Equal(t, "ACME Corp", result.SourceFolder)
		assert.Equal(t, 2, result.FilesCopied)
		assert.FileExists(t, filepath.Join(w.Dir("acme-corp"), "ACME-BS.csv"))
		assert.FileExists(t, filepath.Join(w.Dir("acme-corp"), "2023", "ACME-PL.csv"))
		assert.FileExists(t, filepath.Join(w.Dir("acme-corp"), "sales_data.csv"))
	})

	t.Run("no matching folder", func(t *testing.T) {
		w := newTestWorkspace(t, source, 0)
		_, err := w.ImportSource("initech")
		assert.ErrorIs(t, err, ErrNoSourceFolder)
	})

	t.Run("missing source root", func(t *testing.T) {
		w := newTestWorkspace(t, filepath.Join(source, "absent"), 0)
		_, err := w.ImportSource("acme-corp")
		assert.ErrorIs(t, err, ErrNoSourceFolder)
	})

	t.Run("no source root configured", func(t *testing.T) {
		w := newTestWorkspace(t, "", 0)
		result, err := w.ImportSource("acme-corp")
		require.NoError(t, err)
		assert.Zero(t, result.FilesCopied)
		assert.Empty(t, result.SourceFolder)
	})
}

func TestSystemPrompt(t *testing.T) {
	w := newTestWorkspace(t, "", 0)
	_, err := w.Provision("acme", testDate)
	require.NoError(t, err)
	dir := w.Dir("acme")

	writeFile(t, filepath.Join(dir, "ACME-BS.csv"), "Item,2023,2022\nTotal Current Assets,\"1,200\",900\n")
	writeFile(t, filepath.Join(dir, "plots", "01_plot_AandL.csv"), ",2023,2022\nTotal Current Assets,\"1,200\",900\n")

	prompt, err := w.BuildSystemPrompt("acme", testDate)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(prompt, "You are an assistant for company: acme.\n"))
	assert.Contains(t, prompt, "Current date: 2024-03-15\n")
	assert.Contains(t, prompt, "## ACME-BS.csv\nItem | 2023 | 2022\nTotal Current Assets | 1,200 | 900\n")
	assert.Contains(t, prompt, "## plots/01_plot_AandL.csv\n2023 | 2022\n")
	assert.NotContains(t, prompt, "sales_data")
	assert.NotContains(t, prompt, "Product 1")

	t.Run("budget", func(t *testing.T) {
		small := NewWorkspace(w.paths, 20, nil)
		prompt, err := small.BuildSystemPrompt("acme", testDate)
		require.NoError(t, err)
		assert.True(t, strings.HasSuffix(prompt, truncatedMarker))
		assert.NotContains(t, prompt, "plots/01_plot_AandL.csv")
	})

	t.Run("write and load", func(t *testing.T) {
		written, err := w.WriteSystemPrompt("acme", testDate)
		require.NoError(t, err)
		assert.Equal(t, written, w.LoadSystemPrompt("acme"))
	})

	t.Run("fallback", func(t *testing.T) {
		assert.Equal(t, DefaultSystemPrompt, w.LoadSystemPrompt("globex"))
		assert.Equal(t, DefaultSystemPrompt, w.LoadSystemPrompt("../acme"))
	})

	t.Run("no financial files", func(t *testing.T) {
		prompt, err := w.BuildSystemPrompt("globex", testDate)
		require.NoError(t, err)
		assert.NotContains(t, prompt, "Financial data")
	})
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 0))
	assert.Equal(t, "abc", truncate("abc", 3))
	assert.Equal(t, "ab"+truncatedMarker, truncate("abc", 2))
	assert.Equal(t, "Añ"+truncatedMarker, truncate("Año", 2))
}
