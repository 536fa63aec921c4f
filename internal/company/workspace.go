package company

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"bsanalyzer/internal/config"
	"bsanalyzer/internal/exporter"
	"bsanalyzer/internal/extraction"
	"bsanalyzer/internal/files"
	"bsanalyzer/internal/textmatch"
	"bsanalyzer/pkg/contracts/domain"
)

var (
	// ErrFileNotFound is returned for missing files and for the hidden file.
	ErrFileNotFound = errors.New("file not found")
	// ErrNoSourceFolder is returned when no source folder matches a company.
	ErrNoSourceFolder = errors.New("no matching source folder")
)

// Workspace gives access to the company folders below the company data
// directory.
type Workspace struct {
	paths        *config.Paths
	files        *files.Manager
	promptBudget int
	logger       *slog.Logger
}

// NewWorkspace creates a workspace over paths.CompanyDataDir. promptBudget
// caps the data section of generated system prompts in characters; zero or
// less means no cap.
func NewWorkspace(paths *config.Paths, promptBudget int, logger *slog.Logger) *Workspace {
	if logger == nil {
		logger = slog.Default()
	}
	return &Workspace{
		paths:        paths,
		files:        files.NewManager(paths.CompanyDataDir, logger),
		promptBudget: promptBudget,
		logger:       logger.With(slog.String("component", "company")),
	}
}

// Dir returns the folder of a company.
func (w *Workspace) Dir(companyID string) string {
	return w.paths.CompanyDir(companyID)
}

// Provision creates the company folder, writes the sample files that do not
// exist yet and rewrites the system prompt. It returns the number of sample
// files created.
func (w *Workspace) Provision(companyID string, now time.Time) (int, error) {
	if err := ValidateName(companyID); err != nil {
		return 0, err
	}
	if err := w.files.EnsureDirectory(companyID); err != nil {
		return 0, err
	}

	created := 0
	for _, sample := range sampleFiles() {
		data, err := sample.render()
		if err != nil {
			return created, fmt.Errorf("render %s: %w", sample.name, err)
		}
		written, err := w.files.WriteFileIfAbsent(filepath.Join(companyID, sample.name), data)
		if err != nil {
			return created, fmt.Errorf("write %s: %w", sample.name, err)
		}
		if written {
			created++
		}
	}

	if _, err := w.WriteSystemPrompt(companyID, now); err != nil {
		return created, err
	}

	w.logger.Info("Provisioned company folder",
		slog.String("company_id", companyID),
		slog.Int("files_created", created))
	return created, nil
}

// Companies returns the ids of every provisioned company, sorted.
func (w *Workspace) Companies() ([]string, error) {
	if !w.files.DirExists(".") {
		return []string{}, nil
	}
	return w.files.ListDirectories(".")
}

// ListVisible returns the CSV files directly inside the company folder,
// sorted, without the hidden file. A missing folder yields an empty list.
func (w *Workspace) ListVisible(companyID string) ([]string, error) {
	if err := ValidateName(companyID); err != nil {
		return nil, err
	}
	visible := []string{}
	if !w.files.DirExists(companyID) {
		return visible, nil
	}

	names, err := w.files.ListFiles(companyID)
	if err != nil {
		return nil, fmt.Errorf("list company files: %w", err)
	}
	for _, name := range names {
		if strings.HasSuffix(name, ".csv") && name != config.HiddenDataFile {
			visible = append(visible, name)
		}
	}
	return visible, nil
}

// ReadFile loads a company file as columns and string rows. Rows are padded
// or cut to the header width. A header made only of blank names becomes
// Column_1..Column_n.
func (w *Workspace) ReadFile(companyID, name string) (*domain.FileData, error) {
	path, err := w.visibleFile(companyID, name)
	if err != nil {
		return nil, err
	}

	table, err := extraction.LoadTable(path)
	if errors.Is(err, extraction.ErrEmptyTable) {
		return &domain.FileData{Columns: []string{}, Data: [][]string{}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}

	columns := append([]string(nil), table.Header...)
	if allBlank(columns) {
		for i := range columns {
			columns[i] = fmt.Sprintf("Column_%d", i+1)
		}
	}

	data := make([][]string, 0, len(table.Rows))
	for _, row := range table.Rows {
		cells := make([]string, len(columns))
		copy(cells, row)
		data = append(data, cells)
	}
	return &domain.FileData{Columns: columns, Data: data}, nil
}

// ExportXLSX writes a company file to out as a single-sheet workbook.
func (w *Workspace) ExportXLSX(companyID, name string, out io.Writer) error {
	data, err := w.ReadFile(companyID, name)
	if err != nil {
		return err
	}
	return exporter.WriteXLSX(out, exporter.WorkbookOptions{
		SheetName:    sheetName(name),
		Headers:      data.Columns,
		Records:      data.Data,
		NumericCells: true,
	})
}

// ImportSource copies the source folder whose name best matches companyID
// into the company folder, overwriting existing files. Without a configured
// source root nothing is copied.
func (w *Workspace) ImportSource(companyID string) (domain.ImportResult, error) {
	result := domain.ImportResult{CompanyID: companyID}
	if err := ValidateName(companyID); err != nil {
		return result, err
	}
	root := w.paths.SourceDataDir
	if root == "" {
		w.logger.Debug("No source data root configured", slog.String("company_id", companyID))
		return result, nil
	}

	folders, err := w.files.ListDirectories(root)
	if errors.Is(err, fs.ErrNotExist) {
		return result, fmt.Errorf("%w: source root %s does not exist", ErrNoSourceFolder, root)
	}
	if err != nil {
		return result, fmt.Errorf("list source folders: %w", err)
	}

	folder, ok := textmatch.BestMatch(companyID, folders, textmatch.FolderThreshold)
	if !ok {
		return result, fmt.Errorf("%w for %s", ErrNoSourceFolder, companyID)
	}
	result.SourceFolder = folder

	copied, err := w.files.CopyTree(filepath.Join(root, folder), companyID)
	result.FilesCopied = copied
	if err != nil {
		return result, fmt.Errorf("import %s: %w", folder, err)
	}

	w.logger.Info("Imported source data",
		slog.String("company_id", companyID),
		slog.String("source_folder", folder),
		slog.Int("files", copied))
	return result, nil
}

// visibleFile resolves a company file the dashboard may read.
func (w *Workspace) visibleFile(companyID, name string) (string, error) {
	if err := ValidateName(companyID); err != nil {
		return "", err
	}
	if err := ValidateName(name); err != nil {
		return "", err
	}
	if name == config.HiddenDataFile {
		return "", ErrFileNotFound
	}
	rel := filepath.Join(companyID, name)
	if !w.files.FileExists(rel) {
		return "", ErrFileNotFound
	}
	return w.paths.CompanyFile(companyID, name), nil
}

func allBlank(cells []string) bool {
	if len(cells) == 0 {
		return false
	}
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// sheetName derives a valid worksheet name from a file name.
func sheetName(fileName string) string {
	base := strings.TrimSuffix(fileName, filepath.Ext(fileName))
	base = strings.Map(func(r rune) rune {
		if strings.ContainsRune(`:\/?*[]`, r) {
			return '_'
		}
		return r
	}, base)
	if runes := []rune(base); len(runes) > 31 {
		base = string(runes[:31])
	}
	if base == "" {
		return exporter.DefaultSheetName
	}
	return base
}
