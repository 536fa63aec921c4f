package company

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"bsanalyzer/internal/config"
	"bsanalyzer/internal/extraction"
)

// DefaultSystemPrompt is used for chat when a company has no prompt file.
const DefaultSystemPrompt = "You are a helpful assistant."

const truncatedMarker = "\n[truncated]"

// BuildSystemPrompt renders the chat system prompt of a company: a header
// naming the company and the date, then every statement and plot CSV in the
// company folder as compact text. The data section is cut to the workspace
// prompt budget.
func (w *Workspace) BuildSystemPrompt(companyID string, now time.Time) (string, error) {
	if err := ValidateName(companyID); err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "You are an assistant for company: %s.\n", companyID)
	b.WriteString("The user has access to various business data including sales, customers, inventory, etc.\n")
	b.WriteString("Help them analyze their data and answer business-related questions.\n")
	fmt.Fprintf(&b, "Current date: %s\n", now.Format("2006-01-02"))

	sources, err := w.financialFiles(companyID)
	if err != nil {
		return "", err
	}
	if len(sources) == 0 {
		return b.String(), nil
	}

	var data strings.Builder
	for _, rel := range sources {
		table, err := extraction.LoadTable(filepath.Join(w.Dir(companyID), rel))
		if err != nil {
			w.logger.Warn("Skipping file in system prompt",
				slog.String("company_id", companyID),
				slog.String("file", rel),
				slog.String("error", err.Error()))
			continue
		}
		fmt.Fprintf(&data, "\n## %s\n", filepath.ToSlash(rel))
		writeCompact(&data, table.Header)
		for _, row := range table.Rows {
			writeCompact(&data, row)
		}
	}

	if data.Len() > 0 {
		b.WriteString("\nFinancial data available for this company:\n")
		b.WriteString(truncate(data.String(), w.promptBudget))
	}
	return b.String(), nil
}

// WriteSystemPrompt builds the system prompt and stores it in the company
// folder.
func (w *Workspace) WriteSystemPrompt(companyID string, now time.Time) (string, error) {
	prompt, err := w.BuildSystemPrompt(companyID, now)
	if err != nil {
		return "", err
	}
	if err := w.files.WriteFile(filepath.Join(companyID, config.SystemPromptFile), []byte(prompt)); err != nil {
		return "", fmt.Errorf("write system prompt: %w", err)
	}
	return prompt, nil
}

// LoadSystemPrompt returns the stored system prompt of a company, or
// DefaultSystemPrompt when there is none.
func (w *Workspace) LoadSystemPrompt(companyID string) string {
	if ValidateName(companyID) != nil {
		return DefaultSystemPrompt
	}
	data, err := w.files.ReadFile(filepath.Join(companyID, config.SystemPromptFile))
	if err != nil {
		if !os.IsNotExist(err) {
			w.logger.Warn("Failed to read system prompt",
				slog.String("company_id", companyID),
				slog.String("error", err.Error()))
		}
		return DefaultSystemPrompt
	}
	return string(data)
}

// financialFiles lists, relative to the company folder, the statement files
// the extraction recipes consume and every CSV inside a plots folder.
func (w *Workspace) financialFiles(companyID string) ([]string, error) {
	root := w.Dir(companyID)
	var suffixes []string
	for _, recipe := range extraction.DefaultRecipes() {
		suffixes = append(suffixes, recipe.Suffix)
	}

	var found []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root && os.IsNotExist(err) {
				return filepath.SkipAll
			}
			return err
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), ".csv") {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		if filepath.Base(filepath.Dir(path)) == config.PlotsDirName || hasAnySuffix(d.Name(), suffixes) {
			found = append(found, rel)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan company folder: %w", err)
	}
	return found, nil
}

func hasAnySuffix(name string, suffixes []string) bool {
	for _, s := range suffixes {
		if strings.HasSuffix(name, s) {
			return true
		}
	}
	return false
}

// writeCompact writes the non-empty cells of a row separated by " | ".
func writeCompact(b *strings.Builder, row []string) {
	cells := make([]string, 0, len(row))
	for _, c := range row {
		if c != "" {
			cells = append(cells, c)
		}
	}
	if len(cells) == 0 {
		return
	}
	b.WriteString(strings.Join(cells, " | "))
	b.WriteByte('\n')
}

// truncate cuts s to at most budget runes, marking the cut.
func truncate(s string, budget int) string {
	if budget <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= budget {
		return s
	}
	return string(runes[:budget]) + truncatedMarker
}
