package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// Paths is the resolved on-disk layout shared by the server, the scheduler
// and the plotgen CLI.
type Paths struct {
	BaseDir        string
	CompanyDataDir string
	SourceDataDir  string
	LogsDir        string
}

// NewPaths builds the layout from a PathsConfig. Relative entries are joined
// onto BaseDir.
func NewPaths(cfg PathsConfig) *Paths {
	base := cfg.BaseDir
	if base == "" {
		base, _ = os.Getwd()
	}
	resolve := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(base, p)
	}
	companyDir := cfg.CompanyDataDir
	if companyDir == "" {
		companyDir = DefaultCompanyDataDir
	}
	logsDir := cfg.LogsDir
	if logsDir == "" {
		logsDir = DefaultLogsDir
	}
	return &Paths{
		BaseDir:        base,
		CompanyDataDir: resolve(companyDir),
		SourceDataDir:  resolve(cfg.SourceDataDir),
		LogsDir:        resolve(logsDir),
	}
}

// EnsureDirectories creates all required directories if they don't exist
func (p *Paths) EnsureDirectories() error {
	for _, dir := range []string{p.CompanyDataDir, p.LogsDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
		slog.Debug("Ensured directory exists", slog.String("directory", dir))
	}
	return nil
}

// CompanyDir returns the folder holding one company's files.
func (p *Paths) CompanyDir(companyID string) string {
	return filepath.Join(p.CompanyDataDir, companyID)
}

// CompanyFile returns the path of a file inside a company folder.
func (p *Paths) CompanyFile(companyID, name string) string {
	return filepath.Join(p.CompanyDataDir, companyID, name)
}

// PlotsDir returns the generated plots folder of a company.
func (p *Paths) PlotsDir(companyID string) string {
	return filepath.Join(p.CompanyDataDir, companyID, PlotsDirName)
}

// PlotFile returns the path of a generated plot CSV.
func (p *Paths) PlotFile(companyID, plotName string) string {
	return filepath.Join(p.PlotsDir(companyID), plotName+".csv")
}

// SystemPromptPath returns the cached system prompt of a company.
func (p *Paths) SystemPromptPath(companyID string) string {
	return filepath.Join(p.CompanyDataDir, companyID, SystemPromptFile)
}

// GetLogPath returns the path for a log file
func (p *Paths) GetLogPath(filename string) string {
	return filepath.Join(p.LogsDir, filename)
}

// FileExists checks if a file exists
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return !os.IsNotExist(err)
}

// LogPathResolution logs the resolved layout
func (p *Paths) LogPathResolution() {
	slog.Info("Path resolution summary",
		slog.Group("directories",
			slog.String("base", p.BaseDir),
			slog.String("company_data", p.CompanyDataDir),
			slog.String("source_data", p.SourceDataDir),
			slog.String("logs", p.LogsDir),
		))
}
