package extraction

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"bsanalyzer/internal/exporter"
	"bsanalyzer/internal/textmatch"
)

// PlotsDir is the output folder created next to each source file. Folders
// with this name are never walked.
const PlotsDir = "plots"

// ErrRootNotFound is returned when the root is missing or not a directory.
var ErrRootNotFound = errors.New("root directory does not exist")

// Runner applies recipes to every matching file below Root.
type Runner struct {
	Root    string
	Recipes []Recipe
	Matcher textmatch.Matcher

	writer *exporter.CSVWriter
	logger *slog.Logger
	now    func() time.Time
}

// NewRunner creates a runner. A non-positive threshold selects
// textmatch.DefaultThreshold.
func NewRunner(root string, recipes []Recipe, threshold int, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("component", "extraction"))
	return &Runner{
		Root:    root,
		Recipes: recipes,
		Matcher: textmatch.NewMatcher(threshold),
		writer:  exporter.NewCSVWriter("", logger),
		logger:  logger,
		now:     time.Now,
	}
}

// Run walks Root in lexical order and processes every file whose name ends
// with a recipe suffix. A missing root fails before anything is written;
// every other problem is recorded in the report. Cancelling ctx stops the
// walk and returns the partial report with ctx's error.
func (r *Runner) Run(ctx context.Context) (*Report, error) {
	info, err := os.Stat(r.Root)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrRootNotFound, r.Root)
	}

	report := &Report{
		RunID:     uuid.New().String(),
		Root:      r.Root,
		StartedAt: r.now(),
		Files:     []FileReport{},
	}

	r.logger.InfoContext(ctx, "Extraction run started",
		slog.String("run_id", report.RunID),
		slog.String("root", r.Root),
		slog.Int("recipes", len(r.Recipes)))

	walkErr := filepath.WalkDir(r.Root, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			if path == r.Root {
				return err
			}
			r.logger.WarnContext(ctx, "Skipping unreadable path",
				slog.String("path", path), slog.String("error", err.Error()))
			report.Files = append(report.Files, FileReport{
				Source: r.rel(path),
				Status: StatusFailed,
				Error:  err.Error(),
			})
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if path != r.Root && d.Name() == PlotsDir {
				return fs.SkipDir
			}
			return nil
		}
		for _, recipe := range r.Recipes {
			if strings.HasSuffix(d.Name(), recipe.Suffix) {
				report.Files = append(report.Files, r.processFile(ctx, path, recipe))
			}
		}
		return nil
	})

	report.FinishedAt = r.now()

	r.logger.InfoContext(ctx, "Extraction run finished",
		slog.String("run_id", report.RunID),
		slog.Int("processed", report.Processed()),
		slog.Int("skipped", report.Skipped()),
		slog.Int("failed", report.Failed()),
		slog.Int("warnings", report.Warnings()),
		slog.Duration("duration", report.Duration()))

	if walkErr != nil {
		return report, fmt.Errorf("walk %s: %w", r.Root, walkErr)
	}
	return report, nil
}

// processFile reads one source, applies recipe and writes its output.
func (r *Runner) processFile(ctx context.Context, path string, recipe Recipe) FileReport {
	fr := FileReport{Source: r.rel(path), Recipe: recipe.Name}
	logger := r.logger.With(slog.String("source", fr.Source), slog.String("recipe", recipe.Name))

	table, err := ReadTable(path)
	switch {
	case errors.Is(err, ErrMalformedTable):
		fr.Status = StatusSkipped
		fr.Diagnostics = []Diagnostic{warnf("%s", err.Error())}
		logger.WarnContext(ctx, "Skipping malformed file")
		return fr
	case err != nil:
		fr.Status = StatusFailed
		fr.Error = err.Error()
		logger.ErrorContext(ctx, "Failed to read file", slog.String("error", err.Error()))
		return fr
	}
	fr.Encoding = table.Encoding

	result := recipe.Extract(table, r.Matcher)
	fr.Rows = len(result.Rows)
	fr.Excluded = result.Excluded
	fr.Diagnostics = result.Diagnostics
	for _, d := range result.Diagnostics {
		logger.WarnContext(ctx, d.Message)
	}

	outPath := filepath.Join(filepath.Dir(path), PlotsDir, recipe.Output)
	if err := r.writer.WriteSimpleCSV(outPath, table.OutputHeader(), result.Rows); err != nil {
		fr.Status = StatusFailed
		fr.Error = err.Error()
		logger.ErrorContext(ctx, "Failed to write output", slog.String("error", err.Error()))
		return fr
	}

	fr.Status = StatusProcessed
	fr.Output = r.rel(outPath)
	logger.InfoContext(ctx, "Saved plot file",
		slog.String("output", fr.Output),
		slog.Int("rows", fr.Rows),
		slog.Int("excluded", fr.Excluded),
		slog.String("encoding", fr.Encoding))
	return fr
}

func (r *Runner) rel(path string) string {
	if rel, err := filepath.Rel(r.Root, path); err == nil {
		return filepath.ToSlash(rel)
	}
	return path
}
