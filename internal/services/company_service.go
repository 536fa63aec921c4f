package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"bsanalyzer/internal/company"
	apierrors "bsanalyzer/internal/errors"
	"bsanalyzer/internal/extraction"
	"bsanalyzer/internal/infrastructure"
	"bsanalyzer/pkg/contracts/domain"
	"bsanalyzer/pkg/contracts/events"
)

// Regeneration triggers reported in events and metrics.
const (
	TriggerUser      = "user"
	TriggerApproval  = "approval"
	TriggerScheduler = "scheduler"
)

// maxParallelRegenerations bounds RegenerateAll.
const maxParallelRegenerations = 4

// regenerationTimeout bounds one shared regeneration run. The run is detached
// from the caller that started it so joined callers are not failed by its
// cancellation.
const regenerationTimeout = 10 * time.Minute

// CompanyService serves company files and plots and regenerates plots.
type CompanyService struct {
	users     UserRepository
	workspace *company.Workspace
	recipes   []extraction.Recipe
	threshold int
	events    EventPublisher
	metrics   *infrastructure.BusinessMetrics
	group     singleflight.Group
	now       func() time.Time
	logger    *slog.Logger
}

// NewCompanyService creates the company data service. Plot regeneration runs
// recipes with the given match threshold.
func NewCompanyService(users UserRepository, workspace *company.Workspace, recipes []extraction.Recipe, threshold int, events EventPublisher, metrics *infrastructure.BusinessMetrics, logger *slog.Logger) *CompanyService {
	if logger == nil {
		logger = slog.Default()
	}
	return &CompanyService{
		users:     users,
		workspace: workspace,
		recipes:   recipes,
		threshold: threshold,
		events:    publisherOrNoop(events),
		metrics:   metrics,
		now:       time.Now,
		logger:    logger.With(slog.String("service", "company")),
	}
}

// ListFiles returns the visible files of the user's company.
func (s *CompanyService) ListFiles(ctx context.Context, username string) ([]string, error) {
	user, err := lookupUser(ctx, s.users, username)
	if err != nil {
		return nil, err
	}
	return s.workspace.ListVisible(user.CompanyID)
}

// ReadFile returns one file of the user's company.
func (s *CompanyService) ReadFile(ctx context.Context, username, name string) (*domain.FileData, error) {
	user, err := lookupUser(ctx, s.users, username)
	if err != nil {
		return nil, err
	}
	data, err := s.workspace.ReadFile(user.CompanyID, name)
	if err != nil {
		return nil, fileError(err)
	}
	return data, nil
}

// ExportFile writes one file of the user's company to out as XLSX.
func (s *CompanyService) ExportFile(ctx context.Context, username, name string, out io.Writer) error {
	user, err := lookupUser(ctx, s.users, username)
	if err != nil {
		return err
	}
	if err := s.workspace.ExportXLSX(user.CompanyID, name, out); err != nil {
		return fileError(err)
	}
	return nil
}

// Plot returns the pivoted records of a generated plot. A plot that was never
// generated yields company.ErrPlotNotFound.
func (s *CompanyService) Plot(ctx context.Context, username, plotName string) ([]domain.PlotRecord, error) {
	user, err := lookupUser(ctx, s.users, username)
	if err != nil {
		return nil, err
	}
	return s.workspace.LoadPlot(user.CompanyID, plotName)
}

// RegenerateForUser regenerates the plots of the user's company.
func (s *CompanyService) RegenerateForUser(ctx context.Context, username string) (*domain.RegenerationSummary, error) {
	user, err := lookupUser(ctx, s.users, username)
	if err != nil {
		return nil, err
	}
	return s.RegeneratePlots(ctx, user.CompanyID, TriggerUser)
}

// RegeneratePlots runs the extraction recipes over a company folder and
// rewrites its system prompt. Concurrent calls for the same company share
// one run; a caller whose ctx ends stops waiting but the run carries on.
func (s *CompanyService) RegeneratePlots(ctx context.Context, companyID, trigger string) (*domain.RegenerationSummary, error) {
	if err := company.ValidateName(companyID); err != nil {
		return nil, err
	}

	ch := s.group.DoChan(companyID, func() (interface{}, error) {
		runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), regenerationTimeout)
		defer cancel()
		return s.regenerate(runCtx, companyID, trigger)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		if res.Shared {
			s.logger.DebugContext(ctx, "Joined running regeneration", slog.String("company_id", companyID))
		}
		summary := *res.Val.(*domain.RegenerationSummary)
		return &summary, nil
	}
}

func (s *CompanyService) regenerate(ctx context.Context, companyID, trigger string) (*domain.RegenerationSummary, error) {
	start := time.Now()
	runner := extraction.NewRunner(s.workspace.Dir(companyID), s.recipes, s.threshold, s.logger)
	report, err := runner.Run(ctx)
	if err != nil {
		return nil, fmt.Errorf("regenerate plots for %s: %w", companyID, err)
	}

	if _, err := s.workspace.WriteSystemPrompt(companyID, s.now()); err != nil {
		s.logger.WarnContext(ctx, "Failed to refresh system prompt",
			slog.String("company_id", companyID),
			slog.String("error", err.Error()))
	}

	summary := summarize(companyID, report)
	s.metrics.RecordExtraction(ctx, trigger, summary.Processed, summary.Failed, time.Since(start))
	publish(s.events, events.MessageTypePlotsRegenerated, events.PlotsRegenerated{
		RegenerationSummary: *summary,
		Trigger:             trigger,
	})

	s.logger.InfoContext(ctx, "Regenerated plots",
		slog.String("company_id", companyID),
		slog.String("trigger", trigger),
		slog.Int("processed", summary.Processed),
		slog.Int("failed", summary.Failed),
		slog.Duration("duration", time.Since(start)))
	return summary, nil
}

// RegenerateAll regenerates the plots of every approved company that has a
// folder. A failing company does not stop the others; the first failure is
// returned with the summaries of the rest.
func (s *CompanyService) RegenerateAll(ctx context.Context, trigger string) ([]domain.RegenerationSummary, error) {
	approved, err := s.users.ApprovedCompanies(ctx)
	if err != nil {
		return nil, err
	}
	folders, err := s.workspace.Companies()
	if err != nil {
		return nil, err
	}
	present := make(map[string]bool, len(folders))
	for _, f := range folders {
		present[f] = true
	}

	var targets []string
	for _, id := range approved {
		if present[id] {
			targets = append(targets, id)
		}
	}

	results := make([]*domain.RegenerationSummary, len(targets))
	failures := make([]error, len(targets))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelRegenerations)
	for i, id := range targets {
		g.Go(func() error {
			summary, err := s.RegeneratePlots(gctx, id, trigger)
			if errors.Is(err, context.Canceled) {
				return err
			}
			results[i], failures[i] = summary, err
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	summaries := make([]domain.RegenerationSummary, 0, len(targets))
	var firstErr error
	for i := range targets {
		if failures[i] != nil {
			if firstErr == nil {
				firstErr = failures[i]
			}
			continue
		}
		summaries = append(summaries, *results[i])
	}
	return summaries, firstErr
}

func summarize(companyID string, report *extraction.Report) *domain.RegenerationSummary {
	summary := &domain.RegenerationSummary{
		CompanyID: companyID,
		RunID:     report.RunID,
		Processed: report.Processed(),
		Skipped:   report.Skipped(),
		Failed:    report.Failed(),
		Warnings:  report.Warnings(),
		Outputs:   []string{},
	}
	for _, f := range report.Files {
		if f.Status == extraction.StatusProcessed {
			summary.Outputs = append(summary.Outputs, f.Output)
		}
	}
	sort.Strings(summary.Outputs)
	return summary
}

func fileError(err error) error {
	if errors.Is(err, company.ErrFileNotFound) {
		return apierrors.ErrFileNotFound
	}
	return err
}
