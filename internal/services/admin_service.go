package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"bsanalyzer/internal/company"
	apierrors "bsanalyzer/internal/errors"
	"bsanalyzer/internal/infrastructure"
	api "bsanalyzer/pkg/contracts/api/v1"
	"bsanalyzer/pkg/contracts/domain"
	"bsanalyzer/pkg/contracts/events"
)

// ApprovalMessage is returned after a successful approval.
const ApprovalMessage = "Company approved successfully"

// PlotRegenerator regenerates the plots of one company.
type PlotRegenerator interface {
	RegeneratePlots(ctx context.Context, companyID, trigger string) (*domain.RegenerationSummary, error)
}

// AdminService lists and approves pending companies.
type AdminService struct {
	users       UserRepository
	workspace   *company.Workspace
	regenerator PlotRegenerator
	events      EventPublisher
	metrics     *infrastructure.BusinessMetrics
	logger      *slog.Logger
}

// NewAdminService creates the admin service.
func NewAdminService(users UserRepository, workspace *company.Workspace, regenerator PlotRegenerator, events EventPublisher, metrics *infrastructure.BusinessMetrics, logger *slog.Logger) *AdminService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AdminService{
		users:       users,
		workspace:   workspace,
		regenerator: regenerator,
		events:      publisherOrNoop(events),
		metrics:     metrics,
		logger:      logger.With(slog.String("service", "admin")),
	}
}

// PendingApprovals lists the companies waiting for approval.
func (s *AdminService) PendingApprovals(ctx context.Context) ([]domain.PendingApproval, error) {
	return s.users.ListPendingApprovals(ctx)
}

// ApproveCompany approves every user of a company, imports the company's
// source data and regenerates its plots. Import and regeneration problems
// are logged and do not undo the approval.
func (s *AdminService) ApproveCompany(ctx context.Context, companyID string) (*api.ApproveResponse, error) {
	if err := company.ValidateName(companyID); err != nil {
		return nil, apierrors.ErrValidation("company_id", err.Error())
	}

	approved, err := s.users.ApproveCompany(ctx, companyID)
	if err != nil {
		return nil, fmt.Errorf("approve %s: %w", companyID, err)
	}
	s.metrics.RecordApproval(ctx)
	logger := s.logger.With(slog.String("company_id", companyID))
	logger.InfoContext(ctx, "Company approved", slog.Int64("users_approved", approved))

	resp := &api.ApproveResponse{Message: ApprovalMessage, UsersApproved: approved}

	imported, err := s.workspace.ImportSource(companyID)
	switch {
	case errors.Is(err, company.ErrNoSourceFolder):
		logger.WarnContext(ctx, "No source data to import", slog.String("reason", err.Error()))
	case err != nil:
		logger.ErrorContext(ctx, "Source data import failed", slog.String("error", err.Error()))
	default:
		resp.Import = &imported
	}

	if s.regenerator != nil {
		summary, err := s.regenerator.RegeneratePlots(ctx, companyID, TriggerApproval)
		if err != nil {
			logger.ErrorContext(ctx, "Plot regeneration after approval failed", slog.String("error", err.Error()))
		} else {
			resp.Regeneration = summary
		}
	}

	publish(s.events, events.MessageTypeCompanyApproved, events.CompanyApproved{
		CompanyID:     companyID,
		UsersApproved: approved,
		SourceFolder:  imported.SourceFolder,
		FilesImported: imported.FilesCopied,
	})
	return resp, nil
}
