package http

import (
	"context"
	"io"
	"net/http"

	"bsanalyzer/internal/services"
	api "bsanalyzer/pkg/contracts/api/v1"
	"bsanalyzer/pkg/contracts/domain"
)

// AuthService registers and authenticates users and admins
type AuthService interface {
	Register(ctx context.Context, req api.RegisterRequest) error
	Login(ctx context.Context, req api.LoginRequest) (*api.LoginResponse, error)
	AdminLogin(ctx context.Context, req api.LoginRequest) (*api.LoginResponse, error)
}

// AdminService reviews company approvals
type AdminService interface {
	PendingApprovals(ctx context.Context) ([]domain.PendingApproval, error)
	ApproveCompany(ctx context.Context, companyID string) (*api.ApproveResponse, error)
}

// CompanyService serves the files and plots of the caller's company
type CompanyService interface {
	ListFiles(ctx context.Context, username string) ([]string, error)
	ReadFile(ctx context.Context, username, name string) (*domain.FileData, error)
	ExportFile(ctx context.Context, username, name string, out io.Writer) error
	Plot(ctx context.Context, username, plotName string) ([]domain.PlotRecord, error)
	RegenerateForUser(ctx context.Context, username string) (*domain.RegenerationSummary, error)
}

// ChatService answers questions about the caller's company
type ChatService interface {
	Chat(ctx context.Context, username, message string) (string, error)
}

// HealthService reports service health
type HealthService interface {
	HealthCheck(ctx context.Context) services.HealthStatus
	ReadinessCheck(ctx context.Context) services.HealthStatus
	LivenessCheck(ctx context.Context) services.HealthStatus
	Version() map[string]interface{}
}

// RequestValidator decodes and validates JSON bodies
type RequestValidator interface {
	Decode(r *http.Request, dst interface{}) error
}
