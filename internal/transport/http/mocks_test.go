package http

import (
	"context"
	"io"

	"github.com/stretchr/testify/mock"

	"bsanalyzer/internal/services"
	api "bsanalyzer/pkg/contracts/api/v1"
	"bsanalyzer/pkg/contracts/domain"
)

type MockAuthService struct {
	mock.Mock
}

func (m *MockAuthService) Register(ctx context.Context, req api.RegisterRequest) error {
	return m.Called(req).Error(0)
}

func (m *MockAuthService) Login(ctx context.Context, req api.LoginRequest) (*api.LoginResponse, error) {
	args := m.Called(req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*api.LoginResponse), args.Error(1)
}

func (m *MockAuthService) AdminLogin(ctx context.Context, req api.LoginRequest) (*api.LoginResponse, error) {
	args := m.Called(req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*api.LoginResponse), args.Error(1)
}

type MockAdminService struct {
	mock.Mock
}

func (m *MockAdminService) PendingApprovals(ctx context.Context) ([]domain.PendingApproval, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.PendingApproval), args.Error(1)
}

func (m *MockAdminService) ApproveCompany(ctx context.Context, companyID string) (*api.ApproveResponse, error) {
	args := m.Called(companyID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*api.ApproveResponse), args.Error(1)
}

type MockCompanyService struct {
	mock.Mock
}

func (m *MockCompanyService) ListFiles(ctx context.Context, username string) ([]string, error) {
	args := m.Called(username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockCompanyService) ReadFile(ctx context.Context, username, name string) (*domain.FileData, error) {
	args := m.Called(username, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.FileData), args.Error(1)
}

func (m *MockCompanyService) ExportFile(ctx context.Context, username, name string, out io.Writer) error {
	args := m.Called(username, name)
	if content, ok := args.Get(0).(string); ok {
		_, _ = io.WriteString(out, content)
	}
	return args.Error(1)
}

func (m *MockCompanyService) Plot(ctx context.Context, username, plotName string) ([]domain.PlotRecord, error) {
	args := m.Called(username, plotName)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.PlotRecord), args.Error(1)
}

func (m *MockCompanyService) RegenerateForUser(ctx context.Context, username string) (*domain.RegenerationSummary, error) {
	args := m.Called(username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RegenerationSummary), args.Error(1)
}

type MockChatService struct {
	mock.Mock
}

func (m *MockChatService) Chat(ctx context.Context, username, message string) (string, error) {
	args := m.Called(username, message)
	return args.String(0), args.Error(1)
}

type stubHealthService struct {
	ready string
}

func (s stubHealthService) HealthCheck(ctx context.Context) services.HealthStatus {
	return services.HealthStatus{Status: "ok"}
}

func (s stubHealthService) ReadinessCheck(ctx context.Context) services.HealthStatus {
	return services.HealthStatus{Status: s.ready}
}

func (s stubHealthService) LivenessCheck(ctx context.Context) services.HealthStatus {
	return services.HealthStatus{Status: "alive"}
}

func (s stubHealthService) Version() map[string]interface{} {
	return map[string]interface{}{"version": "test"}
}
