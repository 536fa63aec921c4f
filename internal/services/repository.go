package services

import (
	"context"

	"bsanalyzer/internal/storage"
	"bsanalyzer/pkg/contracts/domain"
)

// UserRepository is the account storage used by the services.
type UserRepository interface {
	CreateUserWithApproval(ctx context.Context, username, passwordHash, companyID string) (*storage.User, error)
	FindUser(ctx context.Context, username string) (*storage.User, error)
	FindAdmin(ctx context.Context, username string) (*storage.Admin, error)
	SeedAdmin(ctx context.Context, username, passwordHash string) (bool, error)
	ListPendingApprovals(ctx context.Context) ([]domain.PendingApproval, error)
	ApproveCompany(ctx context.Context, companyID string) (int64, error)
	ApprovedCompanies(ctx context.Context) ([]string, error)
}
