package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"bsanalyzer/internal/auth"
	"bsanalyzer/internal/company"
	apierrors "bsanalyzer/internal/errors"
	"bsanalyzer/internal/infrastructure"
	"bsanalyzer/internal/storage"
	api "bsanalyzer/pkg/contracts/api/v1"
	"bsanalyzer/pkg/contracts/events"
)

// RegistrationMessage is returned after a successful registration.
const RegistrationMessage = "Registration successful. Waiting for admin approval."

// AuthService registers users and issues access tokens.
type AuthService struct {
	users      UserRepository
	workspace  *company.Workspace
	tokens     *auth.TokenManager
	bcryptCost int
	events     EventPublisher
	metrics    *infrastructure.BusinessMetrics
	now        func() time.Time
	logger     *slog.Logger
}

// NewAuthService creates the authentication service. events and metrics may
// be nil.
func NewAuthService(users UserRepository, workspace *company.Workspace, tokens *auth.TokenManager, bcryptCost int, events EventPublisher, metrics *infrastructure.BusinessMetrics, logger *slog.Logger) *AuthService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthService{
		users:      users,
		workspace:  workspace,
		tokens:     tokens,
		bcryptCost: bcryptCost,
		events:     publisherOrNoop(events),
		metrics:    metrics,
		now:        time.Now,
		logger:     logger.With(slog.String("service", "auth")),
	}
}

// Register creates an unapproved user, queues its company for approval and
// provisions the company folder.
func (s *AuthService) Register(ctx context.Context, req api.RegisterRequest) error {
	if req.Username == "" || req.Password == "" || req.CompanyID == "" {
		return apierrors.ErrMissingFields
	}
	if err := company.ValidateName(req.CompanyID); err != nil {
		return apierrors.ErrValidation("company_id", err.Error())
	}

	hash, err := auth.HashPassword(req.Password, s.bcryptCost)
	if err != nil {
		return err
	}

	user, err := s.users.CreateUserWithApproval(ctx, req.Username, hash, req.CompanyID)
	if errors.Is(err, storage.ErrUsernameTaken) {
		return apierrors.ErrUsernameTaken
	}
	if err != nil {
		return fmt.Errorf("register %s: %w", req.Username, err)
	}

	if _, err := s.workspace.Provision(req.CompanyID, s.now()); err != nil {
		return fmt.Errorf("provision company %s: %w", req.CompanyID, err)
	}

	s.metrics.RecordRegistration(ctx)
	publish(s.events, events.MessageTypeCompanyRegistered, events.CompanyRegistered{
		CompanyID:   user.CompanyID,
		Username:    user.Username,
		RequestedAt: user.CreatedAt,
	})

	s.logger.InfoContext(ctx, "User registered",
		slog.String("username", user.Username),
		slog.String("company_id", user.CompanyID))
	return nil
}

// Login authenticates an approved user.
func (s *AuthService) Login(ctx context.Context, req api.LoginRequest) (*api.LoginResponse, error) {
	if req.Username == "" || req.Password == "" {
		return nil, apierrors.ErrMissingFields
	}

	user, err := s.users.FindUser(ctx, req.Username)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}
	if user == nil || auth.CheckPassword(user.PasswordHash, req.Password) != nil {
		s.metrics.RecordAuth(ctx, auth.RoleUser, false)
		return nil, apierrors.ErrInvalidCredentials
	}
	if !user.Approved {
		s.metrics.RecordAuth(ctx, auth.RoleUser, false)
		return nil, apierrors.ErrPendingApproval
	}

	token, err := s.tokens.Issue(user.Username, auth.RoleUser, user.CompanyID)
	if err != nil {
		return nil, err
	}
	s.metrics.RecordAuth(ctx, auth.RoleUser, true)
	return &api.LoginResponse{
		AccessToken: token,
		Username:    user.Username,
		CompanyID:   user.CompanyID,
	}, nil
}

// AdminLogin authenticates an administrator.
func (s *AuthService) AdminLogin(ctx context.Context, req api.LoginRequest) (*api.LoginResponse, error) {
	admin, err := s.users.FindAdmin(ctx, req.Username)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}
	if admin == nil || auth.CheckPassword(admin.PasswordHash, req.Password) != nil {
		s.metrics.RecordAuth(ctx, auth.RoleAdmin, false)
		return nil, apierrors.ErrInvalidAdmin
	}

	token, err := s.tokens.Issue(admin.Username, auth.RoleAdmin, "")
	if err != nil {
		return nil, err
	}
	s.metrics.RecordAuth(ctx, auth.RoleAdmin, true)
	return &api.LoginResponse{AccessToken: token, Username: admin.Username}, nil
}

// EnsureAdmin seeds the configured administrator when it does not exist.
func (s *AuthService) EnsureAdmin(ctx context.Context, username, password string) error {
	if username == "" || password == "" {
		return nil
	}
	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return err
	}
	created, err := s.users.SeedAdmin(ctx, username, hash)
	if err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}
	if created {
		s.logger.InfoContext(ctx, "Seeded admin account", slog.String("username", username))
	}
	return nil
}

// CurrentUser loads the account behind an authenticated request.
func (s *AuthService) CurrentUser(ctx context.Context, username string) (*storage.User, error) {
	return lookupUser(ctx, s.users, username)
}

func lookupUser(ctx context.Context, users UserRepository, username string) (*storage.User, error) {
	user, err := users.FindUser(ctx, username)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, apierrors.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}
