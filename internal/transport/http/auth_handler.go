package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"bsanalyzer/internal/auth"
	apierrors "bsanalyzer/internal/errors"
	"bsanalyzer/internal/services"
	api "bsanalyzer/pkg/contracts/api/v1"
)

// AuthHandler handles registration and logins
type AuthHandler struct {
	service      AuthService
	validator    RequestValidator
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(service AuthService, validator RequestValidator, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *AuthHandler {
	return &AuthHandler{
		service:      service,
		validator:    validator,
		logger:       logger.With(slog.String("component", "auth_handler")),
		errorHandler: errorHandler,
	}
}

// Register handles POST /api/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req api.RegisterRequest
	if err := h.validator.Decode(r, &req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	if err := h.service.Register(r.Context(), req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "registration accepted",
		slog.String("request_id", middleware.GetReqID(r.Context())),
		slog.String("username", req.Username),
		slog.String("company_id", req.CompanyID),
	)
	render.JSON(w, r, api.MessageResponse{Message: services.RegistrationMessage})
}

// Login handles POST /api/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	h.login(w, r, auth.RoleUser, h.service.Login)
}

// AdminLogin handles POST /api/admin/login
func (h *AuthHandler) AdminLogin(w http.ResponseWriter, r *http.Request) {
	h.login(w, r, auth.RoleAdmin, h.service.AdminLogin)
}

type loginFunc func(ctx context.Context, req api.LoginRequest) (*api.LoginResponse, error)

func (h *AuthHandler) login(w http.ResponseWriter, r *http.Request, role string, fn loginFunc) {
	var req api.LoginRequest
	if err := h.validator.Decode(r, &req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	resp, err := fn(r.Context(), req)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "login succeeded",
		slog.String("request_id", middleware.GetReqID(r.Context())),
		slog.String("username", resp.Username),
		slog.String("role", role),
	)
	render.JSON(w, r, resp)
}
