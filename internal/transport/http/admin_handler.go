package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	apierrors "bsanalyzer/internal/errors"
)

// AdminHandler handles the admin approval workflow. Callers must already be
// authenticated as admin.
type AdminHandler struct {
	service      AdminService
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(service AdminService, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *AdminHandler {
	return &AdminHandler{
		service:      service,
		logger:       logger.With(slog.String("component", "admin_handler")),
		errorHandler: errorHandler,
	}
}

// Routes returns the admin routes
func (h *AdminHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/pending-approvals", h.PendingApprovals)
	r.Post("/approve-company/{company_id}", h.ApproveCompany)
	return r
}

// PendingApprovals handles GET /api/admin/pending-approvals
func (h *AdminHandler) PendingApprovals(w http.ResponseWriter, r *http.Request) {
	approvals, err := h.service.PendingApprovals(r.Context())
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, approvals)
}

// ApproveCompany handles POST /api/admin/approve-company/{company_id}
func (h *AdminHandler) ApproveCompany(w http.ResponseWriter, r *http.Request) {
	companyID := chi.URLParam(r, "company_id")

	resp, err := h.service.ApproveCompany(r.Context(), companyID)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "company approved",
		slog.String("request_id", middleware.GetReqID(r.Context())),
		slog.String("company_id", companyID),
		slog.Int64("users_approved", resp.UsersApproved),
	)
	render.JSON(w, r, resp)
}
