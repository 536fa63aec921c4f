package http

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"bsanalyzer/internal/auth"
	"bsanalyzer/internal/company"
	apierrors "bsanalyzer/internal/errors"
	api "bsanalyzer/pkg/contracts/api/v1"
	"bsanalyzer/pkg/contracts/domain"
)

// PlotMissingMessage accompanies the empty result for a plot that has not
// been generated yet.
const PlotMissingMessage = "Plot data file not found, using sample data"

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// UserHandler serves the files and plots of the authenticated user's
// company
type UserHandler struct {
	service      CompanyService
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewUserHandler creates a new user handler
func NewUserHandler(service CompanyService, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *UserHandler {
	return &UserHandler{
		service:      service,
		logger:       logger.With(slog.String("component", "user_handler")),
		errorHandler: errorHandler,
	}
}

// Routes returns the user routes
func (h *UserHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/files", h.ListFiles)
	r.Route("/file/{filename}", func(r chi.Router) {
		r.Get("/", h.ReadFile)
		r.Get("/xlsx", h.ExportFile)
	})
	r.Get("/plot/{plot_name}", h.Plot)
	r.Post("/plots/regenerate", h.Regenerate)
	return r
}

// ListFiles handles GET /api/user/files
func (h *UserHandler) ListFiles(w http.ResponseWriter, r *http.Request) {
	username, ok := h.username(w, r)
	if !ok {
		return
	}

	files, err := h.service.ListFiles(r.Context(), username)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, files)
}

// ReadFile handles GET /api/user/file/{filename}
func (h *UserHandler) ReadFile(w http.ResponseWriter, r *http.Request) {
	username, ok := h.username(w, r)
	if !ok {
		return
	}

	data, err := h.service.ReadFile(r.Context(), username, chi.URLParam(r, "filename"))
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, data)
}

// ExportFile handles GET /api/user/file/{filename}/xlsx
func (h *UserHandler) ExportFile(w http.ResponseWriter, r *http.Request) {
	username, ok := h.username(w, r)
	if !ok {
		return
	}
	filename := chi.URLParam(r, "filename")

	// Buffer the workbook so a failure can still be reported as a problem.
	var buf bytes.Buffer
	if err := h.service.ExportFile(r.Context(), username, filename, &buf); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	download := strings.TrimSuffix(filename, ".csv") + ".xlsx"
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": download}))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		h.logger.WarnContext(r.Context(), "workbook download interrupted",
			slog.String("request_id", middleware.GetReqID(r.Context())),
			slog.String("error", err.Error()),
		)
	}
}

// Plot handles GET /api/user/plot/{plot_name}. A plot that was never
// generated is not an error: the dashboard falls back to sample data.
func (h *UserHandler) Plot(w http.ResponseWriter, r *http.Request) {
	username, ok := h.username(w, r)
	if !ok {
		return
	}
	plotName := chi.URLParam(r, "plot_name")

	records, err := h.service.Plot(r.Context(), username, plotName)
	switch {
	case err == nil:
		success := true
		render.JSON(w, r, api.PlotResponse{Success: &success, Data: records})

	case errors.Is(err, company.ErrPlotNotFound):
		render.JSON(w, r, api.PlotResponse{Data: []domain.PlotRecord{}, Message: PlotMissingMessage})

	case isClientError(err):
		h.errorHandler.HandleError(w, r, err)

	default:
		h.logger.ErrorContext(r.Context(), "failed to load plot",
			slog.String("request_id", middleware.GetReqID(r.Context())),
			slog.String("plot", plotName),
			slog.String("error", err.Error()),
		)
		success := false
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, api.PlotResponse{
			Success: &success,
			Data:    []domain.PlotRecord{},
			Error:   fmt.Sprintf("Failed to read plot %s", plotName),
		})
	}
}

// Regenerate handles POST /api/user/plots/regenerate
func (h *UserHandler) Regenerate(w http.ResponseWriter, r *http.Request) {
	username, ok := h.username(w, r)
	if !ok {
		return
	}

	summary, err := h.service.RegenerateForUser(r.Context(), username)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "plots regenerated",
		slog.String("request_id", middleware.GetReqID(r.Context())),
		slog.String("company_id", summary.CompanyID),
		slog.Int("processed", summary.Processed),
		slog.Int("failed", summary.Failed),
	)
	render.JSON(w, r, summary)
}

func (h *UserHandler) username(w http.ResponseWriter, r *http.Request) (string, bool) {
	return usernameFromRequest(w, r, h.errorHandler)
}

// usernameFromRequest returns the token subject set by the auth middleware.
func usernameFromRequest(w http.ResponseWriter, r *http.Request, eh *apierrors.ErrorHandler) (string, bool) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok || claims.Subject == "" {
		eh.HandleError(w, r, apierrors.ErrUnauthorized)
		return "", false
	}
	return claims.Subject, true
}

// isClientError reports errors the caller caused: bad names and unknown
// users, which the error handler renders as 4xx.
func isClientError(err error) bool {
	var apiErr *apierrors.APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode < http.StatusInternalServerError
	}
	return errors.Is(err, company.ErrInvalidName)
}
