package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	apierrors "bsanalyzer/internal/errors"
	api "bsanalyzer/pkg/contracts/api/v1"
)

// ChatHandler forwards user questions to the company assistant
type ChatHandler struct {
	service      ChatService
	validator    RequestValidator
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewChatHandler creates a new chat handler
func NewChatHandler(service ChatService, validator RequestValidator, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *ChatHandler {
	return &ChatHandler{
		service:      service,
		validator:    validator,
		logger:       logger.With(slog.String("component", "chat_handler")),
		errorHandler: errorHandler,
	}
}

// Routes returns the chat routes
func (h *ChatHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.Chat)
	return r
}

// Chat handles POST /api/chat
func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	username, ok := usernameFromRequest(w, r, h.errorHandler)
	if !ok {
		return
	}

	var req api.ChatRequest
	if err := h.validator.Decode(r, &req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	start := time.Now()
	answer, err := h.service.Chat(r.Context(), username, req.Message)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "chat answered",
		slog.String("request_id", middleware.GetReqID(r.Context())),
		slog.String("username", username),
		slog.Int("message_length", len(req.Message)),
		slog.Duration("duration", time.Since(start)),
	)
	render.JSON(w, r, api.ChatResponse{Response: answer})
}
