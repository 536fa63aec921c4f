package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	gorilla "github.com/gorilla/websocket"

	"bsanalyzer/internal/auth"
	apierrors "bsanalyzer/internal/errors"
	"bsanalyzer/internal/infrastructure"
	"bsanalyzer/internal/websocket"
)

// EventsHandler upgrades admin dashboards to the event stream
type EventsHandler struct {
	hub          *websocket.Hub
	upgrader     *gorilla.Upgrader
	opts         websocket.ClientOptions
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewEventsHandler creates the handler. pongWait and pingPeriod tune the
// keepalive of each connection.
func NewEventsHandler(hub *websocket.Hub, upgrader *gorilla.Upgrader, pongWait, pingPeriod time.Duration, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *EventsHandler {
	return &EventsHandler{
		hub:          hub,
		upgrader:     upgrader,
		opts:         websocket.ClientOptions{PongWait: pongWait, PingPeriod: pingPeriod},
		logger:       logger.With(slog.String("component", "events_handler")),
		errorHandler: errorHandler,
	}
}

// ServeHTTP handles GET /ws/events
func (h *EventsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	opts := h.opts
	opts.TraceID = infrastructure.GetTraceID(r.Context())
	if claims, ok := auth.ClaimsFromContext(r.Context()); ok {
		opts.Username = claims.Subject
	}

	if !gorilla.IsWebSocketUpgrade(r) {
		h.errorHandler.HandleError(w, r, apierrors.New(
			http.StatusBadRequest, "WEBSOCKET_UPGRADE_REQUIRED", "WebSocket upgrade required"))
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// The upgrader has already written the HTTP error.
		h.logger.WarnContext(r.Context(), "WebSocket upgrade failed",
			slog.String("request_id", middleware.GetReqID(r.Context())),
			slog.String("error", err.Error()),
		)
		return
	}

	client := websocket.NewClient(h.hub, websocket.WrapConn(conn), opts, h.logger)
	if !client.Serve() {
		h.logger.WarnContext(r.Context(), "Event stream is shutting down, connection closed",
			slog.String("username", opts.Username))
	}
}
