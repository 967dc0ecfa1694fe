package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/render"
	"github.com/gorilla/websocket"

	apperrors "wbbcli/internal/errors"
	"wbbcli/internal/middleware"
	ws "wbbcli/internal/websocket"
)

// WebSocketHandler upgrades /ws requests and attaches them to the hub
type WebSocketHandler struct {
	hub      *ws.Hub
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// NewWebSocketHandler creates the handler. Browser origins are checked
// against cors; requests without an Origin header are accepted.
func NewWebSocketHandler(hub *ws.Hub, cors middleware.CORSConfig, logger *slog.Logger) *WebSocketHandler {
	h := &WebSocketHandler{
		hub:    hub,
		logger: logger.With(slog.String("handler", "websocket")),
	}

	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" || cors.OriginAllowed(origin) {
				return true
			}
			h.logger.WarnContext(r.Context(), "WebSocket origin rejected",
				slog.String("origin", origin),
				slog.Any("allowed_origins", cors.AllowedOrigins))
			return false
		},
		Error: func(w http.ResponseWriter, r *http.Request, status int, reason error) {
			h.logger.ErrorContext(r.Context(), "WebSocket upgrade failed",
				slog.Int("status", status),
				slog.String("reason", reason.Error()),
				slog.String("origin", r.Header.Get("Origin")))
			render.Render(w, r, apperrors.NewWithDetails(status,
				apperrors.ErrWebSocketUpgrade.ErrorCode,
				apperrors.ErrWebSocketUpgrade.Message,
				map[string]string{"reason": reason.Error()}))
		},
	}
	return h
}

// ServeHTTP handles GET /ws
func (h *WebSocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	client := ws.ServeWS(h.hub, conn, requestID, h.logger)
	h.logger.InfoContext(ctx, "WebSocket client connected",
		slog.String("client_id", client.ID()),
		slog.String("remote_addr", r.RemoteAddr))
}
