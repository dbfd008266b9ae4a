// internal/api/handler/websocket.go
package handler

import (
	"net/http"

	"go.uber.org/zap"

	"ctf-portal/internal/portal"
)

type WebSocketHandler struct {
	hub    *portal.Hub
	logger *zap.Logger
}

func NewWebSocketHandler(hub *portal.Hub, logger *zap.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		hub:    hub,
		logger: logger,
	}
}

// HandleConnection streams notices for the caller's sid until the tab
// closes. Anonymous tabs are accepted so they still get the login redirect.
func (h *WebSocketHandler) HandleConnection(w http.ResponseWriter, r *http.Request) {
	// Upgrade writes its own error response
	if err := h.hub.Serve(w, r, agent(r).Sid); err != nil {
		h.logger.Debug("websocket closed with error", zap.Error(err))
	}
}
