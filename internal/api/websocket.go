package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/snarg/signalhub/internal/hub"
	"github.com/snarg/signalhub/internal/transport"
)

// WebSocketHandler wires the chi route for the session upgrade path to
// the transport package, which owns everything past the HTTP handshake.
type WebSocketHandler struct {
	hub *hub.Hub
	log zerolog.Logger
}

func NewWebSocketHandler(h *hub.Hub, log zerolog.Logger) *WebSocketHandler {
	return &WebSocketHandler{hub: h, log: log}
}

func (h *WebSocketHandler) Routes(r chi.Router) {
	r.Get("/ws/{user_id}", h.serve)
}

func (h *WebSocketHandler) serve(w http.ResponseWriter, r *http.Request) {
	transport.ServeWS(h.hub, h.log, w, r, chi.URLParam(r, "user_id"))
}
