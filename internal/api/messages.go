package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/snarg/signalhub/internal/store"
)

// MessagesHandler persists and serves chat history. The WebSocket router
// (internal/hub) only relays a chat envelope to the live recipient; it
// never touches the store. A client that wants its message kept beyond
// the recipient's current session posts it here as well, independently
// of the relay. This split keeps the router free of a storage
// dependency and matches the persistence-is-the-REST-layer's-job
// boundary the router documents at its own call site.
type MessagesHandler struct {
	sink store.PersistenceSink
}

func NewMessagesHandler(sink store.PersistenceSink) *MessagesHandler {
	return &MessagesHandler{sink: sink}
}

type postDirectMessage struct {
	SenderID int64  `json:"sender_id"`
	TargetID int64  `json:"target_id"`
	Content  string `json:"content"`
}

type postGroupMessage struct {
	SenderID int64  `json:"sender_id"`
	Content  string `json:"content"`
}

func (h *MessagesHandler) Routes(r chi.Router) {
	r.Get("/messages/direct", h.direct)
	r.Post("/messages/direct", h.postDirect)
	r.Get("/messages/group/{group_id}", h.group)
	r.Post("/messages/group/{group_id}", h.postGroup)
}

func (h *MessagesHandler) postDirect(w http.ResponseWriter, r *http.Request) {
	var body postDirectMessage
	if err := DecodeJSON(r, &body); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if body.SenderID == 0 || body.TargetID == 0 || body.Content == "" {
		WriteError(w, http.StatusBadRequest, "sender_id, target_id and content are required")
		return
	}
	msg, err := h.sink.AppendDirect(r.Context(), body.SenderID, body.TargetID, body.Content)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "failed to persist message")
		return
	}
	WriteJSON(w, http.StatusCreated, msg)
}

func (h *MessagesHandler) postGroup(w http.ResponseWriter, r *http.Request) {
	groupID, ok := PathInt64(w, r, "group_id")
	if !ok {
		return
	}
	var body postGroupMessage
	if err := DecodeJSON(r, &body); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if body.SenderID == 0 || body.Content == "" {
		WriteError(w, http.StatusBadRequest, "sender_id and content are required")
		return
	}
	msg, err := h.sink.AppendGroup(r.Context(), body.SenderID, groupID, body.Content)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "failed to persist message")
		return
	}
	WriteJSON(w, http.StatusCreated, msg)
}

func (h *MessagesHandler) direct(w http.ResponseWriter, r *http.Request) {
	a, err := parseQueryInt64(r, "user_a")
	if err != nil {
		WriteError(w, http.StatusBadRequest, "user_a must be an integer")
		return
	}
	b, err := parseQueryInt64(r, "user_b")
	if err != nil {
		WriteError(w, http.StatusBadRequest, "user_b must be an integer")
		return
	}
	limit := QueryInt(r, "limit", 50)

	msgs, err := h.sink.DirectHistory(r.Context(), a, b, limit)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "failed to load history")
		return
	}
	WriteJSON(w, http.StatusOK, msgs)
}

func (h *MessagesHandler) group(w http.ResponseWriter, r *http.Request) {
	groupID, ok := PathInt64(w, r, "group_id")
	if !ok {
		return
	}
	limit := QueryInt(r, "limit", 50)

	msgs, err := h.sink.GroupHistory(r.Context(), groupID, limit)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "failed to load history")
		return
	}
	WriteJSON(w, http.StatusOK, msgs)
}

func parseQueryInt64(r *http.Request, name string) (int64, error) {
	return parseInt64(r.URL.Query().Get(name))
}
