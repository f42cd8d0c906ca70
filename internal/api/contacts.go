package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/snarg/signalhub/internal/store"
)

// ContactsHandler is the thin CRUD surface described in SPEC_FULL.md's
// contacts supplement — outside the signaling core's budget, but present
// so the contacts table isn't just declared and unused.
type ContactsHandler struct {
	contacts store.ContactStore
}

func NewContactsHandler(contacts store.ContactStore) *ContactsHandler {
	return &ContactsHandler{contacts: contacts}
}

func (h *ContactsHandler) Routes(r chi.Router) {
	r.Get("/users/{user_id}/contacts", h.list)
	r.Post("/users/{user_id}/contacts", h.add)
	r.Delete("/users/{user_id}/contacts/{contact_id}", h.remove)
}

func (h *ContactsHandler) list(w http.ResponseWriter, r *http.Request) {
	userID, ok := PathInt64(w, r, "user_id")
	if !ok {
		return
	}
	contacts, err := h.contacts.ListContacts(r.Context(), userID)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "failed to list contacts")
		return
	}
	WriteJSON(w, http.StatusOK, contacts)
}

func (h *ContactsHandler) add(w http.ResponseWriter, r *http.Request) {
	userID, ok := PathInt64(w, r, "user_id")
	if !ok {
		return
	}
	var body struct {
		ContactID int64 `json:"contact_id"`
	}
	if err := DecodeJSON(r, &body); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	ct, err := h.contacts.AddContact(r.Context(), userID, body.ContactID)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "failed to add contact")
		return
	}
	WriteJSON(w, http.StatusCreated, ct)
}

func (h *ContactsHandler) remove(w http.ResponseWriter, r *http.Request) {
	userID, ok := PathInt64(w, r, "user_id")
	if !ok {
		return
	}
	contactID, ok := PathInt64(w, r, "contact_id")
	if !ok {
		return
	}
	if err := h.contacts.RemoveContact(r.Context(), userID, contactID); err != nil {
		WriteError(w, http.StatusInternalServerError, "failed to remove contact")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
