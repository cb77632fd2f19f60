package handlers

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
)

type addPhoneRequest struct {
	Phone string `json:"phone"`
}

type phoneResponse struct {
	ClientID int64  `json:"client_id"`
	Phone    string `json:"phone"`
	Added    bool   `json:"added"`
}

// AddPhone attaches a phone to the client. Responds 201 when the phone was
// added and 200 when the client already had it.
func (h *Handlers) AddPhone(w http.ResponseWriter, r *http.Request) {
	id, ok := h.clientID(w, r)
	if !ok {
		return
	}

	var req addPhoneRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Phone) == "" {
		h.jsonError(w, "Phone is required", http.StatusBadRequest)
		return
	}

	added, err := h.dir.AddPhone(r.Context(), id, req.Phone)
	if err != nil {
		h.storeError(w, r, err, "add phone")
		return
	}

	status := http.StatusOK
	if added {
		status = http.StatusCreated
	}
	h.jsonResponse(w, status, phoneResponse{ClientID: id, Phone: req.Phone, Added: added})
}

// DeletePhone removes the phone from the client.
func (h *Handlers) DeletePhone(w http.ResponseWriter, r *http.Request) {
	id, ok := h.clientID(w, r)
	if !ok {
		return
	}
	phone, ok := h.phoneParam(w, r)
	if !ok {
		return
	}

	n, err := h.dir.DeletePhone(r.Context(), id, phone)
	if err != nil {
		h.storeError(w, r, err, "delete phone")
		return
	}
	h.jsonResponse(w, http.StatusOK, map[string]any{
		"client_id": id,
		"phone":     phone,
		"deleted":   n,
	})
}

// phoneParam returns the decoded {phone} segment, writing a 400 when it is
// malformed. chi matches on RawPath when the client escaped the path, so a
// "+" sent as "%2B" is still escaped in the URL parameter.
func (h *Handlers) phoneParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	phone := chi.URLParam(r, "phone")
	if r.URL.RawPath == "" {
		return phone, true
	}

	decoded, err := url.PathUnescape(phone)
	if err != nil {
		h.jsonError(w, "Invalid phone", http.StatusBadRequest)
		return "", false
	}
	return decoded, true
}
