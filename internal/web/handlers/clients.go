package handlers

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/saltyorg/clientdir/internal/database"
)

// ListClients returns every client with its phones.
func (h *Handlers) ListClients(w http.ResponseWriter, r *http.Request) {
	clients, err := h.dir.ListClients(r.Context())
	if err != nil {
		h.storeError(w, r, err, "list clients")
		return
	}
	if clients == nil {
		clients = []*database.ClientRecord{}
	}
	h.jsonResponse(w, http.StatusOK, clients)
}

// CreateClient adds a client and responds with the stored record.
func (h *Handlers) CreateClient(w http.ResponseWriter, r *http.Request) {
	var req database.NewClient
	if !h.decodeJSON(w, r, &req) {
		return
	}
	if req.Phone != nil && strings.TrimSpace(*req.Phone) == "" {
		h.jsonError(w, "Phone cannot be empty", http.StatusBadRequest)
		return
	}

	id, err := h.dir.AddClient(r.Context(), req)
	if err != nil {
		h.storeError(w, r, err, "add client")
		return
	}

	client, err := h.dir.GetClient(r.Context(), id)
	if err != nil {
		h.storeError(w, r, err, "get client")
		return
	}
	h.jsonResponse(w, http.StatusCreated, client)
}

// GetClient returns one client, 404 when it does not exist.
func (h *Handlers) GetClient(w http.ResponseWriter, r *http.Request) {
	id, ok := h.clientID(w, r)
	if !ok {
		return
	}

	client, err := h.dir.GetClient(r.Context(), id)
	if err != nil {
		h.storeError(w, r, err, "get client")
		return
	}
	if client == nil {
		h.jsonError(w, "Client not found", http.StatusNotFound)
		return
	}
	h.jsonResponse(w, http.StatusOK, client)
}

// UpdateClient applies the fields present in the body.
func (h *Handlers) UpdateClient(w http.ResponseWriter, r *http.Request) {
	id, ok := h.clientID(w, r)
	if !ok {
		return
	}

	var req database.ClientUpdate
	if !h.decodeJSON(w, r, &req) {
		return
	}
	if req.Empty() {
		h.jsonError(w, "No fields to change", http.StatusBadRequest)
		return
	}

	result, err := h.dir.ChangeClient(r.Context(), id, req)
	if err != nil {
		h.storeError(w, r, err, "change client")
		return
	}
	if result.Changed == nil {
		result.Changed = []database.FieldChange{}
	}
	h.jsonResponse(w, http.StatusOK, result)
}

// DeleteClient removes a client and its phones.
func (h *Handlers) DeleteClient(w http.ResponseWriter, r *http.Request) {
	id, ok := h.clientID(w, r)
	if !ok {
		return
	}

	result, err := h.dir.DeleteClient(r.Context(), id)
	if err != nil {
		h.storeError(w, r, err, "delete client")
		return
	}
	h.jsonResponse(w, http.StatusOK, result)
}

// FindClients searches by the query parameters first_name, last_name, email
// and phone. mode overrides the configured find mode.
func (h *Handlers) FindClients(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()

	mode := h.dir.FindMode()
	if m := params.Get("mode"); m != "" {
		parsed, err := database.ParseFindMode(m)
		if err != nil {
			h.jsonError(w, err.Error(), http.StatusBadRequest)
			return
		}
		mode = parsed
	}

	q := database.ClientQuery{
		FirstName: queryParam(params, "first_name"),
		LastName:  queryParam(params, "last_name"),
		Email:     queryParam(params, "email"),
		Phone:     queryParam(params, "phone"),
	}

	ids, err := h.dir.FindWithMode(r.Context(), q, mode)
	if err != nil {
		h.storeError(w, r, err, "find clients")
		return
	}
	h.jsonResponse(w, http.StatusOK, map[string]any{
		"mode":       mode,
		"client_ids": ids,
	})
}

// queryParam returns a pointer to the parameter value, or nil when the
// parameter is absent.
func queryParam(params url.Values, key string) *string {
	if !params.Has(key) {
		return nil
	}
	v := params.Get(key)
	return &v
}
