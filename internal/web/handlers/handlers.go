package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/saltyorg/clientdir/internal/database"
	"github.com/saltyorg/clientdir/internal/maintenance"
)

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 1 << 20

// Directory is the set of directory operations exposed over HTTP.
type Directory interface {
	AddClient(ctx context.Context, c database.NewClient) (int64, error)
	AddPhone(ctx context.Context, clientID int64, phone string) (bool, error)
	ChangeClient(ctx context.Context, clientID int64, u database.ClientUpdate) (*database.ChangeResult, error)
	DeletePhone(ctx context.Context, clientID int64, phone string) (int64, error)
	DeleteClient(ctx context.Context, clientID int64) (*database.DeleteResult, error)
	FindWithMode(ctx context.Context, q database.ClientQuery, mode database.FindMode) ([]int64, error)
	FindMode() database.FindMode
	GetClient(ctx context.Context, clientID int64) (*database.ClientRecord, error)
	ListClients(ctx context.Context) ([]*database.ClientRecord, error)
}

// MaintenanceReporter exposes the maintenance scheduler state.
type MaintenanceReporter interface {
	Status() maintenance.Status
}

// Handlers contains all HTTP handlers
type Handlers struct {
	dir         Directory
	maintenance MaintenanceReporter
}

// New creates a new Handlers instance
func New(dir Directory) *Handlers {
	return &Handlers{dir: dir}
}

// SetMaintenance sets the maintenance scheduler reported by Health
func (h *Handlers) SetMaintenance(m MaintenanceReporter) {
	h.maintenance = m
}

type healthResponse struct {
	Status      string              `json:"status"`
	Maintenance *maintenance.Status `json:"maintenance,omitempty"`
}

// Health reports liveness and, when serving with a scheduler, maintenance
// state.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "ok"}
	if h.maintenance != nil {
		status := h.maintenance.Status()
		resp.Maintenance = &status
	}
	h.jsonResponse(w, http.StatusOK, resp)
}

// jsonResponse writes v as JSON with the given status
func (h *Handlers) jsonResponse(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}

// jsonError sends a JSON error response
func (h *Handlers) jsonError(w http.ResponseWriter, message string, status int) {
	h.jsonResponse(w, status, map[string]string{"error": message})
}

// storeError maps a directory error onto a response. Constraint violations
// are the caller's fault; anything else is logged and hidden.
func (h *Handlers) storeError(w http.ResponseWriter, r *http.Request, err error, action string) {
	if database.IsConstraintViolation(err) {
		h.jsonError(w, err.Error(), http.StatusConflict)
		return
	}
	log.Error().Err(err).Str("path", r.URL.Path).Msg("Failed to " + action)
	h.jsonError(w, "Internal server error", http.StatusInternalServerError)
}

// clientID parses the {id} URL parameter, writing a 400 when it is invalid.
func (h *Handlers) clientID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		h.jsonError(w, "Invalid client ID", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

// decodeJSON reads the request body into v, writing a 400 on failure.
func (h *Handlers) decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		msg := "Invalid JSON body"
		if errors.Is(err, io.EOF) {
			msg = "Request body required"
		}
		h.jsonError(w, msg, http.StatusBadRequest)
		return false
	}
	return true
}
