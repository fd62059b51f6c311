package mapping

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/tally/internal/http/auth"
	"github.com/MrJamesThe3rd/tally/internal/importer"
	"github.com/MrJamesThe3rd/tally/internal/mapping"
)

type Handler struct {
	svc *mapping.Service
}

func NewHandler(svc *mapping.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Patch("/{id}", h.update)
	r.Delete("/{id}", h.delete)
}

type mappingResponse struct {
	ID         uuid.UUID          `json:"id"`
	Name       string             `json:"name"`
	DateFormat string             `json:"date_format"`
	Columns    importer.ColumnMap `json:"columns"`
	CreatedAt  time.Time          `json:"created_at"`
	UpdatedAt  time.Time          `json:"updated_at"`
}

type createRequest struct {
	Name       string             `json:"name"`
	DateFormat string             `json:"date_format"`
	Columns    importer.ColumnMap `json:"columns"`
}

type updateRequest struct {
	Name       *string            `json:"name"`
	DateFormat *string            `json:"date_format"`
	Columns    importer.ColumnMap `json:"columns"`
}

func toResponse(m *mapping.Mapping) mappingResponse {
	return mappingResponse{
		ID:         m.ID,
		Name:       m.Name,
		DateFormat: m.DateFormat,
		Columns:    m.Columns,
		CreatedAt:  m.CreatedAt,
		UpdatedAt:  m.UpdatedAt,
	}
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	owner, ok := auth.RequireOwner(w, r)
	if !ok {
		return
	}

	ms, err := h.svc.List(r.Context(), owner)
	if err != nil {
		slog.Error("failed to list mappings", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)

		return
	}

	resp := make([]mappingResponse, len(ms))
	for i, m := range ms {
		resp[i] = toResponse(m)
	}

	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	owner, ok := auth.RequireOwner(w, r)
	if !ok {
		return
	}

	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	m, err := h.svc.Save(r.Context(), owner, mapping.SaveParams{
		Name:       req.Name,
		DateFormat: req.DateFormat,
		Columns:    req.Columns,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)

	if err := json.NewEncoder(w).Encode(toResponse(m)); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	owner, ok := auth.RequireOwner(w, r)
	if !ok {
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	var req updateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	m, err := h.svc.Update(r.Context(), owner, id, mapping.UpdateParams{
		Name:       req.Name,
		DateFormat: req.DateFormat,
		Columns:    req.Columns,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(toResponse(m)); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	owner, ok := auth.RequireOwner(w, r)
	if !ok {
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	if err := h.svc.Delete(r.Context(), owner, id); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func writeError(w http.ResponseWriter, err error) {
	var notMapped *importer.ColumnNotMappedError

	switch {
	case errors.Is(err, mapping.ErrNotFound):
		http.Error(w, "mapping not found", http.StatusNotFound)
	case errors.Is(err, mapping.ErrInvalidName),
		errors.Is(err, mapping.ErrInvalidField),
		errors.As(err, &notMapped):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
	default:
		slog.Error("mapping request failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}
