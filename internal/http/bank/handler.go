package bank

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/MrJamesThe3rd/tally/internal/importer"
	"github.com/MrJamesThe3rd/tally/internal/importer/bank"
	"github.com/MrJamesThe3rd/tally/internal/tabular"
)

type Handler struct {
	registry *bank.Registry
}

func NewHandler(registry *bank.Registry) *Handler {
	return &Handler{registry: registry}
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.list)
}

type profileResponse struct {
	ID         string             `json:"id"`
	Name       string             `json:"name"`
	FileKinds  []tabular.Kind     `json:"file_kinds"`
	Columns    importer.ColumnMap `json:"columns"`
	DateFormat string             `json:"date_format"`
}

func (h *Handler) list(w http.ResponseWriter, _ *http.Request) {
	profiles := h.registry.List()

	resp := make([]profileResponse, 0, len(profiles))
	for _, p := range profiles {
		d := p.Declaration()

		resp = append(resp, profileResponse{
			ID:         p.ID(),
			Name:       p.Name(),
			FileKinds:  d.FileKinds,
			Columns:    d.Columns,
			DateFormat: d.DateFormat,
		})
	}

	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}
