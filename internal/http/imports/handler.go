package imports

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/tally/internal/http/auth"
	"github.com/MrJamesThe3rd/tally/internal/importer"
	"github.com/MrJamesThe3rd/tally/internal/importer/bank"
	"github.com/MrJamesThe3rd/tally/internal/importer/executor"
	"github.com/MrJamesThe3rd/tally/internal/mapping"
	"github.com/MrJamesThe3rd/tally/internal/tabular"
	"github.com/MrJamesThe3rd/tally/internal/transaction"
)

type Handler struct {
	svc       *executor.Service
	maxUpload int64
}

func NewHandler(svc *executor.Service, maxUpload int64) *Handler {
	return &Handler{svc: svc, maxUpload: maxUpload}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/preview", h.preview)
	r.With(middleware.AllowContentType("application/json")).Post("/commit", h.commit)
}

func (h *Handler) preview(w http.ResponseWriter, r *http.Request) {
	owner, ok := auth.RequireOwner(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)

	if err := r.ParseMultipartForm(h.maxUpload); err != nil {
		if mbe := new(http.MaxBytesError); errors.As(err, &mbe) {
			http.Error(w, "file too large", http.StatusRequestEntityTooLarge)
			return
		}

		http.Error(w, "failed to parse form: "+err.Error(), http.StatusBadRequest)

		return
	}

	src, err := sourceFromForm(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "file field is required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	batch, err := h.svc.Preview(r.Context(), owner, executor.Upload{Filename: header.Filename, Body: file}, src)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(toPreviewResponse(batch)); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) commit(w http.ResponseWriter, r *http.Request) {
	owner, ok := auth.RequireOwner(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)

	var req commitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	records := make([]importer.Record, 0, len(req.Records))

	for _, dto := range req.Records {
		rec, err := dto.record()
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		records = append(records, rec)
	}

	res, err := h.svc.Commit(r.Context(), owner, records, executor.CommitOptions{AccountID: req.AccountID})
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")

	if len(res.Inserted) > 0 {
		w.WriteHeader(http.StatusCreated)
	}

	if err := json.NewEncoder(w).Encode(toCommitResponse(res)); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

// sourceFromForm reads the mapping selection from a preview form.
func sourceFromForm(r *http.Request) (executor.Source, error) {
	src := executor.Source{
		BankID:     r.FormValue("bank"),
		DateFormat: r.FormValue("date_format"),
	}

	if s := r.FormValue("mapping_id"); s != "" {
		id, err := uuid.Parse(s)
		if err != nil {
			return src, errors.New("invalid mapping_id")
		}

		src.MappingID = &id
	}

	if s := r.FormValue("mapping"); s != "" {
		var cols importer.ColumnMap
		if err := json.Unmarshal([]byte(s), &cols); err != nil {
			return src, fmt.Errorf("invalid mapping: %w", err)
		}

		for f := range cols {
			if !f.Valid() {
				return src, fmt.Errorf("invalid mapping: unknown field %q", f)
			}
		}

		src.Custom = &executor.CustomMapping{Columns: cols}
	}

	return src, nil
}

func writeError(w http.ResponseWriter, err error) {
	var (
		notMapped *importer.ColumnNotMappedError
		decodeErr *tabular.DecodeError
	)

	switch {
	case errors.Is(err, executor.ErrNoSource),
		errors.Is(err, executor.ErrFileRejected),
		errors.Is(err, bank.ErrUnknownProfile),
		errors.Is(err, tabular.ErrUnsupportedFileKind):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, mapping.ErrNotFound):
		http.Error(w, "mapping not found", http.StatusNotFound)
	case errors.As(err, &notMapped),
		errors.Is(err, tabular.ErrEmptyFile),
		errors.Is(err, tabular.ErrNoHeaderRow),
		errors.As(err, &decodeErr):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
	case errors.Is(err, transaction.ErrAccountLink):
		slog.Error("failed to link imported transactions", "error", err)
		http.Error(w, transaction.ErrAccountLink.Error(), http.StatusBadGateway)
	case errors.Is(err, transaction.ErrConflict):
		http.Error(w, transaction.ErrConflict.Error(), http.StatusConflict)
	default:
		slog.Error("import failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}
