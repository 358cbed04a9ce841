package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"opex/internal/core"
	"opex/internal/importer"
	"opex/internal/storage"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeServiceError maps domain errors onto HTTP statuses: input-shape
// problems are the client's fault, unknown IDs are 404, everything else is a
// server error with the detail kept in the log.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var unknownField *importer.UnknownFieldError
	switch {
	case errors.As(err, &unknownField):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, core.ErrUnreadableFile),
		errors.Is(err, core.ErrNoHeaderRow),
		errors.Is(err, core.ErrMissingUID):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, storage.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	default:
		slog.ErrorContext(r.Context(), "Request failed", "error", err, "url", r.URL.Path)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
