package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"finanzas/internal/core"
	applog "finanzas/internal/log"
)

// errBadRequest marks request bodies that could not be decoded at all.
var errBadRequest = errors.New("malformed request body")

type messageResponse struct {
	Message string `json:"message"`
}

type validationResponse struct {
	Errors map[string][]string `json:"errors"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, messageResponse{Message: msg})
}

// writeError maps domain errors to status codes. Unknown errors are logged
// and reported as 500 without detail.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	if v, ok := core.IsValidation(err); ok {
		writeJSON(w, http.StatusUnprocessableEntity, validationResponse{Errors: v.Fields})
		return
	}
	switch {
	case errors.Is(err, errBadRequest):
		writeMessage(w, http.StatusBadRequest, "Malformed request body.")
	case errors.Is(err, core.ErrNotFound):
		writeMessage(w, http.StatusNotFound, "Resource not found.")
	case errors.Is(err, core.ErrUnauthorized):
		writeMessage(w, http.StatusUnauthorized, "Unauthenticated.")
	default:
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Request failed",
			applog.FieldError, err,
			applog.FieldMethod, r.Method,
			applog.FieldPath, r.URL.Path)
		writeMessage(w, http.StatusInternalServerError, "Internal server error.")
	}
}
