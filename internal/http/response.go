package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"balansim/internal/core"
	"balansim/internal/log"
)

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}

func writeErrorStatus(w http.ResponseWriter, status int, msg, errType string) {
	writeJSON(w, status, errorBody{Error: errorDetail{Message: msg, Type: errType}})
}

// writeError maps the error taxonomy to a status. Unclassified errors are
// logged and hidden behind a generic message.
func writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	switch {
	case errors.Is(err, core.ErrValidation):
		writeErrorStatus(w, http.StatusUnprocessableEntity, err.Error(), log.ErrorTypeValidation)
	case errors.Is(err, core.ErrNotRemovable):
		writeErrorStatus(w, http.StatusConflict, err.Error(), log.ErrorTypeConflict)
	default:
		log.LogError(r.Context(), log.FromContext(r.Context()), "Request failed", err, op, nil)
		writeErrorStatus(w, http.StatusInternalServerError, "internal server error", log.ErrorTypeInternal)
	}
}

// persistenceWarning returns the message to attach to a successful response
// when the mutation applied but could not be saved. ok is false for any
// other error.
func persistenceWarning(err error) (warning string, ok bool) {
	if err == nil {
		return "", true
	}
	if errors.Is(err, core.ErrPersistence) {
		return "change applied but could not be saved: " + err.Error(), true
	}
	return "", false
}
