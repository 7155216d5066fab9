package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// respondJSON writes v as a JSON body with the given status.
func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode JSON response", "error", err)
	}
}

type errorBody struct {
	Error string `json:"error"`
}

// respondError writes a JSON error body with the given status.
func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, errorBody{Error: msg})
}

// methodNotAllowed writes a 405 with the Allow header set.
func methodNotAllowed(w http.ResponseWriter, allowed string) {
	w.Header().Set("Allow", allowed)
	respondError(w, http.StatusMethodNotAllowed, "method not allowed")
}
