package transport

import (
	"encoding/json"
	"errors"
	"net/http"

	"tapdetail-backend/internal/apperr"
)

type ErrorResponse struct {
	Error     string            `json:"error"`
	Details   map[string]string `json:"details,omitempty"`
	Retryable bool              `json:"retryable,omitempty"`
}

func WriteJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func WriteError(w http.ResponseWriter, status int, message string, details map[string]string) {
	WriteJSON(w, status, ErrorResponse{
		Error:   message,
		Details: details,
	})
}

// WriteAppError maps an apperr kind to its status. Errors without a kind are
// reported as a bare 500 so internals never leak into the body.
func WriteAppError(w http.ResponseWriter, err error) {
	var e *apperr.Error
	if !errors.As(err, &e) {
		WriteError(w, http.StatusInternalServerError, "internal error", nil)
		return
	}
	WriteJSON(w, apperr.HTTPStatus(e.Kind), ErrorResponse{
		Error:     e.Message,
		Details:   e.Details,
		Retryable: e.Kind == apperr.StorageFailure,
	})
}
