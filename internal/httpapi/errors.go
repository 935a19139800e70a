package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/RishiAhuja/android-llama-inference/internal/backend"
	"github.com/RishiAhuja/android-llama-inference/internal/session"
	"github.com/RishiAhuja/android-llama-inference/pkg/types"
)

// statusForError maps well-known session errors to HTTP status codes.
func statusForError(err error) int {
	switch {
	case session.IsSessionNotFound(err), session.IsModelNotFound(err):
		return http.StatusNotFound
	case session.IsBusy(err):
		return http.StatusTooManyRequests
	case session.IsNotLoaded(err):
		return http.StatusConflict
	case session.IsTokenize(err), session.IsContextOverflow(err), session.IsModelLoad(err):
		return http.StatusBadRequest
	case session.IsContextAlloc(err):
		return http.StatusInsufficientStorage
	case backend.IsUnavailable(err):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// writeServiceError answers a failed service call with the mapped status.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusForError(err)
	if status == http.StatusTooManyRequests {
		IncrementBackpressure("session_busy")
	}
	writeJSONError(w, status, err.Error())
}

// writeJSONError writes a consistent JSON error payload.
func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(types.ErrorResponse{Error: msg, Code: status})
}
