package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sagarc03/s3fs"
)

// ErrorResponse represents a JSON error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// WriteError writes a JSON error response
func WriteError(w http.ResponseWriter, code int, errCode, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(ErrorResponse{
		Error:   errCode,
		Message: message,
	}); err != nil {
		slog.Error("failed to encode error response", "error", err)
	}
}

// HandleError writes appropriate error response based on error kind
func HandleError(w http.ResponseWriter, err error) {
	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		WriteError(w, http.StatusRequestEntityTooLarge, "entity_too_large", "Request body too large")
		return
	}

	kind := s3fs.KindOf(err)

	switch kind {
	case s3fs.KindNotFound:
		WriteError(w, http.StatusNotFound, kind.String(), "Object not found")
	case s3fs.KindKeyExists:
		WriteError(w, http.StatusConflict, kind.String(), "Object already exists, use If-Match to update it")
	case s3fs.KindStale:
		WriteError(w, http.StatusPreconditionFailed, "precondition_failed", "Object was modified or removed, reload it and retry")
	case s3fs.KindInvalidInput:
		WriteError(w, http.StatusBadRequest, kind.String(), "Invalid bucket, key or prefix")
	case s3fs.KindUnsupported:
		WriteError(w, http.StatusNotImplemented, kind.String(), "Operation not supported")
	default:
		slog.Error("request error", "error", err)
		WriteError(w, http.StatusInternalServerError, "internal_error", "Internal server error")
	}
}

// WriteJSON writes a JSON response
func WriteJSON(w http.ResponseWriter, code int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	return json.NewEncoder(w).Encode(data)
}
