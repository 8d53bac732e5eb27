package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/snaplink/snaplink/internal/idgen"
	"github.com/snaplink/snaplink/internal/models"
)

// ErrorResponse is the envelope every non-redirect error body uses.
// Message never carries stack traces, only a human-readable detail.
type ErrorResponse struct {
	Error     string `json:"error"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

// Error category labels.
const (
	categoryInvalidURL  = "invalid_url"
	categoryInvalidBody = "invalid_request"
	categoryNotFound    = "not_found"
	categoryStorage     = "storage_unavailable"
	categoryInternal    = "internal_error"
)

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes the error envelope.
func writeError(w http.ResponseWriter, status int, category, message string) {
	writeJSON(w, status, ErrorResponse{
		Error:     category,
		Message:   message,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// mapServiceError translates the service error taxonomy to an HTTP status
// and envelope. The boundary is the only place this translation happens.
func mapServiceError(err error) (int, string, string) {
	switch {
	case errors.Is(err, models.ErrEmptyURL),
		errors.Is(err, models.ErrInvalidURL):
		return http.StatusBadRequest, categoryInvalidURL, err.Error()
	case errors.Is(err, models.ErrEmptyShortCode),
		errors.Is(err, models.ErrURLNotFound):
		return http.StatusNotFound, categoryNotFound, "short code not found"
	case errors.Is(err, models.ErrStorageUnavailable):
		return http.StatusInternalServerError, categoryStorage, "storage unavailable"
	case errors.Is(err, idgen.ErrClockMovedBackwards):
		return http.StatusInternalServerError, categoryInternal, "id generation unavailable"
	default:
		return http.StatusInternalServerError, categoryInternal, "internal server error"
	}
}
