package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/snaplink/snaplink/internal/services"
	"github.com/snaplink/snaplink/pkg/logger"
)

// ShortenRequest represents the request body for creating a short URL.
type ShortenRequest struct {
	URL string `json:"url"`
}

// ShortenResponse represents a successfully created (or re-observed) short URL.
type ShortenResponse struct {
	ShortCode string `json:"shortCode"`
	ShortURL  string `json:"shortUrl"`
}

// URLHandler handles the shorten endpoint.
type URLHandler struct {
	service services.ShortenerService
	log     *logger.Logger
}

// NewURLHandler creates a new URLHandler.
func NewURLHandler(svc services.ShortenerService, log *logger.Logger) *URLHandler {
	if log == nil {
		log = logger.Discard()
	}
	return &URLHandler{service: svc, log: log}
}

// Shorten handles POST /api/shorten requests. Repeated requests with the
// same normalized URL return the same short code with a 200.
func (h *URLHandler) Shorten(w http.ResponseWriter, r *http.Request) {
	var req ShortenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, categoryInvalidBody, "invalid request body")
		return
	}

	result, err := h.service.Shorten(r.Context(), req.URL)
	if err != nil {
		status, category, message := mapServiceError(err)
		if status >= http.StatusInternalServerError {
			h.log.FromContext(r.Context()).Error("shorten failed", "error", err.Error())
		} else {
			h.log.FromContext(r.Context()).Warn("shorten rejected", "error", err.Error())
		}
		writeError(w, status, category, message)
		return
	}

	writeJSON(w, http.StatusOK, ShortenResponse{
		ShortCode: result.ShortCode,
		ShortURL:  result.ShortURL,
	})
}
