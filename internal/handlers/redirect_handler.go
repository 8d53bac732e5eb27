package handlers

import (
	"errors"
	"net/http"

	"github.com/snaplink/snaplink/internal/metrics"
	"github.com/snaplink/snaplink/internal/models"
	"github.com/snaplink/snaplink/internal/services"
	"github.com/snaplink/snaplink/pkg/logger"
)

// RedirectHandler handles short-code redirect requests.
type RedirectHandler struct {
	service services.ShortenerService
	log     *logger.Logger
}

// NewRedirectHandler creates a new RedirectHandler.
func NewRedirectHandler(svc services.ShortenerService, log *logger.Logger) *RedirectHandler {
	if log == nil {
		log = logger.Discard()
	}
	return &RedirectHandler{service: svc, log: log}
}

// Redirect handles GET /{code} requests. Codes are matched
// case-sensitively. Hits answer 301 so browsers may cache the mapping;
// rows are immutable, which makes the permanent status safe.
func (h *RedirectHandler) Redirect(w http.ResponseWriter, r *http.Request, shortCode string) {
	mapping, err := h.service.Resolve(r.Context(), shortCode)
	if err != nil {
		h.handleError(w, r, shortCode, err)
		return
	}

	metrics.RecordRedirect()
	w.Header().Set("Location", mapping.NormalizedURL)
	w.WriteHeader(http.StatusMovedPermanently)
}

// handleError maps resolve errors to HTTP responses.
func (h *RedirectHandler) handleError(w http.ResponseWriter, r *http.Request, shortCode string, err error) {
	switch {
	case errors.Is(err, models.ErrURLNotFound), errors.Is(err, models.ErrEmptyShortCode):
		h.log.FromContext(r.Context()).Info("unknown short code", "short_code", shortCode)
		writeError(w, http.StatusNotFound, categoryNotFound, "short code not found: "+shortCode)
	case errors.Is(err, models.ErrStorageUnavailable):
		h.log.FromContext(r.Context()).Error("redirect lookup failed", "short_code", shortCode, "error", err.Error())
		writeError(w, http.StatusInternalServerError, categoryStorage, "storage unavailable")
	default:
		h.log.FromContext(r.Context()).Error("redirect failed", "short_code", shortCode, "error", err.Error())
		writeError(w, http.StatusInternalServerError, categoryInternal, "internal server error")
	}
}
