// Package models contains domain models and entities.
package models

import (
	"errors"
	"time"
)

// MaxShortCodeLength bounds stored short codes; it matches the width of
// the short_code column.
const MaxShortCodeLength = 10

// URLMapping represents a persisted short-code to URL mapping. Rows are
// immutable after insert: the core never updates or deletes them.
type URLMapping struct {
	ShortCode     string    `json:"short_code"`
	NormalizedURL string    `json:"normalized_url"`
	CreatedAt     time.Time `json:"created_at"`
}

// Error taxonomy. Each layer returns these tagged variants; the HTTP
// adapter translates them to status codes at the boundary.
var (
	ErrEmptyURL           = errors.New("url cannot be empty")
	ErrInvalidURL         = errors.New("invalid url format")
	ErrEmptyShortCode     = errors.New("short code cannot be empty")
	ErrShortCodeLength    = errors.New("short code must be between 1 and 10 characters")
	ErrURLNotFound        = errors.New("url not found")
	ErrDuplicateURL       = errors.New("normalized url already exists")
	ErrDuplicateShortCode = errors.New("short code already exists")
	ErrStorageUnavailable = errors.New("storage unavailable")
	ErrInternal           = errors.New("internal error")
)

// Validate checks the mapping before it is handed to storage.
func (m *URLMapping) Validate() error {
	if m.ShortCode == "" {
		return ErrEmptyShortCode
	}
	if len(m.ShortCode) > MaxShortCodeLength {
		return ErrShortCodeLength
	}
	if m.NormalizedURL == "" {
		return ErrEmptyURL
	}
	return nil
}
