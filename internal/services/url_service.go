// Package services contains business logic.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/snaplink/snaplink/internal/idgen"
	"github.com/snaplink/snaplink/internal/metrics"
	"github.com/snaplink/snaplink/internal/models"
	"github.com/snaplink/snaplink/internal/normalize"
	"github.com/snaplink/snaplink/internal/repository"
	"github.com/snaplink/snaplink/pkg/logger"
)

// maxShortCodeRetries bounds the regeneration loop on short-code
// collisions. Correct generator behavior makes the path unreachable.
const maxShortCodeRetries = 3

// ShortenResult represents the outcome of shortening a URL.
type ShortenResult struct {
	ShortCode     string
	ShortURL      string
	NormalizedURL string
}

// ShortenerService defines the URL shortening operations.
type ShortenerService interface {
	// Shorten maps a raw URL to its short code, creating the mapping on
	// first sight and returning the existing code on any later call with
	// an equal normalization.
	Shorten(ctx context.Context, rawURL string) (*ShortenResult, error)

	// Resolve returns the stored mapping for a short code.
	Resolve(ctx context.Context, shortCode string) (*models.URLMapping, error)
}

// ShortenerServiceImpl implements ShortenerService. Collaborators are
// passed in explicitly so tests can substitute fakes.
type ShortenerServiceImpl struct {
	repo      repository.URLRepository
	generator idgen.Generator
	baseURL   string
	log       *logger.Logger
}

// NewShortenerService creates a new ShortenerService instance.
func NewShortenerService(repo repository.URLRepository, gen idgen.Generator, baseURL string, log *logger.Logger) *ShortenerServiceImpl {
	if log == nil {
		log = logger.Discard()
	}
	return &ShortenerServiceImpl{
		repo:      repo,
		generator: gen,
		baseURL:   strings.TrimRight(baseURL, "/"),
		log:       log,
	}
}

// Shorten runs the try-insert / catch-duplicate / select-existing
// protocol. Mutual exclusion over concurrent calls with the same
// normalized URL is delegated to the storage uniqueness constraint: one
// caller wins the insert, the rest read the winner's row.
func (s *ShortenerServiceImpl) Shorten(ctx context.Context, rawURL string) (*ShortenResult, error) {
	if strings.TrimSpace(rawURL) == "" {
		return nil, models.ErrEmptyURL
	}

	normalized, err := normalize.Normalize(rawURL)
	if err != nil {
		return nil, err
	}

	for attempt := 0; attempt < maxShortCodeRetries; attempt++ {
		code, err := s.generator.NextShortCode()
		if err != nil {
			s.log.Error("short code generation failed", "error", err.Error())
			return nil, err
		}

		mapping := &models.URLMapping{
			ShortCode:     code,
			NormalizedURL: normalized,
		}

		err = s.repo.Insert(ctx, mapping)
		switch {
		case err == nil:
			metrics.RecordURLCreated()
			return s.result(mapping.ShortCode, normalized), nil

		case errors.Is(err, models.ErrDuplicateURL):
			// Idempotency branch: another call (possibly concurrent) owns
			// this URL. The select runs as its own atomic operation, never
			// inside the failed insert's scope.
			metrics.RecordShortenConflict()
			return s.resolveExisting(ctx, normalized)

		case errors.Is(err, models.ErrDuplicateShortCode):
			s.log.Warn("short code collision, regenerating",
				"short_code", code, "attempt", attempt+1)
			continue

		default:
			return nil, err
		}
	}

	return nil, fmt.Errorf("%w: short code collisions exhausted %d attempts",
		models.ErrInternal, maxShortCodeRetries)
}

// resolveExisting loads the row owned by the insert winner.
func (s *ShortenerServiceImpl) resolveExisting(ctx context.Context, normalized string) (*ShortenResult, error) {
	existing, err := s.repo.FindByNormalizedURL(ctx, normalized)
	if err != nil {
		if errors.Is(err, models.ErrURLNotFound) {
			// The constraint reported a duplicate but no row is visible:
			// broken isolation semantics in storage.
			s.log.Error("duplicate url reported but no row visible",
				"normalized_url", urlPrefix(normalized))
			return nil, fmt.Errorf("%w: constraint violation without visible row",
				models.ErrInternal)
		}
		return nil, err
	}
	return s.result(existing.ShortCode, existing.NormalizedURL), nil
}

// Resolve returns the mapping for a short code. Codes are case-sensitive.
func (s *ShortenerServiceImpl) Resolve(ctx context.Context, shortCode string) (*models.URLMapping, error) {
	if shortCode == "" {
		return nil, models.ErrEmptyShortCode
	}
	return s.repo.FindByShortCode(ctx, shortCode)
}

func (s *ShortenerServiceImpl) result(code, normalized string) *ShortenResult {
	return &ShortenResult{
		ShortCode:     code,
		ShortURL:      fmt.Sprintf("%s/%s", s.baseURL, code),
		NormalizedURL: normalized,
	}
}

// urlPrefix truncates a URL for log context so logs never carry full
// user-supplied URLs.
func urlPrefix(u string) string {
	const max = 64
	if len(u) <= max {
		return u
	}
	return u[:max] + "..."
}
