package repository

import (
	"context"
	"sync"
	"time"

	"github.com/snaplink/snaplink/internal/models"
)

// Ensure both implementations satisfy the contract.
var (
	_ URLRepository = (*PostgresURLRepository)(nil)
	_ URLRepository = (*MemoryURLRepository)(nil)
)

// MemoryURLRepository is an in-memory URLRepository. It backs tests and
// the storage-less dev mode, and mirrors the uniqueness semantics of the
// urls table: one mutex makes each operation atomic, both keys are unique.
type MemoryURLRepository struct {
	mu     sync.RWMutex
	byCode map[string]*models.URLMapping
	byURL  map[string]*models.URLMapping
}

// NewMemoryURLRepository creates an empty in-memory repository.
func NewMemoryURLRepository() *MemoryURLRepository {
	return &MemoryURLRepository{
		byCode: make(map[string]*models.URLMapping),
		byURL:  make(map[string]*models.URLMapping),
	}
}

// Insert stores a new mapping, enforcing both uniqueness constraints.
func (r *MemoryURLRepository) Insert(ctx context.Context, mapping *models.URLMapping) error {
	if err := mapping.Validate(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byCode[mapping.ShortCode]; exists {
		return models.ErrDuplicateShortCode
	}
	if _, exists := r.byURL[mapping.NormalizedURL]; exists {
		return models.ErrDuplicateURL
	}

	stored := &models.URLMapping{
		ShortCode:     mapping.ShortCode,
		NormalizedURL: mapping.NormalizedURL,
		CreatedAt:     time.Now().UTC(),
	}
	r.byCode[stored.ShortCode] = stored
	r.byURL[stored.NormalizedURL] = stored
	mapping.CreatedAt = stored.CreatedAt

	return nil
}

// FindByShortCode retrieves a mapping by its short code.
func (r *MemoryURLRepository) FindByShortCode(ctx context.Context, shortCode string) (*models.URLMapping, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	mapping, ok := r.byCode[shortCode]
	if !ok {
		return nil, models.ErrURLNotFound
	}
	return copyMapping(mapping), nil
}

// FindByNormalizedURL retrieves a mapping by its normalized URL.
func (r *MemoryURLRepository) FindByNormalizedURL(ctx context.Context, normalizedURL string) (*models.URLMapping, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	mapping, ok := r.byURL[normalizedURL]
	if !ok {
		return nil, models.ErrURLNotFound
	}
	return copyMapping(mapping), nil
}

// HealthCheck always succeeds for the in-memory repository.
func (r *MemoryURLRepository) HealthCheck(ctx context.Context) error {
	return ctx.Err()
}

// Len returns the number of stored mappings.
func (r *MemoryURLRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byCode)
}

func copyMapping(m *models.URLMapping) *models.URLMapping {
	cp := *m
	return &cp
}
