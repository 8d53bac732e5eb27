// Package repository handles data persistence.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/snaplink/snaplink/internal/database"
	"github.com/snaplink/snaplink/internal/metrics"
	"github.com/snaplink/snaplink/internal/models"
)

// Constraint names from the urls migration. The insert path relies on
// them to tell a short-code collision from an idempotent duplicate URL.
const (
	shortCodePKConstraint    = "urls_pkey"
	originalURLKeyConstraint = "urls_original_url_key"
)

// pgUniqueViolation is the PostgreSQL error code for unique-constraint violations.
const pgUniqueViolation = "23505"

// URLRepository defines the persistence contract for URL mappings.
// Every operation runs in its own atomic scope; callers never compose
// multi-operation transactions.
type URLRepository interface {
	// Insert atomically stores a new mapping. It fails with
	// models.ErrDuplicateURL when the normalized URL is already present
	// and models.ErrDuplicateShortCode on a short-code collision.
	Insert(ctx context.Context, mapping *models.URLMapping) error

	// FindByShortCode retrieves a mapping by its short code (case-sensitive
	// point lookup). Returns models.ErrURLNotFound when absent.
	FindByShortCode(ctx context.Context, shortCode string) (*models.URLMapping, error)

	// FindByNormalizedURL retrieves a mapping by its already-normalized URL.
	// Returns models.ErrURLNotFound when absent.
	FindByNormalizedURL(ctx context.Context, normalizedURL string) (*models.URLMapping, error)

	// HealthCheck verifies the repository is reachable.
	HealthCheck(ctx context.Context) error
}

// PostgresURLRepository implements URLRepository using PostgreSQL.
type PostgresURLRepository struct {
	pool *database.Pool
}

// NewPostgresURLRepository creates a new PostgreSQL-backed URL repository.
func NewPostgresURLRepository(pool *database.Pool) *PostgresURLRepository {
	return &PostgresURLRepository{pool: pool}
}

// Insert stores a new mapping. Atomicity is the single INSERT; the unique
// constraint on original_url serializes concurrent writers of the same URL.
func (r *PostgresURLRepository) Insert(ctx context.Context, mapping *models.URLMapping) error {
	if err := mapping.Validate(); err != nil {
		return err
	}

	query := `
		INSERT INTO urls (short_code, original_url)
		VALUES ($1, $2)
		RETURNING created_at
	`

	start := time.Now()
	err := r.pool.QueryRow(ctx, query, mapping.ShortCode, mapping.NormalizedURL).
		Scan(&mapping.CreatedAt)
	metrics.RecordDBQuery("insert", time.Since(start))

	if err != nil {
		if dup := duplicateError(err); dup != nil {
			return dup
		}
		return fmt.Errorf("%w: insert failed: %v", models.ErrStorageUnavailable, err)
	}

	return nil
}

// FindByShortCode retrieves a mapping by its short code.
func (r *PostgresURLRepository) FindByShortCode(ctx context.Context, shortCode string) (*models.URLMapping, error) {
	query := `
		SELECT short_code, original_url, created_at
		FROM urls
		WHERE short_code = $1
	`
	return r.findOne(ctx, "find_by_short_code", query, shortCode)
}

// FindByNormalizedURL retrieves a mapping by its normalized URL.
func (r *PostgresURLRepository) FindByNormalizedURL(ctx context.Context, normalizedURL string) (*models.URLMapping, error) {
	query := `
		SELECT short_code, original_url, created_at
		FROM urls
		WHERE original_url = $1
	`
	return r.findOne(ctx, "find_by_normalized_url", query, normalizedURL)
}

// findOne runs a single-row lookup and maps pgx.ErrNoRows to the domain error.
func (r *PostgresURLRepository) findOne(ctx context.Context, op, query string, arg string) (*models.URLMapping, error) {
	var mapping models.URLMapping

	start := time.Now()
	err := r.pool.QueryRow(ctx, query, arg).Scan(
		&mapping.ShortCode,
		&mapping.NormalizedURL,
		&mapping.CreatedAt,
	)
	metrics.RecordDBQuery(op, time.Since(start))

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrURLNotFound
		}
		return nil, fmt.Errorf("%w: %s failed: %v", models.ErrStorageUnavailable, op, err)
	}

	return &mapping, nil
}

// HealthCheck verifies the database connection is healthy.
func (r *PostgresURLRepository) HealthCheck(ctx context.Context) error {
	return r.pool.HealthCheck(ctx)
}

// duplicateError maps a unique violation to the matching domain error,
// or returns nil when err is not a unique violation.
func duplicateError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != pgUniqueViolation {
		return nil
	}
	switch pgErr.ConstraintName {
	case shortCodePKConstraint:
		return models.ErrDuplicateShortCode
	case originalURLKeyConstraint:
		return models.ErrDuplicateURL
	default:
		// Unknown unique constraint on urls; treat as the idempotency case
		return models.ErrDuplicateURL
	}
}
