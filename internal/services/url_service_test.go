package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/snaplink/snaplink/internal/idgen"
	"github.com/snaplink/snaplink/internal/models"
	"github.com/snaplink/snaplink/internal/repository"
)

// stubGenerator returns scripted codes, or errors.
type stubGenerator struct {
	mu    sync.Mutex
	codes []string
	next  int
	err   error
}

func (g *stubGenerator) NextShortCode() (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.err != nil {
		return "", g.err
	}
	if g.next >= len(g.codes) {
		return "", errors.New("stub generator exhausted")
	}
	code := g.codes[g.next]
	g.next++
	return code, nil
}

// scriptedRepo lets tests force specific Insert outcomes while delegating
// lookups to a backing memory repository.
type scriptedRepo struct {
	*repository.MemoryURLRepository
	insertErrs []error
	calls      int
}

func (r *scriptedRepo) Insert(ctx context.Context, mapping *models.URLMapping) error {
	if r.calls < len(r.insertErrs) {
		err := r.insertErrs[r.calls]
		r.calls++
		if err != nil {
			return err
		}
	}
	return r.MemoryURLRepository.Insert(ctx, mapping)
}

func newTestService(t *testing.T, repo repository.URLRepository) *ShortenerServiceImpl {
	t.Helper()
	gen, err := idgen.NewShortCodeGenerator(1)
	require.NoError(t, err)
	return NewShortenerService(repo, gen, "http://sho.rt", nil)
}

func TestShortenerService_Shorten(t *testing.T) {
	ctx := context.Background()

	t.Run("creates a mapping for a fresh URL", func(t *testing.T) {
		repo := repository.NewMemoryURLRepository()
		svc := newTestService(t, repo)

		result, err := svc.Shorten(ctx, "https://example.com/very/long/path")
		require.NoError(t, err)
		assert.NotEmpty(t, result.ShortCode)
		assert.Equal(t, "http://sho.rt/"+result.ShortCode, result.ShortURL)
		assert.Equal(t, "https://example.com/very/long/path", result.NormalizedURL)

		stored, err := repo.FindByShortCode(ctx, result.ShortCode)
		require.NoError(t, err)
		assert.Equal(t, "https://example.com/very/long/path", stored.NormalizedURL)
	})

	t.Run("idempotent across case and whitespace variants", func(t *testing.T) {
		repo := repository.NewMemoryURLRepository()
		svc := newTestService(t, repo)

		first, err := svc.Shorten(ctx, "  HTTPS://EXAMPLE.COM/p  ")
		require.NoError(t, err)
		second, err := svc.Shorten(ctx, "https://example.com/p")
		require.NoError(t, err)

		assert.Equal(t, first.ShortCode, second.ShortCode)
		assert.Equal(t, 1, repo.Len())

		stored, err := repo.FindByNormalizedURL(ctx, "https://example.com/p")
		require.NoError(t, err)
		assert.Equal(t, first.ShortCode, stored.ShortCode)
	})

	t.Run("distinct URLs get distinct codes", func(t *testing.T) {
		repo := repository.NewMemoryURLRepository()
		svc := newTestService(t, repo)

		a, err := svc.Shorten(ctx, "https://a.example")
		require.NoError(t, err)
		b, err := svc.Shorten(ctx, "https://b.example")
		require.NoError(t, err)

		assert.NotEqual(t, a.ShortCode, b.ShortCode)
		assert.Equal(t, 2, repo.Len())
	})

	t.Run("rejects empty and whitespace-only input", func(t *testing.T) {
		svc := newTestService(t, repository.NewMemoryURLRepository())

		_, err := svc.Shorten(ctx, "")
		assert.ErrorIs(t, err, models.ErrEmptyURL)

		_, err = svc.Shorten(ctx, "   ")
		assert.ErrorIs(t, err, models.ErrEmptyURL)
	})

	t.Run("rejects invalid URLs", func(t *testing.T) {
		repo := repository.NewMemoryURLRepository()
		svc := newTestService(t, repo)

		_, err := svc.Shorten(ctx, "not-a-url")
		assert.ErrorIs(t, err, models.ErrInvalidURL)

		_, err = svc.Shorten(ctx, "ftp://example.com/file")
		assert.ErrorIs(t, err, models.ErrInvalidURL)

		assert.Equal(t, 0, repo.Len())
	})

	t.Run("retries on short code collision", func(t *testing.T) {
		repo := &scriptedRepo{
			MemoryURLRepository: repository.NewMemoryURLRepository(),
			insertErrs: []error{
				models.ErrDuplicateShortCode,
				models.ErrDuplicateShortCode,
				nil,
			},
		}
		gen := &stubGenerator{codes: []string{"taken1", "taken2", "fresh3"}}
		svc := NewShortenerService(repo, gen, "http://sho.rt", nil)

		result, err := svc.Shorten(ctx, "https://example.com/p")
		require.NoError(t, err)
		assert.Equal(t, "fresh3", result.ShortCode)
	})

	t.Run("gives up after bounded short code collisions", func(t *testing.T) {
		repo := &scriptedRepo{
			MemoryURLRepository: repository.NewMemoryURLRepository(),
			insertErrs: []error{
				models.ErrDuplicateShortCode,
				models.ErrDuplicateShortCode,
				models.ErrDuplicateShortCode,
			},
		}
		gen := &stubGenerator{codes: []string{"a", "b", "c", "d"}}
		svc := NewShortenerService(repo, gen, "http://sho.rt", nil)

		_, err := svc.Shorten(ctx, "https://example.com/p")
		assert.ErrorIs(t, err, models.ErrInternal)
	})

	t.Run("duplicate URL resolves to the existing mapping", func(t *testing.T) {
		mem := repository.NewMemoryURLRepository()
		require.NoError(t, mem.Insert(ctx, &models.URLMapping{
			ShortCode:     "winner",
			NormalizedURL: "https://example.com/p",
		}))

		repo := &scriptedRepo{
			MemoryURLRepository: mem,
			insertErrs:          []error{models.ErrDuplicateURL},
		}
		gen := &stubGenerator{codes: []string{"loser1"}}
		svc := NewShortenerService(repo, gen, "http://sho.rt", nil)

		result, err := svc.Shorten(ctx, "https://example.com/p")
		require.NoError(t, err)
		assert.Equal(t, "winner", result.ShortCode)
		assert.Equal(t, "http://sho.rt/winner", result.ShortURL)
	})

	t.Run("duplicate URL without a visible row is an internal error", func(t *testing.T) {
		repo := &scriptedRepo{
			MemoryURLRepository: repository.NewMemoryURLRepository(),
			insertErrs:          []error{models.ErrDuplicateURL},
		}
		gen := &stubGenerator{codes: []string{"ghost1"}}
		svc := NewShortenerService(repo, gen, "http://sho.rt", nil)

		_, err := svc.Shorten(ctx, "https://example.com/p")
		assert.ErrorIs(t, err, models.ErrInternal)
	})

	t.Run("storage failures surface unchanged", func(t *testing.T) {
		repo := &scriptedRepo{
			MemoryURLRepository: repository.NewMemoryURLRepository(),
			insertErrs:          []error{models.ErrStorageUnavailable},
		}
		gen := &stubGenerator{codes: []string{"abc123"}}
		svc := NewShortenerService(repo, gen, "http://sho.rt", nil)

		_, err := svc.Shorten(ctx, "https://example.com/p")
		assert.ErrorIs(t, err, models.ErrStorageUnavailable)
	})

	t.Run("generator failures surface unchanged", func(t *testing.T) {
		gen := &stubGenerator{err: idgen.ErrClockMovedBackwards}
		svc := NewShortenerService(repository.NewMemoryURLRepository(), gen, "http://sho.rt", nil)

		_, err := svc.Shorten(ctx, "https://example.com/p")
		assert.ErrorIs(t, err, idgen.ErrClockMovedBackwards)
	})

	t.Run("trailing slash on base URL is trimmed", func(t *testing.T) {
		gen, err := idgen.NewShortCodeGenerator(1)
		require.NoError(t, err)
		svc := NewShortenerService(repository.NewMemoryURLRepository(), gen, "http://sho.rt/", nil)

		result, err := svc.Shorten(ctx, "https://example.com/p")
		require.NoError(t, err)
		assert.Equal(t, "http://sho.rt/"+result.ShortCode, result.ShortURL)
	})
}

func TestShortenerService_ConcurrentShorten(t *testing.T) {
	// All concurrent calls for the same URL must return the winner's code
	// and leave exactly one row behind.
	ctx := context.Background()
	repo := repository.NewMemoryURLRepository()
	svc := newTestService(t, repo)

	const callers = 50
	var wg sync.WaitGroup
	codes := make([]string, callers)
	errs := make([]error, callers)

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			result, err := svc.Shorten(ctx, "https://example.com")
			if err != nil {
				errs[i] = err
				return
			}
			codes[i] = result.ShortCode
		}(i)
	}
	wg.Wait()

	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, codes[0], codes[i], "all callers must observe the same code")
	}
	assert.Equal(t, 1, repo.Len())
}

func TestShortenerService_Resolve(t *testing.T) {
	ctx := context.Background()

	t.Run("round trip through shorten", func(t *testing.T) {
		svc := newTestService(t, repository.NewMemoryURLRepository())

		result, err := svc.Shorten(ctx, "https://example.com/very/long/path")
		require.NoError(t, err)

		mapping, err := svc.Resolve(ctx, result.ShortCode)
		require.NoError(t, err)
		assert.Equal(t, "https://example.com/very/long/path", mapping.NormalizedURL)
	})

	t.Run("unknown code", func(t *testing.T) {
		svc := newTestService(t, repository.NewMemoryURLRepository())

		_, err := svc.Resolve(ctx, "does-not-exist")
		assert.ErrorIs(t, err, models.ErrURLNotFound)
	})

	t.Run("empty code", func(t *testing.T) {
		svc := newTestService(t, repository.NewMemoryURLRepository())

		_, err := svc.Resolve(ctx, "")
		assert.ErrorIs(t, err, models.ErrEmptyShortCode)
	})

	t.Run("codes are case-sensitive", func(t *testing.T) {
		repo := repository.NewMemoryURLRepository()
		require.NoError(t, repo.Insert(ctx, &models.URLMapping{
			ShortCode:     "Ab",
			NormalizedURL: "https://example.com/p",
		}))
		svc := newTestService(t, repo)

		_, err := svc.Resolve(ctx, "aB")
		assert.ErrorIs(t, err, models.ErrURLNotFound)

		mapping, err := svc.Resolve(ctx, "Ab")
		require.NoError(t, err)
		assert.Equal(t, "https://example.com/p", mapping.NormalizedURL)
	})
}
