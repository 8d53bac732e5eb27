// Package main is the entry point for the snaplink API server.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/snaplink/snaplink/internal/config"
	"github.com/snaplink/snaplink/internal/database"
	"github.com/snaplink/snaplink/internal/handlers"
	"github.com/snaplink/snaplink/internal/idgen"
	"github.com/snaplink/snaplink/internal/repository"
	"github.com/snaplink/snaplink/internal/server"
	"github.com/snaplink/snaplink/internal/services"
	"github.com/snaplink/snaplink/pkg/logger"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log := logger.New(os.Stdout, cfg.App.LogLevel).With("app", "snaplink")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	repo, cleanup, err := buildRepository(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer cleanup()

	generator, err := idgen.NewShortCodeGenerator(cfg.URL.InstanceID)
	if err != nil {
		return fmt.Errorf("failed to create id generator: %w", err)
	}

	svc := services.NewShortenerService(repo, generator, cfg.URL.BaseURL, log)

	srv := server.New(cfg, log)
	srv.SetURLHandler(handlers.NewURLHandler(svc, log))
	srv.SetRedirectHandler(handlers.NewRedirectHandler(svc, log))
	srv.HealthHandler().AddCheck("storage", func() bool {
		return repo.HealthCheck(context.Background()) == nil
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// buildRepository wires the PostgreSQL repository when a database is
// configured, falling back to the in-memory repository for local runs.
func buildRepository(ctx context.Context, cfg *config.Config, log *logger.Logger) (repository.URLRepository, func(), error) {
	if !cfg.DatabaseEnabled() {
		log.Warn("no database configured, using in-memory storage")
		return repository.NewMemoryURLRepository(), func() {}, nil
	}

	pool, err := database.NewPool(ctx, &cfg.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	migrator, err := database.NewMigrator(pool)
	if err != nil {
		pool.Close()
		return nil, nil, err
	}
	applied, err := migrator.Up(ctx)
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	if applied > 0 {
		log.Info("migrations applied", "count", applied)
	}

	return repository.NewPostgresURLRepository(pool), pool.Close, nil
}
