// Package cli holds the start-up steps shared by cmd/famspese,
// cmd/famspese-worker and cmd/famspese-admin.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"famspese/internal/config"
	applog "famspese/internal/log"
	"famspese/internal/storage"
	"famspese/internal/storage/memory"
)

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration and validates it, exiting the
// process on failure. background selects the worker/admin rules, which do
// not require session settings.
func LoadAndValidateConfig(background bool) *config.Config {
	cfg := config.Load()
	validate := cfg.Validate
	if background {
		validate = cfg.ValidateBackground
	}
	if err := validate(); err != nil {
		slog.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}
	return cfg
}

// SetupLogger builds the logger described by LOG_LEVEL and LOG_FORMAT and
// installs it as the process default.
func SetupLogger(cfg *config.Config, component string) *applog.Logger {
	logger := applog.New(applog.Config{
		Level:     applog.ParseLevel(cfg.LogLevel),
		Format:    cfg.LogFormat,
		Component: component,
		Output:    os.Stdout,
	})
	applog.SetDefault(logger)
	return logger
}

// InitStore opens the configured backend. A SQLite database without
// categories is seeded with the default taxonomy.
func InitStore(ctx context.Context, logger *applog.Logger, cfg *config.Config) (storage.Store, error) {
	seed, err := storage.LoadCategorySeed(cfg.CategorySeedFile)
	if err != nil {
		return nil, err
	}

	switch cfg.DataBackend {
	case "memory":
		logger.Info("Initialized memory backend",
			"backend", cfg.DataBackend,
			"category_seed", cfg.CategorySeedFile)
		return memory.NewWithCategories(seed), nil
	case "sqlite":
		repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite %s: %w", cfg.SQLiteDBPath, err)
		}
		cats, err := repo.ListCategories(ctx)
		if err != nil {
			repo.Close()
			return nil, fmt.Errorf("read categories: %w", err)
		}
		if len(cats) == 0 {
			n, err := repo.SeedCategories(ctx, seed)
			if err != nil {
				repo.Close()
				return nil, fmt.Errorf("seed categories: %w", err)
			}
			logger.Info("Seeded categories", "created", n, "category_seed", cfg.CategorySeedFile)
		}
		logger.Info("Initialized SQLite backend", "backend", cfg.DataBackend, "path", cfg.SQLiteDBPath)
		return repo, nil
	}
	return nil, fmt.Errorf("unknown data backend %q", cfg.DataBackend)
}

// GracefulShutdown returns a context cancelled on SIGINT or SIGTERM. After
// cancellation cleanup runs with a context bounded by timeout, then done is
// closed.
func GracefulShutdown(logger *applog.Logger, timeout time.Duration, cleanup func(context.Context)) (context.Context, <-chan struct{}) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigChan)

		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())
		cancel()
		shutdown(logger, timeout, cleanup)
		close(done)
	}()

	return ctx, done
}

func shutdown(logger *applog.Logger, timeout time.Duration, cleanup func(context.Context)) {
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
	defer shutdownCancel()

	if cleanup != nil {
		cleanup(shutdownCtx)
	}
	if shutdownCtx.Err() != nil {
		logger.Warn("Shutdown timeout reached", "timeout", timeout)
		return
	}
	logger.Info("Shutdown complete")
}
