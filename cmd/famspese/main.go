package main

import (
	"context"
	"os"
	"time"

	"famspese/internal/auth"
	"famspese/internal/backend"
	"famspese/internal/cli"
	apphttp "famspese/internal/http"
	applog "famspese/internal/log"
	"famspese/internal/metrics"
	"famspese/internal/services"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig(false)
	logger := cli.SetupLogger(cfg, applog.ComponentHTTP)

	store, err := cli.InitStore(context.Background(), logger, cfg)
	if err != nil {
		logger.Error("Failed to initialize store", "error", err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	defer store.Close()

	m := metrics.New()

	integrations, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid integration configuration", "error", err)
		os.Exit(1)
	}

	// Events are optional: without AMQP the worker still catches up through
	// its periodic passes.
	var publisher services.EventPublisher
	client, err := backend.NewFactory(logger).CreateEvents(integrations)
	if err != nil {
		logger.Warn("Continuing without events", "error", err)
	} else if client != nil {
		defer client.Close()
		publisher = client
	}

	plans := services.NewPlanService(store)
	srv := apphttp.NewServer(apphttp.Options{
		Addr:                 ":" + cfg.Port,
		CORSAllowedOrigins:   cfg.CORSAllowedOrigins,
		RateLimitPerMinute:   cfg.RateLimitPerMinute,
		SubcategoryCacheSize: cfg.SubcategoryCacheSize,
		SubcategoryCacheTTL:  cfg.SubcategoryCacheTTL,
	}, apphttp.Deps{
		Store:    store,
		Plans:    plans,
		Expenses: services.NewExpenseService(store, plans, publisher, m),
		Accounts: auth.NewPasswordAuthenticator(store),
		Tokens:   auth.NewJWTManager(cfg.JWTSecret, cfg.JWTTTL),
		Metrics:  m,
		Logger:   logger,
	})

	// Configure server timeouts and limits
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
	})

	logger.Info("Starting famspese server", "port", cfg.Port, "backend", cfg.DataBackend)
	if err := srv.ListenAndServe(); err != nil {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	<-ctx.Done()
	<-done
	logger.Info("Server stopped gracefully")
}
