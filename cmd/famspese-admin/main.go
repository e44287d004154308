package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"famspese/internal/cli"
	applog "famspese/internal/log"
	"famspese/internal/metrics"
	"famspese/internal/services"
	"famspese/internal/storage"
)

const usage = `usage: famspese-admin <command> [flags]

commands:
  reset                          delete all payments, planned expenses and plans
  seed-categories                install the category taxonomy (CATEGORY_SEED_FILE or defaults)
  generate-installments [-dry-run]  create missing installments of recurring expenses
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig(true)
	logger := cli.SetupLogger(cfg, applog.ComponentAdmin)

	ctx := context.Background()
	store, err := cli.InitStore(ctx, logger, cfg)
	if err != nil {
		logger.Error("Failed to initialize store", "error", err, "backend", cfg.DataBackend)
		os.Exit(1)
	}

	if err := run(ctx, logger, store, cfg.CategorySeedFile, os.Args[1], os.Args[2:]); err != nil {
		logger.Error("Command failed", "command", os.Args[1], "error", err)
		store.Close()
		os.Exit(1)
	}
	store.Close()
}

func run(ctx context.Context, logger *applog.Logger, store storage.Store, seedFile, command string, args []string) error {
	switch command {
	case "reset":
		if err := store.Reset(ctx); err != nil {
			return err
		}
		logger.Info("Data reset complete")
		return nil

	case "seed-categories":
		seed, err := storage.LoadCategorySeed(seedFile)
		if err != nil {
			return err
		}
		n, err := store.SeedCategories(ctx, seed)
		if err != nil {
			return err
		}
		logger.Info("Categories seeded", "created", n)
		return nil

	case "generate-installments":
		fs := flag.NewFlagSet(command, flag.ContinueOnError)
		dryRun := fs.Bool("dry-run", false, "report what would be created without writing")
		if err := fs.Parse(args); err != nil {
			return err
		}
		n, err := services.NewInstallmentProcessor(store, metrics.New()).ProcessAll(ctx, *dryRun)
		logger.Info("Installment generation finished", "created", n, "dry_run", *dryRun)
		return err
	}
	return fmt.Errorf("unknown command %q\n%s", command, usage)
}
