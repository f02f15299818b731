// walletd schema migrator.
//
// Applies the embedded migrations and exits. Useful in deploy pipelines that
// migrate before rolling the API servers; the API also migrates at startup,
// and both paths are idempotent.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/ledgercore/walletd/internal/config"
	"github.com/ledgercore/walletd/internal/infrastructure/persistence/postgres"
	"github.com/ledgercore/walletd/internal/pkg/logger"
	"github.com/ledgercore/walletd/migrations"
)

func main() {
	verifyOnly := flag.Bool("verify", false, "check that every migration is applied without applying anything")
	flag.Parse()

	if err := run(*verifyOnly); err != nil {
		slog.Error("migrate failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(verifyOnly bool) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log := logger.Setup(&logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer pool.Close()

	migrator := postgres.NewMigrator(pool, migrations.Files, log)

	if verifyOnly {
		if err := migrator.Verify(ctx); err != nil {
			return fmt.Errorf("schema out of date: %w", err)
		}
		log.Info("schema up to date")
		return nil
	}

	if err := migrator.Apply(ctx); err != nil {
		return err
	}
	log.Info("migrations applied")
	return nil
}
