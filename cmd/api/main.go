// walletd API server.
//
// Wires the ledger engine to Postgres and serves the HTTP API. Migrations are
// applied at startup; the process exits non-zero if the store or the schema
// is not usable.
package main

import (
	"context"
	"log/slog"
	"os"

	adapterhttp "github.com/ledgercore/walletd/internal/adapters/http"
	"github.com/ledgercore/walletd/internal/adapters/http/handlers"
	"github.com/ledgercore/walletd/internal/auth"
	"github.com/ledgercore/walletd/internal/config"
	"github.com/ledgercore/walletd/internal/infrastructure/persistence/postgres"
	"github.com/ledgercore/walletd/internal/ledger"
	"github.com/ledgercore/walletd/internal/observability"
	"github.com/ledgercore/walletd/internal/pkg/logger"
	"github.com/ledgercore/walletd/migrations"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log := logger.Setup(&logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	log.Info("starting walletd",
		slog.String("environment", cfg.App.Environment),
		slog.String("address", cfg.Server.Address()))

	ctx := context.Background()

	shutdownTracing, err := observability.Setup(ctx, cfg.Otel)
	if err != nil {
		return err
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			log.Error("tracing shutdown failed", slog.String("error", err.Error()))
		}
	}()

	pool, err := postgres.NewPool(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer pool.Close()

	migrator := postgres.NewMigrator(pool, migrations.Files, log)
	if err := migrator.Apply(ctx); err != nil {
		return err
	}

	systemWallet, err := cfg.Ledger.SystemWallet()
	if err != nil {
		return err
	}

	svc := ledger.NewService(
		postgres.NewSerializableRunner(pool),
		postgres.NewLedgerRepository(pool),
		systemWallet,
		log,
	)

	readiness := handlers.ReadinessCheck(func(ctx context.Context) error {
		if err := postgres.HealthCheck(ctx, pool); err != nil {
			return err
		}
		return migrator.Verify(ctx)
	})

	router := adapterhttp.NewRouter(&adapterhttp.RouterConfig{
		Logger:       log,
		Service:      svc,
		Verifier:     auth.NewVerifier(cfg.Auth),
		Readiness:    readiness,
		ServiceName:  cfg.App.Name,
		DefaultAsset: cfg.Ledger.DefaultAsset,
		Environment:  cfg.App.Environment,
		TracingOn:    cfg.Otel.Enabled,
	})

	return adapterhttp.NewServer(cfg.Server, router, log).Run()
}
