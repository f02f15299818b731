// walletd outbox relay.
//
// Polls the transactional outbox and publishes committed ledger events to
// NATS. Runs separately from the API so event delivery lag never slows the
// write path. Delivery is at-least-once; consumers deduplicate on event_id.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/ledgercore/walletd/internal/config"
	"github.com/ledgercore/walletd/internal/infrastructure/persistence/postgres"
	"github.com/ledgercore/walletd/internal/pkg/logger"
	"github.com/ledgercore/walletd/internal/relay"
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
	log.Info("starting outbox relay",
		slog.String("nats_url", cfg.Relay.NATSURL),
		slog.Duration("poll_interval", cfg.Relay.PollInterval),
		slog.Int("batch_size", cfg.Relay.BatchSize))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := postgres.NewPool(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer pool.Close()

	publisher, err := relay.NewNATSPublisher(cfg.Relay.NATSURL)
	if err != nil {
		return err
	}
	defer publisher.Close()

	r := relay.New(
		postgres.NewOutboxRepository(pool),
		publisher,
		cfg.Relay.PollInterval,
		cfg.Relay.BatchSize,
		log,
	)

	if err := r.Run(ctx); err != nil && ctx.Err() == nil {
		return err
	}

	log.Info("relay stopped")
	return nil
}
