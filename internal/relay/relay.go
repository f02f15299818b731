// Package relay drains the transactional outbox into NATS.
//
// The engine writes exactly one outbox row per committed journal transaction
// in the same database transaction. The relay polls the table, publishes each
// claimed event, and deletes the rows only after the broker accepted them.
// Delivery is at-least-once; consumers deduplicate on event_id.
package relay

import (
	"context"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/ledgercore/walletd/internal/ledger"
)

// Drainer is the outbox claim-publish-delete cycle the relay drives.
// Implemented by postgres.OutboxRepository.
type Drainer interface {
	Drain(ctx context.Context, batchSize int, publish func(ctx context.Context, ev ledger.OutboxEvent) error) (int, error)
}

// Publisher sends one event to the broker. Implemented by NATSPublisher.
type Publisher interface {
	Publish(ctx context.Context, ev ledger.OutboxEvent) error
}

// Relay polls the outbox on an interval and forwards batches.
type Relay struct {
	drainer   Drainer
	publisher Publisher
	interval  time.Duration
	batchSize int
	log       *slog.Logger
}

// New creates the relay.
func New(drainer Drainer, publisher Publisher, interval time.Duration, batchSize int, log *slog.Logger) *Relay {
	if log == nil {
		log = slog.Default()
	}
	if interval <= 0 {
		interval = time.Second
	}
	if batchSize <= 0 {
		batchSize = 100
	}
	return &Relay{
		drainer:   drainer,
		publisher: publisher,
		interval:  interval,
		batchSize: batchSize,
		log:       log,
	}
}

// Run polls until the context is canceled. A failed cycle is logged and
// retried on the next tick; the claimed rows roll back and stay pending.
func (r *Relay) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := r.RunOnce(ctx); err != nil {
				r.log.ErrorContext(ctx, "outbox drain failed", slog.String("error", err.Error()))
			}
		}
	}
}

// RunOnce drains batches until the outbox is empty.
func (r *Relay) RunOnce(ctx context.Context) error {
	for {
		n, err := r.drainer.Drain(ctx, r.batchSize, r.publisher.Publish)
		if err != nil {
			return err
		}
		if n > 0 {
			r.log.InfoContext(ctx, "outbox events published", slog.Int("count", n))
		}
		if n < r.batchSize {
			return nil
		}
	}
}

// NATSPublisher publishes outbox events to NATS subjects named after the
// event type ("wallet.transfer.committed").
type NATSPublisher struct {
	conn *nats.Conn
}

// NewNATSPublisher connects to the broker.
func NewNATSPublisher(url string) (*NATSPublisher, error) {
	conn, err := nats.Connect(url,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, err
	}
	return &NATSPublisher{conn: conn}, nil
}

// Publish implements Publisher. The event id travels in a header so
// consumers can deduplicate redeliveries.
func (p *NATSPublisher) Publish(_ context.Context, ev ledger.OutboxEvent) error {
	msg := nats.NewMsg(ev.EventType)
	msg.Data = ev.Payload
	msg.Header.Set("Event-Id", ev.EventID.String())
	msg.Header.Set("Transaction-Id", ev.TransactionID.String())
	return p.conn.PublishMsg(msg)
}

// Close flushes and closes the broker connection.
func (p *NATSPublisher) Close() {
	_ = p.conn.Flush()
	p.conn.Close()
}
