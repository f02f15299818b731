package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	domainerrors "github.com/ledgercore/walletd/internal/domain/errors"
	"github.com/ledgercore/walletd/internal/ledger"
)

// OutboxRepository is the relay-side view of the transactional outbox. The
// engine writes rows through ledger.Repository; the relay claims and deletes
// them here.
type OutboxRepository struct {
	pool *pgxpool.Pool
}

// NewOutboxRepository creates the repository.
func NewOutboxRepository(pool *pgxpool.Pool) *OutboxRepository {
	return &OutboxRepository{pool: pool}
}

// Drain claims up to batchSize pending events under FOR UPDATE SKIP LOCKED,
// publishes each, and deletes the published rows in the same transaction.
// Concurrent relay instances skip each other's claims instead of blocking. An
// error from publish rolls everything back; the claimed rows become visible
// again and are re-delivered later (at-least-once).
func (r *OutboxRepository) Drain(ctx context.Context, batchSize int, publish func(ctx context.Context, ev ledger.OutboxEvent) error) (int, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, domainerrors.Unavailable("failed to begin outbox transaction", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	events, err := claimPending(ctx, tx, batchSize)
	if err != nil {
		return 0, err
	}
	if len(events) == 0 {
		return 0, nil
	}

	published := make([]uuid.UUID, 0, len(events))
	for _, ev := range events {
		if err := publish(ctx, ev); err != nil {
			return 0, fmt.Errorf("failed to publish event %s: %w", ev.EventID, err)
		}
		published = append(published, ev.EventID)
	}

	if _, err := tx.Exec(ctx, `
		DELETE FROM outbox_events WHERE event_id = ANY($1)
	`, published); err != nil {
		return 0, fmt.Errorf("failed to delete published events: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit outbox drain: %w", err)
	}

	return len(published), nil
}

// PendingCount reports the outbox backlog. Exposed for monitoring.
func (r *OutboxRepository) PendingCount(ctx context.Context) (int64, error) {
	var count int64
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM outbox_events`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count outbox events: %w", err)
	}
	return count, nil
}

// claimPending locks a batch of pending events in commit order.
func claimPending(ctx context.Context, tx pgx.Tx, limit int) ([]ledger.OutboxEvent, error) {
	rows, err := tx.Query(ctx, `
		SELECT event_id, transaction_id, event_type, payload, created_at
		FROM outbox_events
		ORDER BY created_at ASC
		LIMIT $1
		FOR UPDATE SKIP LOCKED
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to claim outbox events: %w", err)
	}
	defer rows.Close()

	var events []ledger.OutboxEvent
	for rows.Next() {
		var ev ledger.OutboxEvent
		if err := rows.Scan(&ev.EventID, &ev.TransactionID, &ev.EventType, &ev.Payload, &ev.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan outbox event: %w", err)
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating outbox events: %w", err)
	}

	return events, nil
}
