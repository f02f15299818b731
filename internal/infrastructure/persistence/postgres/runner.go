package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	domainerrors "github.com/ledgercore/walletd/internal/domain/errors"
	"github.com/ledgercore/walletd/internal/ledger"
)

// Compile-time check
var _ ledger.TxRunner = (*SerializableRunner)(nil)

// SerializableRunner runs a unit of work inside one SERIALIZABLE transaction.
//
// Behavior:
//   - Begins the transaction and injects it into the context
//   - Runs fn with the transactional context
//   - COMMIT on nil return, ROLLBACK on error or panic
//
// A nested call reuses the ambient transaction instead of opening a second
// one. Connection-level failures are translated to ErrUnavailable: the service
// fails closed when the store is unreachable, it never degrades to stale or
// partial answers.
type SerializableRunner struct {
	pool *pgxpool.Pool
	opts pgx.TxOptions
}

// NewSerializableRunner creates the runner.
func NewSerializableRunner(pool *pgxpool.Pool) *SerializableRunner {
	return &SerializableRunner{
		pool: pool,
		opts: pgx.TxOptions{IsoLevel: pgx.Serializable},
	}
}

// RunSerializable implements ledger.TxRunner.
func (r *SerializableRunner) RunSerializable(ctx context.Context, fn func(ctx context.Context) error) error {
	if hasTx(ctx) {
		return fn(ctx)
	}

	tx, err := r.pool.BeginTx(ctx, r.opts)
	if err != nil {
		return domainerrors.Unavailable("failed to begin transaction", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(ctx)
			panic(p)
		}
	}()

	if err := fn(injectTx(ctx, tx)); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !isConnectionError(rbErr) {
			return fmt.Errorf("rollback failed: %v (original error: %w)", rbErr, err)
		}
		return translateRunError(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return translateRunError(err)
	}

	return nil
}

// translateRunError maps storage-level failures onto the domain taxonomy.
// Serialization failures surface as Conflict so the client retries with fresh
// state; connection loss surfaces as Unavailable.
func translateRunError(err error) error {
	switch {
	case isSerializationFailure(err):
		return domainerrors.Wrap(domainerrors.ErrConflict, "transaction serialization conflict", err)
	case isConnectionError(err):
		return domainerrors.Unavailable("database unavailable", err)
	default:
		return err
	}
}
