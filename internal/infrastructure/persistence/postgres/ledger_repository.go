package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	domainerrors "github.com/ledgercore/walletd/internal/domain/errors"
	"github.com/ledgercore/walletd/internal/ledger"
)

// Compile-time check
var _ ledger.Repository = (*LedgerRepository)(nil)

// LedgerRepository implements ledger.Repository on Postgres.
//
// All amounts travel as decimal text: parameters are bound as strings and
// NUMERIC columns are scanned into strings before decimal parsing, so the
// exact scale survives the round trip.
type LedgerRepository struct {
	pool *pgxpool.Pool
}

// NewLedgerRepository creates the repository.
func NewLedgerRepository(pool *pgxpool.Pool) *LedgerRepository {
	return &LedgerRepository{pool: pool}
}

// getQuerier returns the ambient transaction or the pool.
func (r *LedgerRepository) getQuerier(ctx context.Context) querier {
	if tx := extractTx(ctx); tx != nil {
		return tx
	}
	return r.pool
}

// CreateAccount inserts the account row and its zero projection.
func (r *LedgerRepository) CreateAccount(ctx context.Context, w ledger.Wallet) error {
	q := r.getQuerier(ctx)

	_, err := q.Exec(ctx, `
		INSERT INTO accounts (wallet_id, asset, version, created_at)
		VALUES ($1, $2, $3, $4)
	`, w.WalletID, w.Asset, w.Version, w.CreatedAt)
	if err != nil {
		if isUniqueViolation(err, "accounts_pkey") {
			return domainerrors.Conflict("wallet %s already exists", w.WalletID)
		}
		return fmt.Errorf("failed to insert account: %w", err)
	}

	_, err = q.Exec(ctx, `
		INSERT INTO balance_projections (wallet_id, asset, balance, version, as_of)
		VALUES ($1, $2, 0, $3, $4)
	`, w.WalletID, w.Asset, w.Version, w.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert balance projection: %w", err)
	}

	return nil
}

// GetProjection loads the balance projection row for a wallet.
func (r *LedgerRepository) GetProjection(ctx context.Context, walletID uuid.UUID) (*ledger.Balance, error) {
	q := r.getQuerier(ctx)

	var (
		b           ledger.Balance
		balanceText string
	)
	err := q.QueryRow(ctx, `
		SELECT wallet_id, asset, balance::text, version, as_of
		FROM balance_projections
		WHERE wallet_id = $1
	`, walletID).Scan(&b.WalletID, &b.Asset, &balanceText, &b.Version, &b.AsOf)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainerrors.NotFound("wallet %s not found", walletID)
		}
		return nil, fmt.Errorf("failed to load balance projection: %w", err)
	}

	b.Balance, err = decimal.NewFromString(balanceText)
	if err != nil {
		return nil, fmt.Errorf("invalid balance in database: %w", err)
	}
	return &b, nil
}

// SumJournalEntries reconstructs the balance from the journal. The LEFT JOIN
// keeps an entry-less account distinguishable from a missing one.
func (r *LedgerRepository) SumJournalEntries(ctx context.Context, walletID uuid.UUID) (*ledger.Balance, error) {
	q := r.getQuerier(ctx)

	var (
		b       ledger.Balance
		sumText string
	)
	err := q.QueryRow(ctx, `
		SELECT a.wallet_id, a.asset, COALESCE(SUM(e.amount), 0)::text
		FROM accounts a
		LEFT JOIN journal_entries e ON e.wallet_id = a.wallet_id AND e.asset = a.asset
		WHERE a.wallet_id = $1
		GROUP BY a.wallet_id, a.asset
	`, walletID).Scan(&b.WalletID, &b.Asset, &sumText)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainerrors.NotFound("wallet %s not found", walletID)
		}
		return nil, fmt.Errorf("failed to sum journal entries: %w", err)
	}

	b.Balance, err = decimal.NewFromString(sumText)
	if err != nil {
		return nil, fmt.Errorf("invalid journal sum in database: %w", err)
	}
	return &b, nil
}

// FindTransactionByKey looks up a transaction by idempotency scope and key.
func (r *LedgerRepository) FindTransactionByKey(ctx context.Context, scope ledger.OperationScope, key string) (uuid.UUID, string, bool, error) {
	q := r.getQuerier(ctx)

	var (
		txID        uuid.UUID
		payloadHash string
	)
	err := q.QueryRow(ctx, `
		SELECT transaction_id, payload_hash
		FROM journal_transactions
		WHERE operation_scope = $1 AND idempotency_key = $2
	`, string(scope), key).Scan(&txID, &payloadHash)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return uuid.Nil, "", false, nil
		}
		return uuid.Nil, "", false, fmt.Errorf("failed to look up idempotency key: %w", err)
	}

	return txID, payloadHash, true, nil
}

// InsertTransaction writes the journal transaction header row. The UNIQUE
// constraint on (operation_scope, idempotency_key) backstops a race between
// two first-time writers holding the same key.
func (r *LedgerRepository) InsertTransaction(ctx context.Context, txID uuid.UUID, scope ledger.OperationScope, key, payloadHash string, externalRef *string) error {
	q := r.getQuerier(ctx)

	_, err := q.Exec(ctx, `
		INSERT INTO journal_transactions
			(transaction_id, operation_scope, idempotency_key, payload_hash, status, external_reference)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, txID, string(scope), key, payloadHash, ledger.StatusCommitted, externalRef)
	if err != nil {
		if isUniqueViolation(err, "journal_transactions_operation_scope_idempotency_key_key") {
			return domainerrors.Conflict("concurrent request with idempotency key %q", key)
		}
		return fmt.Errorf("failed to insert journal transaction: %w", err)
	}

	return nil
}

// AccountVersionForUpdate reads the current version under a row-level write
// lock.
func (r *LedgerRepository) AccountVersionForUpdate(ctx context.Context, walletID uuid.UUID) (int64, error) {
	q := r.getQuerier(ctx)

	var version int64
	err := q.QueryRow(ctx, `
		SELECT version FROM accounts WHERE wallet_id = $1 FOR UPDATE
	`, walletID).Scan(&version)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, domainerrors.NotFound("wallet %s not found", walletID)
		}
		return 0, fmt.Errorf("failed to lock account: %w", err)
	}

	return version, nil
}

// BumpAccountVersion conditionally advances the version. Zero rows matched
// means the expectation is stale (or the account vanished), reported as
// Conflict.
func (r *LedgerRepository) BumpAccountVersion(ctx context.Context, walletID uuid.UUID, expected int64) (int64, error) {
	q := r.getQuerier(ctx)

	var version int64
	err := q.QueryRow(ctx, `
		UPDATE accounts
		SET version = version + 1
		WHERE wallet_id = $1 AND version = $2
		RETURNING version
	`, walletID, expected).Scan(&version)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, domainerrors.Conflict("wallet %s was modified by another transaction (expected version %d)", walletID, expected)
		}
		return 0, fmt.Errorf("failed to bump account version: %w", err)
	}

	return version, nil
}

// InsertEntries writes the journal entries with seq following slice order.
func (r *LedgerRepository) InsertEntries(ctx context.Context, txID uuid.UUID, entries []ledger.Entry) error {
	q := r.getQuerier(ctx)

	for i, e := range entries {
		_, err := q.Exec(ctx, `
			INSERT INTO journal_entries (transaction_id, seq, wallet_id, amount, asset)
			VALUES ($1, $2, $3, $4, $5)
		`, txID, i+1, e.WalletID, e.Amount.String(), e.Asset)
		if err != nil {
			if isForeignKeyViolation(err) {
				return domainerrors.NotFound("wallet %s not found", e.WalletID)
			}
			return fmt.Errorf("failed to insert journal entry %d: %w", i+1, err)
		}
	}

	return nil
}

// ApplyProjectionDelta adds the delta to the projection and stamps the
// version the account just advanced to. A miss means the account exists
// without a projection row, which is corruption, not a user error.
func (r *LedgerRepository) ApplyProjectionDelta(ctx context.Context, walletID uuid.UUID, asset string, delta decimal.Decimal, version int64) error {
	q := r.getQuerier(ctx)

	tag, err := q.Exec(ctx, `
		UPDATE balance_projections
		SET balance = balance + $3::numeric, version = $4, as_of = NOW()
		WHERE wallet_id = $1 AND asset = $2
	`, walletID, asset, delta.String(), version)
	if err != nil {
		return fmt.Errorf("failed to apply projection delta: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domainerrors.NotFound("balance projection for wallet %s asset %s not found", walletID, asset)
	}

	return nil
}

// InsertOutboxEvent appends one outbox row inside the same transaction as the
// journal write.
func (r *LedgerRepository) InsertOutboxEvent(ctx context.Context, eventID, txID uuid.UUID, eventType string, payload []byte) error {
	q := r.getQuerier(ctx)

	_, err := q.Exec(ctx, `
		INSERT INTO outbox_events (event_id, transaction_id, event_type, payload)
		VALUES ($1, $2, $3, $4)
	`, eventID, txID, eventType, payload)
	if err != nil {
		return fmt.Errorf("failed to insert outbox event: %w", err)
	}

	return nil
}

// GetTransaction loads a transaction with its entries in seq order.
func (r *LedgerRepository) GetTransaction(ctx context.Context, txID uuid.UUID) (*ledger.Transaction, error) {
	q := r.getQuerier(ctx)

	var tx ledger.Transaction
	err := q.QueryRow(ctx, `
		SELECT transaction_id, operation_scope, idempotency_key, payload_hash,
		       status, created_at, external_reference
		FROM journal_transactions
		WHERE transaction_id = $1
	`, txID).Scan(
		&tx.TransactionID,
		&tx.OperationScope,
		&tx.IdempotencyKey,
		&tx.PayloadHash,
		&tx.Status,
		&tx.CreatedAt,
		&tx.ExternalReference,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainerrors.NotFound("transaction %s not found", txID)
		}
		return nil, fmt.Errorf("failed to load transaction: %w", err)
	}

	rows, err := q.Query(ctx, `
		SELECT wallet_id, amount::text, asset
		FROM journal_entries
		WHERE transaction_id = $1
		ORDER BY seq ASC
	`, txID)
	if err != nil {
		return nil, fmt.Errorf("failed to load journal entries: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			e          ledger.Entry
			amountText string
		)
		if err := rows.Scan(&e.WalletID, &amountText, &e.Asset); err != nil {
			return nil, fmt.Errorf("failed to scan journal entry: %w", err)
		}
		e.Amount, err = decimal.NewFromString(amountText)
		if err != nil {
			return nil, fmt.Errorf("invalid entry amount in database: %w", err)
		}
		tx.Entries = append(tx.Entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating journal entries: %w", err)
	}

	return &tx, nil
}
