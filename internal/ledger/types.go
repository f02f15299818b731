// Package ledger implements the double-entry wallet ledger engine.
//
// Money lives in an append-only journal: every mutation is one journal
// transaction whose signed entries sum to zero. A per-account balance
// projection is kept in lockstep inside the same database transaction, and a
// transactional outbox row is written for every commit. The engine performs
// no internal concurrency and no internal retries; each operation occupies a
// single serializable database transaction.
package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OperationScope classifies a write request and partitions the idempotency
// namespace.
type OperationScope string

const (
	ScopeTransfer   OperationScope = "transfer"
	ScopeAdjustment OperationScope = "adjustment"
)

// Adjustment directions.
const (
	DirectionCredit = "credit"
	DirectionDebit  = "debit"
)

// Outbox event types.
const (
	EventTransferCommitted   = "wallet.transfer.committed"
	EventAdjustmentCommitted = "wallet.adjustment.committed"
)

// StatusCommitted is the only reachable transaction status. The column is
// kept for forward compatibility.
const StatusCommitted = "committed"

// Wallet is a ledger account. Version increases strictly monotonically and
// mutates only through the engine.
type Wallet struct {
	WalletID  uuid.UUID
	Asset     string
	Version   int64
	CreatedAt time.Time
}

// Balance is the materialized projection row for one account.
type Balance struct {
	WalletID uuid.UUID
	Asset    string
	Balance  decimal.Decimal
	Version  int64
	AsOf     time.Time
}

// Entry is one signed debit or credit line of a journal transaction.
type Entry struct {
	WalletID uuid.UUID
	Amount   decimal.Decimal
	Asset    string
}

// Transaction is a committed journal transaction with its entries in seq
// order. Immutable once committed.
type Transaction struct {
	TransactionID     uuid.UUID
	OperationScope    OperationScope
	IdempotencyKey    string
	PayloadHash       string
	Status            string
	CreatedAt         time.Time
	ExternalReference *string
	Entries           []Entry
}

// OutboxEvent is one pending row of the transactional outbox. Payload is the
// canonical request payload of the committed transaction, stored as JSON.
type OutboxEvent struct {
	EventID       uuid.UUID
	TransactionID uuid.UUID
	EventType     string
	Payload       []byte
	CreatedAt     time.Time
}

// TransferInput carries the logical parameters of a transfer request.
// Amount is the caller's exact decimal text; the engine never renormalizes it
// because the text participates in the payload fingerprint.
type TransferInput struct {
	IdempotencyKey      string
	FromWalletID        uuid.UUID
	ToWalletID          uuid.UUID
	Amount              string
	Asset               string
	ExternalReference   *string
	ExpectedFromVersion *int64
	ExpectedToVersion   *int64
}

// AdjustmentInput carries the logical parameters of an adjustment request.
type AdjustmentInput struct {
	IdempotencyKey        string
	WalletID              uuid.UUID
	Amount                string
	Direction             string
	Asset                 string
	Reason                string
	ExpectedWalletVersion *int64
}
