package ledger

import (
	"bytes"
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	domainerrors "github.com/ledgercore/walletd/internal/domain/errors"
)

// TxRunner runs a unit of work inside one serializable database transaction.
// Commit on nil return, rollback on error. The implementation translates a
// lost or unreachable store into domainerrors.ErrUnavailable.
type TxRunner interface {
	RunSerializable(ctx context.Context, fn func(ctx context.Context) error) error
}

// Repository is the storage capability the engine drives. Implementations
// must execute against the transaction carried by ctx when one is present,
// so that every step of an operation observes one consistent snapshot.
type Repository interface {
	// CreateAccount inserts the account row and its zero balance projection.
	// Returns ErrConflict when the wallet already exists.
	CreateAccount(ctx context.Context, w Wallet) error

	// GetProjection returns the balance projection for a wallet, or
	// ErrNotFound.
	GetProjection(ctx context.Context, walletID uuid.UUID) (*Balance, error)

	// SumJournalEntries reconstructs the balance from the journal (audit
	// path). Returns ErrNotFound when the account does not exist; an account
	// with no entries yields zero.
	SumJournalEntries(ctx context.Context, walletID uuid.UUID) (*Balance, error)

	// FindTransactionByKey looks up a transaction by idempotency scope+key.
	// found is false when no row exists.
	FindTransactionByKey(ctx context.Context, scope OperationScope, key string) (txID uuid.UUID, payloadHash string, found bool, err error)

	// InsertTransaction writes the journal transaction header row.
	InsertTransaction(ctx context.Context, txID uuid.UUID, scope OperationScope, key, payloadHash string, externalRef *string) error

	// AccountVersionForUpdate reads the current version under a row-level
	// write lock. Returns ErrNotFound when the account does not exist.
	AccountVersionForUpdate(ctx context.Context, walletID uuid.UUID) (int64, error)

	// BumpAccountVersion conditionally advances the version
	// (WHERE version = expected) and returns the new version. Returns
	// ErrConflict when no row matched.
	BumpAccountVersion(ctx context.Context, walletID uuid.UUID, expected int64) (int64, error)

	// InsertEntries writes the journal entries with seq 1..len(entries) in
	// slice order.
	InsertEntries(ctx context.Context, txID uuid.UUID, entries []Entry) error

	// ApplyProjectionDelta adds delta to the projection balance and stamps
	// the new version. Returns ErrNotFound when no projection row matched,
	// which indicates corruption (an account without a projection).
	ApplyProjectionDelta(ctx context.Context, walletID uuid.UUID, asset string, delta decimal.Decimal, version int64) error

	// InsertOutboxEvent appends one outbox row describing a committed
	// transaction.
	InsertOutboxEvent(ctx context.Context, eventID, txID uuid.UUID, eventType string, payload []byte) error

	// GetTransaction loads a committed transaction with entries in seq
	// order, or ErrNotFound.
	GetTransaction(ctx context.Context, txID uuid.UUID) (*Transaction, error)
}

// Service is the ledger engine. It holds no mutable state of its own; the
// database is the only shared state, mutated under serializable transactions.
type Service struct {
	runner       TxRunner
	repo         Repository
	systemWallet uuid.UUID
	log          *slog.Logger
}

// NewService creates the engine. systemWallet is the counterparty account for
// adjustments; it must be seeded out of band before adjustments are posted.
func NewService(runner TxRunner, repo Repository, systemWallet uuid.UUID, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{runner: runner, repo: repo, systemWallet: systemWallet, log: log}
}

// CreateWallet creates an account with a zero balance projection. Wallets are
// never created implicitly by transfers or adjustments.
func (s *Service) CreateWallet(ctx context.Context, walletID uuid.UUID, asset string) (*Wallet, error) {
	if err := ValidateAsset(asset); err != nil {
		return nil, err
	}

	w := Wallet{
		WalletID:  walletID,
		Asset:     asset,
		Version:   0,
		CreatedAt: time.Now().UTC(),
	}

	err := s.runner.RunSerializable(ctx, func(txCtx context.Context) error {
		return s.repo.CreateAccount(txCtx, w)
	})
	if err != nil {
		return nil, err
	}

	s.log.InfoContext(ctx, "wallet created",
		slog.String("wallet_id", walletID.String()),
		slog.String("asset", asset),
	)
	return &w, nil
}

// GetBalance returns the projection row for a wallet. CP-first: when the
// store is unavailable the read fails, it never serves a stale value.
func (s *Service) GetBalance(ctx context.Context, walletID uuid.UUID) (*Balance, error) {
	var out *Balance
	err := s.runner.RunSerializable(ctx, func(txCtx context.Context) error {
		b, err := s.repo.GetProjection(txCtx, walletID)
		if err != nil {
			return err
		}
		out = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// AuditBalance reconstructs the balance by summing journal entries. This is
// the authoritative value; divergence from the projection is a critical
// invariant violation.
func (s *Service) AuditBalance(ctx context.Context, walletID uuid.UUID) (*Balance, error) {
	var out *Balance
	err := s.runner.RunSerializable(ctx, func(txCtx context.Context) error {
		b, err := s.repo.SumJournalEntries(txCtx, walletID)
		if err != nil {
			return err
		}
		out = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// GetTransaction loads a committed transaction by id.
func (s *Service) GetTransaction(ctx context.Context, txID uuid.UUID) (*Transaction, error) {
	var out *Transaction
	err := s.runner.RunSerializable(ctx, func(txCtx context.Context) error {
		tx, err := s.repo.GetTransaction(txCtx, txID)
		if err != nil {
			return err
		}
		out = tx
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// PostTransfer posts a balanced two-entry transaction moving amount from one
// wallet to another. Idempotent under the (transfer, idempotency key) scope.
func (s *Service) PostTransfer(ctx context.Context, in TransferInput) (*Transaction, error) {
	if in.IdempotencyKey == "" {
		return nil, domainerrors.Unauthorized("idempotency key is required")
	}
	if in.FromWalletID == in.ToWalletID {
		return nil, domainerrors.Validation("from_wallet_id and to_wallet_id must differ")
	}
	if err := ValidateAsset(in.Asset); err != nil {
		return nil, err
	}
	amount, err := parseAmount(in.Amount)
	if err != nil {
		return nil, err
	}

	payloadHash, payload, err := fingerprint(transferPayload(in))
	if err != nil {
		return nil, err
	}

	entries := transferEntries(in.FromWalletID, in.ToWalletID, amount, in.Asset)
	if err := ensureBalanced(entries); err != nil {
		return nil, err
	}

	// Row locks are taken in ascending wallet_id byte order regardless of
	// direction, so antisymmetric concurrent transfers cannot deadlock.
	bumps := sortedBumps([]accountBump{
		{walletID: in.FromWalletID, expected: in.ExpectedFromVersion, delta: amount.Neg()},
		{walletID: in.ToWalletID, expected: in.ExpectedToVersion, delta: amount},
	})

	return s.post(ctx, postRequest{
		scope:       ScopeTransfer,
		key:         in.IdempotencyKey,
		payloadHash: payloadHash,
		payload:     payload,
		externalRef: in.ExternalReference,
		asset:       in.Asset,
		entries:     entries,
		bumps:       bumps,
		eventType:   EventTransferCommitted,
	})
}

// PostAdjustment posts a balanced two-entry transaction between a wallet and
// the system counterparty. Idempotent under the (adjustment, idempotency key)
// scope.
func (s *Service) PostAdjustment(ctx context.Context, in AdjustmentInput) (*Transaction, error) {
	if in.IdempotencyKey == "" {
		return nil, domainerrors.Unauthorized("idempotency key is required")
	}
	if in.Direction != DirectionCredit && in.Direction != DirectionDebit {
		return nil, domainerrors.Validation("direction must be %q or %q", DirectionCredit, DirectionDebit)
	}
	if err := ValidateAsset(in.Asset); err != nil {
		return nil, err
	}
	amount, err := parseAmount(in.Amount)
	if err != nil {
		return nil, err
	}

	payloadHash, payload, err := fingerprint(adjustmentPayload(in))
	if err != nil {
		return nil, err
	}

	entries := adjustmentEntries(in.WalletID, s.systemWallet, amount, in.Direction, in.Asset)
	if err := ensureBalanced(entries); err != nil {
		return nil, err
	}

	// The user wallet is bumped first, the system wallet second. The reason
	// doubles as the external reference on the stored transaction.
	reason := in.Reason
	bumps := []accountBump{
		{walletID: in.WalletID, expected: in.ExpectedWalletVersion, delta: entries[0].Amount},
		{walletID: s.systemWallet, expected: nil, delta: entries[1].Amount},
	}

	return s.post(ctx, postRequest{
		scope:       ScopeAdjustment,
		key:         in.IdempotencyKey,
		payloadHash: payloadHash,
		payload:     payload,
		externalRef: &reason,
		asset:       in.Asset,
		entries:     entries,
		bumps:       bumps,
		eventType:   EventAdjustmentCommitted,
	})
}

// accountBump is one account's version advance plus the signed projection
// delta applied at the resulting version.
type accountBump struct {
	walletID uuid.UUID
	expected *int64
	delta    decimal.Decimal
}

// sortedBumps orders bumps by ascending wallet_id byte order.
func sortedBumps(bumps []accountBump) []accountBump {
	sort.Slice(bumps, func(i, j int) bool {
		return bytes.Compare(bumps[i].walletID[:], bumps[j].walletID[:]) < 0
	})
	return bumps
}

// postRequest is the shared skeleton input of both operation scopes.
type postRequest struct {
	scope       OperationScope
	key         string
	payloadHash string
	payload     []byte
	externalRef *string
	asset       string
	entries     []Entry
	bumps       []accountBump
	eventType   string
}

// post runs the write skeleton inside one serializable transaction:
// idempotency lookup, transaction header, version bumps, journal entries,
// projection updates, outbox event.
func (s *Service) post(ctx context.Context, req postRequest) (*Transaction, error) {
	var (
		out      *Transaction
		replayed bool
	)

	err := s.runner.RunSerializable(ctx, func(txCtx context.Context) error {
		existingID, existingHash, found, err := s.repo.FindTransactionByKey(txCtx, req.scope, req.key)
		if err != nil {
			return err
		}
		if found {
			if existingHash != req.payloadHash {
				return domainerrors.Conflict("idempotency key reuse with different payload")
			}
			prior, err := s.repo.GetTransaction(txCtx, existingID)
			if err != nil {
				return err
			}
			out = prior
			replayed = true
			return nil
		}

		txID := uuid.New()
		if err := s.repo.InsertTransaction(txCtx, txID, req.scope, req.key, req.payloadHash, req.externalRef); err != nil {
			return err
		}

		versions := make(map[uuid.UUID]int64, len(req.bumps))
		for _, bump := range req.bumps {
			version, err := s.bumpVersion(txCtx, bump.walletID, bump.expected)
			if err != nil {
				return err
			}
			versions[bump.walletID] = version
		}

		if err := s.repo.InsertEntries(txCtx, txID, req.entries); err != nil {
			return err
		}

		for _, bump := range req.bumps {
			if err := s.repo.ApplyProjectionDelta(txCtx, bump.walletID, req.asset, bump.delta, versions[bump.walletID]); err != nil {
				return err
			}
		}

		if err := s.repo.InsertOutboxEvent(txCtx, uuid.New(), txID, req.eventType, req.payload); err != nil {
			return err
		}

		committed, err := s.repo.GetTransaction(txCtx, txID)
		if err != nil {
			return err
		}
		out = committed
		return nil
	})
	if err != nil {
		return nil, err
	}

	if replayed {
		idempotentReplaysTotal.WithLabelValues(string(req.scope)).Inc()
		s.log.InfoContext(ctx, "idempotent replay",
			slog.String("transaction_id", out.TransactionID.String()),
			slog.String("operation_scope", string(req.scope)),
		)
		return out, nil
	}

	journalTransactionsTotal.WithLabelValues(string(req.scope), req.asset).Inc()
	s.log.InfoContext(ctx, "journal transaction committed",
		slog.String("transaction_id", out.TransactionID.String()),
		slog.String("operation_scope", string(req.scope)),
	)
	return out, nil
}

// bumpVersion advances one account's version under optimistic concurrency.
// Without a caller expectation the current version is read under FOR UPDATE
// and used as the expectation, serializing concurrent writers on the row.
func (s *Service) bumpVersion(ctx context.Context, walletID uuid.UUID, expected *int64) (int64, error) {
	exp := int64(0)
	if expected == nil {
		current, err := s.repo.AccountVersionForUpdate(ctx, walletID)
		if err != nil {
			return 0, err
		}
		exp = current
	} else {
		exp = *expected
	}

	return s.repo.BumpAccountVersion(ctx, walletID, exp)
}
