// Package common holds the HTTP response shapes and the domain-error to
// status-code mapping. Separate from handlers to avoid an import cycle with
// the middleware package.
package common

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	domainerrors "github.com/ledgercore/walletd/internal/domain/errors"
	"github.com/ledgercore/walletd/internal/ledger"
)

// ============================================
// Response DTOs
// ============================================

// WalletResponse is the body of a wallet creation.
type WalletResponse struct {
	WalletID  uuid.UUID `json:"wallet_id"`
	Asset     string    `json:"asset"`
	Version   int64     `json:"version"`
	CreatedAt time.Time `json:"created_at"`
}

// BalanceResponse is the body of the balance and audit reads. Balance renders
// as a JSON number with the stored decimal scale.
type BalanceResponse struct {
	WalletID uuid.UUID   `json:"wallet_id"`
	Asset    string      `json:"asset"`
	Balance  json.Number `json:"balance"`
	Version  int64       `json:"version"`
	AsOf     time.Time   `json:"as_of"`
}

// EntryResponse is one journal entry line inside a transaction body.
type EntryResponse struct {
	AccountID uuid.UUID   `json:"account_id"`
	Amount    json.Number `json:"amount"`
	Asset     string      `json:"asset"`
}

// TransactionResponse is the body of transfer, adjustment, and transaction
// reads.
type TransactionResponse struct {
	TransactionID     uuid.UUID       `json:"transaction_id"`
	OperationScope    string          `json:"operation_scope"`
	IdempotencyKey    string          `json:"idempotency_key"`
	PayloadHash       string          `json:"payload_hash"`
	Status            string          `json:"status"`
	CreatedAt         time.Time       `json:"created_at"`
	ExternalReference *string         `json:"external_reference"`
	Entries           []EntryResponse `json:"entries"`
}

// NewWalletResponse converts the domain wallet.
func NewWalletResponse(w *ledger.Wallet) WalletResponse {
	return WalletResponse{
		WalletID:  w.WalletID,
		Asset:     w.Asset,
		Version:   w.Version,
		CreatedAt: w.CreatedAt,
	}
}

// NewBalanceResponse converts the domain balance.
func NewBalanceResponse(b *ledger.Balance) BalanceResponse {
	return BalanceResponse{
		WalletID: b.WalletID,
		Asset:    b.Asset,
		Balance:  json.Number(b.Balance.String()),
		Version:  b.Version,
		AsOf:     b.AsOf,
	}
}

// NewTransactionResponse converts the domain transaction, entries in seq
// order.
func NewTransactionResponse(tx *ledger.Transaction) TransactionResponse {
	entries := make([]EntryResponse, 0, len(tx.Entries))
	for _, e := range tx.Entries {
		entries = append(entries, EntryResponse{
			AccountID: e.WalletID,
			Amount:    json.Number(e.Amount.String()),
			Asset:     e.Asset,
		})
	}
	return TransactionResponse{
		TransactionID:     tx.TransactionID,
		OperationScope:    string(tx.OperationScope),
		IdempotencyKey:    tx.IdempotencyKey,
		PayloadHash:       tx.PayloadHash,
		Status:            tx.Status,
		CreatedAt:         tx.CreatedAt,
		ExternalReference: tx.ExternalReference,
		Entries:           entries,
	}
}

// ============================================
// Error Mapping
// ============================================

// ErrorBody is the uniform error payload.
type ErrorBody struct {
	Error string `json:"error"`
}

// StatusFor maps a domain error kind onto an HTTP status code.
func StatusFor(err error) int {
	switch {
	case domainerrors.IsValidation(err):
		return http.StatusUnprocessableEntity
	case domainerrors.IsNotFound(err):
		return http.StatusNotFound
	case domainerrors.IsConflict(err):
		return http.StatusConflict
	case domainerrors.IsUnauthorized(err):
		return http.StatusUnauthorized
	case domainerrors.IsForbidden(err):
		return http.StatusForbidden
	case domainerrors.IsUnavailable(err):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// RespondError writes the error body for a domain error. Unexpected errors
// are masked; their detail stays in the logs, not the response.
func RespondError(c *gin.Context, err error) {
	status := StatusFor(err)

	message := "internal error"
	var domainErr *domainerrors.Error
	if status != http.StatusInternalServerError && errors.As(err, &domainErr) {
		message = domainErr.Message()
	}

	_ = c.Error(err)
	c.AbortWithStatusJSON(status, ErrorBody{Error: message})
}
