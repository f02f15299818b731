package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ledgercore/walletd/internal/adapters/http/common"
	domainerrors "github.com/ledgercore/walletd/internal/domain/errors"
	"github.com/ledgercore/walletd/internal/ledger"
)

// TransactionHandler serves the write endpoints and the transaction read.
type TransactionHandler struct {
	svc          LedgerService
	defaultAsset string
}

// NewTransactionHandler creates the handler.
func NewTransactionHandler(svc LedgerService, defaultAsset string) *TransactionHandler {
	return &TransactionHandler{svc: svc, defaultAsset: defaultAsset}
}

// TransferRequest - POST /v1/transfers body. Amount stays a string end to
// end; its exact text participates in the idempotency fingerprint.
type TransferRequest struct {
	FromWalletID        uuid.UUID `json:"from_wallet_id" binding:"required"`
	ToWalletID          uuid.UUID `json:"to_wallet_id" binding:"required"`
	Amount              string    `json:"amount" binding:"required,money_amount"`
	Asset               string    `json:"asset" binding:"omitempty,asset_code"`
	ExternalReference   *string   `json:"external_reference"`
	ExpectedFromVersion *int64    `json:"expected_from_version"`
	ExpectedToVersion   *int64    `json:"expected_to_version"`
}

// AdjustmentRequest - POST /v1/adjustments body.
type AdjustmentRequest struct {
	WalletID              uuid.UUID `json:"wallet_id" binding:"required"`
	Amount                string    `json:"amount" binding:"required,money_amount"`
	Direction             string    `json:"direction" binding:"required,oneof=credit debit"`
	Asset                 string    `json:"asset" binding:"omitempty,asset_code"`
	Reason                string    `json:"reason" binding:"required"`
	ExpectedWalletVersion *int64    `json:"expected_wallet_version"`
}

// PostTransfer handles POST /v1/transfers.
func (h *TransactionHandler) PostTransfer(c *gin.Context) {
	key, ok := requireIdempotencyKey(c)
	if !ok {
		return
	}

	var req TransferRequest
	if !bindJSON(c, &req) {
		return
	}
	if req.Asset == "" {
		req.Asset = h.defaultAsset
	}

	tx, err := h.svc.PostTransfer(c.Request.Context(), ledger.TransferInput{
		IdempotencyKey:      key,
		FromWalletID:        req.FromWalletID,
		ToWalletID:          req.ToWalletID,
		Amount:              req.Amount,
		Asset:               req.Asset,
		ExternalReference:   req.ExternalReference,
		ExpectedFromVersion: req.ExpectedFromVersion,
		ExpectedToVersion:   req.ExpectedToVersion,
	})
	if err != nil {
		common.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, common.NewTransactionResponse(tx))
}

// PostAdjustment handles POST /v1/adjustments.
func (h *TransactionHandler) PostAdjustment(c *gin.Context) {
	key, ok := requireIdempotencyKey(c)
	if !ok {
		return
	}

	var req AdjustmentRequest
	if !bindJSON(c, &req) {
		return
	}
	if req.Asset == "" {
		req.Asset = h.defaultAsset
	}

	tx, err := h.svc.PostAdjustment(c.Request.Context(), ledger.AdjustmentInput{
		IdempotencyKey:        key,
		WalletID:              req.WalletID,
		Amount:                req.Amount,
		Direction:             req.Direction,
		Asset:                 req.Asset,
		Reason:                req.Reason,
		ExpectedWalletVersion: req.ExpectedWalletVersion,
	})
	if err != nil {
		common.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, common.NewTransactionResponse(tx))
}

// GetTransaction handles GET /v1/transactions/:id.
func (h *TransactionHandler) GetTransaction(c *gin.Context) {
	txID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		common.RespondError(c, domainerrors.Validation("malformed transaction id %q", c.Param("id")))
		return
	}

	tx, err := h.svc.GetTransaction(c.Request.Context(), txID)
	if err != nil {
		common.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, common.NewTransactionResponse(tx))
}
