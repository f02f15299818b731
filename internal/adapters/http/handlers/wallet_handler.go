package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ledgercore/walletd/internal/adapters/http/common"
	domainerrors "github.com/ledgercore/walletd/internal/domain/errors"
	"github.com/ledgercore/walletd/internal/ledger"
)

// LedgerService is the engine surface the handlers consume.
type LedgerService interface {
	CreateWallet(ctx context.Context, walletID uuid.UUID, asset string) (*ledger.Wallet, error)
	GetBalance(ctx context.Context, walletID uuid.UUID) (*ledger.Balance, error)
	AuditBalance(ctx context.Context, walletID uuid.UUID) (*ledger.Balance, error)
	PostTransfer(ctx context.Context, in ledger.TransferInput) (*ledger.Transaction, error)
	PostAdjustment(ctx context.Context, in ledger.AdjustmentInput) (*ledger.Transaction, error)
	GetTransaction(ctx context.Context, txID uuid.UUID) (*ledger.Transaction, error)
}

// WalletHandler serves wallet creation and the balance reads.
type WalletHandler struct {
	svc          LedgerService
	defaultAsset string
}

// NewWalletHandler creates the handler. defaultAsset fills requests that
// omit the asset field.
func NewWalletHandler(svc LedgerService, defaultAsset string) *WalletHandler {
	return &WalletHandler{svc: svc, defaultAsset: defaultAsset}
}

// CreateWalletRequest - POST /v1/wallets body.
type CreateWalletRequest struct {
	WalletID uuid.UUID `json:"wallet_id" binding:"required"`
	Asset    string    `json:"asset" binding:"omitempty,asset_code"`
}

// CreateWallet handles POST /v1/wallets.
func (h *WalletHandler) CreateWallet(c *gin.Context) {
	var req CreateWalletRequest
	if !bindJSON(c, &req) {
		return
	}
	if req.Asset == "" {
		req.Asset = h.defaultAsset
	}

	w, err := h.svc.CreateWallet(c.Request.Context(), req.WalletID, req.Asset)
	if err != nil {
		common.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, common.NewWalletResponse(w))
}

// GetBalance handles GET /v1/wallets/:id/balance.
func (h *WalletHandler) GetBalance(c *gin.Context) {
	walletID, ok := parseWalletID(c)
	if !ok {
		return
	}

	b, err := h.svc.GetBalance(c.Request.Context(), walletID)
	if err != nil {
		common.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, common.NewBalanceResponse(b))
}

// AuditBalance handles GET /v1/wallets/:id/balance/audit. The balance is the
// journal sum; version and as_of come from the projection so the caller can
// line the two reads up.
func (h *WalletHandler) AuditBalance(c *gin.Context) {
	walletID, ok := parseWalletID(c)
	if !ok {
		return
	}

	projected, err := h.svc.GetBalance(c.Request.Context(), walletID)
	if err != nil {
		common.RespondError(c, err)
		return
	}
	audited, err := h.svc.AuditBalance(c.Request.Context(), walletID)
	if err != nil {
		common.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, common.BalanceResponse{
		WalletID: audited.WalletID,
		Asset:    audited.Asset,
		Balance:  common.NewBalanceResponse(audited).Balance,
		Version:  projected.Version,
		AsOf:     projected.AsOf,
	})
}

// parseWalletID reads the :id path parameter, answering 422 on malformed
// input.
func parseWalletID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		common.RespondError(c, domainerrors.Validation("malformed wallet id %q", c.Param("id")))
		return uuid.Nil, false
	}
	return id, true
}
