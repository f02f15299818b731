// Package handlers contains the gin handlers for the wallet ledger API.
//
// A handler binds the request, calls the engine, and renders the flat
// response body. Handlers depend on the narrow LedgerService interface, not
// on the concrete engine.
package handlers

import (
	"regexp"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/ledgercore/walletd/internal/adapters/http/common"
	domainerrors "github.com/ledgercore/walletd/internal/domain/errors"
)

var setupOnce sync.Once

// SetupValidator registers the custom binding validators. Safe to call more
// than once.
func SetupValidator() {
	setupOnce.Do(func() {
		if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
			_ = v.RegisterValidation("asset_code", validateAssetCode)
			_ = v.RegisterValidation("money_amount", validateMoneyAmount)
		}
	})
}

// validateAssetCode accepts 3-12 uppercase letters or digits.
var assetCodePattern = regexp.MustCompile(`^[A-Z0-9]{3,12}$`)

func validateAssetCode(fl validator.FieldLevel) bool {
	return assetCodePattern.MatchString(fl.Field().String())
}

// validateMoneyAmount accepts unsigned decimal text ("10", "10.25"). The
// text is preserved verbatim because it participates in the idempotency
// fingerprint; positivity is enforced by the engine.
var moneyAmountPattern = regexp.MustCompile(`^\d+(\.\d+)?$`)

func validateMoneyAmount(fl validator.FieldLevel) bool {
	return moneyAmountPattern.MatchString(fl.Field().String())
}

// bindJSON binds the request body, answering 422 on failure. Returns false
// when the response was already written.
func bindJSON[T any](c *gin.Context, req *T) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		common.RespondError(c, domainerrors.Validation("invalid request body: %v", err))
		return false
	}
	return true
}

// requireIdempotencyKey extracts the Idempotency-Key header. Its absence on a
// write endpoint is treated as an authorization failure, not a validation
// one.
func requireIdempotencyKey(c *gin.Context) (string, bool) {
	key := c.GetHeader("Idempotency-Key")
	if key == "" {
		common.RespondError(c, domainerrors.Unauthorized("missing Idempotency-Key header"))
		return "", false
	}
	return key, true
}
