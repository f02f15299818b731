package ledger

import (
	"regexp"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	domainerrors "github.com/ledgercore/walletd/internal/domain/errors"
)

// assetPattern defines a well-formed asset code: 3-12 uppercase letters or
// digits ("USD", "USDT", "BRL2024").
var assetPattern = regexp.MustCompile(`^[A-Z0-9]{3,12}$`)

// ValidateAsset checks that the asset code is well-formed.
func ValidateAsset(asset string) error {
	if !assetPattern.MatchString(asset) {
		return domainerrors.Validation("malformed asset code %q (want 3-12 uppercase letters or digits)", asset)
	}
	return nil
}

// parseAmount parses the caller's decimal text and requires it to be
// strictly positive.
func parseAmount(text string) (decimal.Decimal, error) {
	amount, err := decimal.NewFromString(text)
	if err != nil {
		return decimal.Decimal{}, domainerrors.Validation("invalid amount %q", text)
	}
	if amount.Sign() <= 0 {
		return decimal.Decimal{}, domainerrors.Validation("amount must be strictly positive, got %s", text)
	}
	return amount, nil
}

// transferEntries builds the entry list of a transfer: from side first, to
// side second. Entry order defines journal seq and is stable for a payload.
func transferEntries(from, to uuid.UUID, amount decimal.Decimal, asset string) []Entry {
	return []Entry{
		{WalletID: from, Amount: amount.Neg(), Asset: asset},
		{WalletID: to, Amount: amount, Asset: asset},
	}
}

// adjustmentEntries builds the entry list of an adjustment: the user wallet
// first with the signed delta, the system counterparty second with the
// opposite sign.
func adjustmentEntries(wallet, system uuid.UUID, amount decimal.Decimal, direction, asset string) []Entry {
	delta := amount
	if direction == DirectionDebit {
		delta = amount.Neg()
	}
	return []Entry{
		{WalletID: wallet, Amount: delta, Asset: asset},
		{WalletID: system, Amount: delta.Neg(), Asset: asset},
	}
}

// ensureBalanced enforces the double-entry invariants on an entry list:
// at least two entries, no zero amounts, a single asset, and a zero sum.
func ensureBalanced(entries []Entry) error {
	if len(entries) < 2 {
		return domainerrors.Validation("at least two journal entries required")
	}

	total := decimal.Zero
	asset := entries[0].Asset
	for _, e := range entries {
		if e.Amount.IsZero() {
			return domainerrors.Validation("journal entry amount cannot be zero")
		}
		if e.Asset != asset {
			return domainerrors.Validation("all entries in a transaction must have the same asset")
		}
		total = total.Add(e.Amount)
	}

	if !total.IsZero() {
		return domainerrors.Validation("double-entry violation: sum(entries.amount) != 0")
	}
	return nil
}
