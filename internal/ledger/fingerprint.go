package ledger

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// canonicalJSON serializes a logical payload deterministically: keys in
// ascending lexical order, "," and ":" separators, no whitespace, no HTML
// escaping. The same bytes are hashed for the fingerprint and stored on the
// outbox event, so both must come from this one function.
func canonicalJSON(payload map[string]any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(payload); err != nil {
		return nil, fmt.Errorf("canonicalize payload: %w", err)
	}
	// Encode appends a newline; the canonical form has none.
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// fingerprint returns the lowercase hex SHA-256 digest of the canonical
// payload, plus the canonical bytes themselves.
func fingerprint(payload map[string]any) (string, []byte, error) {
	raw, err := canonicalJSON(payload)
	if err != nil {
		return "", nil, err
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:]), raw, nil
}

// transferPayload builds the canonical logical payload of a transfer.
// Amount stays the caller's exact text: "10.20" and "10.2" are different
// payloads on purpose.
func transferPayload(in TransferInput) map[string]any {
	return map[string]any{
		"from_wallet_id":        in.FromWalletID.String(),
		"to_wallet_id":          in.ToWalletID.String(),
		"amount":                in.Amount,
		"asset":                 in.Asset,
		"external_reference":    optString(in.ExternalReference),
		"expected_from_version": optInt(in.ExpectedFromVersion),
		"expected_to_version":   optInt(in.ExpectedToVersion),
	}
}

// adjustmentPayload builds the canonical logical payload of an adjustment.
func adjustmentPayload(in AdjustmentInput) map[string]any {
	return map[string]any{
		"wallet_id":               in.WalletID.String(),
		"amount":                  in.Amount,
		"direction":               in.Direction,
		"asset":                   in.Asset,
		"reason":                  in.Reason,
		"expected_wallet_version": optInt(in.ExpectedWalletVersion),
	}
}

func optString(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}

func optInt(p *int64) any {
	if p == nil {
		return nil
	}
	return *p
}
