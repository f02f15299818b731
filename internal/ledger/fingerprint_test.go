package ledger

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanonicalJSONSortsKeysWithoutWhitespace(t *testing.T) {
	raw, err := canonicalJSON(map[string]any{
		"zulu":  "z",
		"alpha": "a",
		"mike":  int64(5),
		"none":  nil,
	})
	require.NoError(t, err)
	assert.Equal(t, `{"alpha":"a","mike":5,"none":null,"zulu":"z"}`, string(raw))
}

func TestCanonicalJSONDoesNotEscapeHTML(t *testing.T) {
	raw, err := canonicalJSON(map[string]any{"reason": "a<b & c>d"})
	require.NoError(t, err)
	assert.Equal(t, `{"reason":"a<b & c>d"}`, string(raw))
}

func TestFingerprintDeterministic(t *testing.T) {
	in := TransferInput{
		IdempotencyKey: "idem-1",
		FromWalletID:   uuid.MustParse("00000000-0000-0000-0000-0000000000aa"),
		ToWalletID:     uuid.MustParse("00000000-0000-0000-0000-0000000000bb"),
		Amount:         "10.25",
		Asset:          "USD",
	}

	h1, raw1, err := fingerprint(transferPayload(in))
	require.NoError(t, err)
	h2, raw2, err := fingerprint(transferPayload(in))
	require.NoError(t, err)

	assert.Equal(t, h1, h2)
	assert.Equal(t, raw1, raw2)
	assert.Len(t, h1, 64)
	assert.Equal(t, h1, string([]byte(h1)), "digest must be lowercase hex")
	assert.Regexp(t, `^[0-9a-f]{64}$`, h1)
}

func TestFingerprintSensitiveToAmountText(t *testing.T) {
	base := TransferInput{
		FromWalletID: uuid.MustParse("00000000-0000-0000-0000-0000000000aa"),
		ToWalletID:   uuid.MustParse("00000000-0000-0000-0000-0000000000bb"),
		Asset:        "USD",
	}

	a := base
	a.Amount = "10.20"
	b := base
	b.Amount = "10.2"

	ha, _, err := fingerprint(transferPayload(a))
	require.NoError(t, err)
	hb, _, err := fingerprint(transferPayload(b))
	require.NoError(t, err)

	// Textually distinct amounts are distinct payloads even though the
	// decimal values are equal.
	assert.NotEqual(t, ha, hb)
}

func TestFingerprintCoversVersionExpectations(t *testing.T) {
	ver := int64(3)
	with := TransferInput{
		FromWalletID:        uuid.MustParse("00000000-0000-0000-0000-0000000000aa"),
		ToWalletID:          uuid.MustParse("00000000-0000-0000-0000-0000000000bb"),
		Amount:              "1",
		Asset:               "USD",
		ExpectedFromVersion: &ver,
	}
	without := with
	without.ExpectedFromVersion = nil

	hWith, rawWith, err := fingerprint(transferPayload(with))
	require.NoError(t, err)
	hWithout, rawWithout, err := fingerprint(transferPayload(without))
	require.NoError(t, err)

	assert.NotEqual(t, hWith, hWithout)
	assert.Contains(t, string(rawWith), `"expected_from_version":3`)
	assert.Contains(t, string(rawWithout), `"expected_from_version":null`)
}

func TestAdjustmentPayloadShape(t *testing.T) {
	in := AdjustmentInput{
		WalletID:  uuid.MustParse("00000000-0000-0000-0000-0000000000aa"),
		Amount:    "5.00",
		Direction: DirectionDebit,
		Asset:     "USD",
		Reason:    "chargeback",
	}

	_, raw, err := fingerprint(adjustmentPayload(in))
	require.NoError(t, err)
	assert.Equal(t,
		`{"amount":"5.00","asset":"USD","direction":"debit","expected_wallet_version":null,"reason":"chargeback","wallet_id":"00000000-0000-0000-0000-0000000000aa"}`,
		string(raw),
	)
}
