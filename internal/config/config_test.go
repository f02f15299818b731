package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "walletd", cfg.App.Name)
	assert.Equal(t, 3, cfg.Database.ConnectTimeoutSeconds)
	assert.Equal(t, "USD", cfg.Ledger.DefaultAsset)
	assert.Equal(t, "00000000-0000-0000-0000-000000000001", cfg.Ledger.SystemWalletID)
	assert.False(t, cfg.Ledger.AllowStaleReads, "stale reads must default to off")
	assert.Equal(t, []string{"HS256"}, cfg.Auth.Algorithms())
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://app@db:5432/ledger")
	t.Setenv("DB_CONNECT_TIMEOUT_SECONDS", "7")
	t.Setenv("JWT_SECRET", "super-secret")
	t.Setenv("JWT_AUDIENCE", "payments")
	t.Setenv("JWT_ALGORITHMS", "HS256, HS512")
	t.Setenv("DEFAULT_ASSET", "EUR")
	t.Setenv("SYSTEM_WALLET_ID", "11111111-1111-1111-1111-111111111111")
	t.Setenv("ALLOW_STALE_READS", "false")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres://app@db:5432/ledger", cfg.Database.URL)
	assert.Equal(t, 7, cfg.Database.ConnectTimeoutSeconds)
	assert.Equal(t, "super-secret", cfg.Auth.JWTSecret)
	assert.Equal(t, "payments", cfg.Auth.JWTAudience)
	assert.Equal(t, []string{"HS256", "HS512"}, cfg.Auth.Algorithms())
	assert.Equal(t, "EUR", cfg.Ledger.DefaultAsset)

	sys, err := cfg.Ledger.SystemWallet()
	require.NoError(t, err)
	assert.Equal(t, "11111111-1111-1111-1111-111111111111", sys.String())
}

func TestValidateRejectsBadSystemWallet(t *testing.T) {
	cfg := Test()
	cfg.Ledger.SystemWalletID = "not-a-uuid"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "system_wallet_id")
}

func TestValidateRejectsAsymmetricAlgorithm(t *testing.T) {
	cfg := Test()
	cfg.Auth.JWTAlgorithms = "RS256"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported jwt algorithm")
}

func TestValidateRejectsDefaultSecretInProduction(t *testing.T) {
	cfg := Test()
	cfg.App.Environment = "production"
	cfg.Auth.JWTSecret = "dev-secret-change-me"

	err := cfg.Validate()
	require.Error(t, err)
}
