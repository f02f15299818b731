package http

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgercore/walletd/internal/auth"
	"github.com/ledgercore/walletd/internal/config"
	"github.com/ledgercore/walletd/internal/ledger"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubService struct{}

func (stubService) CreateWallet(_ context.Context, walletID uuid.UUID, asset string) (*ledger.Wallet, error) {
	return &ledger.Wallet{WalletID: walletID, Asset: asset, CreatedAt: time.Now().UTC()}, nil
}

func (stubService) GetBalance(_ context.Context, walletID uuid.UUID) (*ledger.Balance, error) {
	return &ledger.Balance{WalletID: walletID, Asset: "USD", Balance: decimal.Zero, AsOf: time.Now().UTC()}, nil
}

func (stubService) AuditBalance(_ context.Context, walletID uuid.UUID) (*ledger.Balance, error) {
	return &ledger.Balance{WalletID: walletID, Asset: "USD", Balance: decimal.Zero}, nil
}

func (stubService) PostTransfer(context.Context, ledger.TransferInput) (*ledger.Transaction, error) {
	return &ledger.Transaction{TransactionID: uuid.New(), OperationScope: ledger.ScopeTransfer, Status: ledger.StatusCommitted}, nil
}

func (stubService) PostAdjustment(context.Context, ledger.AdjustmentInput) (*ledger.Transaction, error) {
	return &ledger.Transaction{TransactionID: uuid.New(), OperationScope: ledger.ScopeAdjustment, Status: ledger.StatusCommitted}, nil
}

func (stubService) GetTransaction(_ context.Context, txID uuid.UUID) (*ledger.Transaction, error) {
	return &ledger.Transaction{TransactionID: txID, OperationScope: ledger.ScopeTransfer, Status: ledger.StatusCommitted}, nil
}

func testRouter(t *testing.T) *gin.Engine {
	t.Helper()

	cfg := config.Test()
	return NewRouter(&RouterConfig{
		Logger:       slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)),
		Service:      stubService{},
		Verifier:     auth.NewVerifier(cfg.Auth),
		ServiceName:  "walletd",
		DefaultAsset: "USD",
		Environment:  "test",
	})
}

func token(t *testing.T, scope string) string {
	t.Helper()

	claims := jwt.MapClaims{
		"sub":   "router-test",
		"aud":   "walletd",
		"exp":   time.Now().Add(time.Hour).Unix(),
		"scope": scope,
	}
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return "Bearer " + raw
}

func serve(router *gin.Engine, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	var raw []byte
	if body != nil {
		raw, _ = json.Marshal(body)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestProbesAndMetricsAreOpen(t *testing.T) {
	router := testRouter(t)

	assert.Equal(t, http.StatusOK, serve(router, http.MethodGet, "/v1/health", nil, nil).Code)
	assert.Equal(t, http.StatusOK, serve(router, http.MethodGet, "/v1/ready", nil, nil).Code)

	w := serve(router, http.MethodGet, "/metrics", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "go_goroutines")
}

func TestAPIRequiresToken(t *testing.T) {
	router := testRouter(t)

	paths := []struct {
		method, path string
	}{
		{http.MethodPost, "/v1/wallets"},
		{http.MethodGet, "/v1/wallets/" + uuid.NewString() + "/balance"},
		{http.MethodGet, "/v1/wallets/" + uuid.NewString() + "/balance/audit"},
		{http.MethodPost, "/v1/transfers"},
		{http.MethodPost, "/v1/adjustments"},
		{http.MethodGet, "/v1/transactions/" + uuid.NewString()},
	}
	for _, p := range paths {
		w := serve(router, p.method, p.path, nil, nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code, "%s %s", p.method, p.path)
	}
}

func TestScopeEnforcementPerRoute(t *testing.T) {
	router := testRouter(t)

	// read scope cannot write
	w := serve(router, http.MethodPost, "/v1/wallets",
		gin.H{"wallet_id": uuid.New()},
		map[string]string{"Authorization": token(t, auth.ScopeRead)})
	assert.Equal(t, http.StatusForbidden, w.Code)

	// write scope cannot adjust
	w = serve(router, http.MethodPost, "/v1/adjustments",
		gin.H{"wallet_id": uuid.New(), "amount": "1", "direction": "credit", "reason": "r"},
		map[string]string{
			"Authorization":   token(t, auth.ScopeRead+" "+auth.ScopeWrite),
			"Idempotency-Key": "k",
		})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), auth.ScopeAdmin)

	// admin scope can adjust
	w = serve(router, http.MethodPost, "/v1/adjustments",
		gin.H{"wallet_id": uuid.New(), "amount": "1", "direction": "credit", "reason": "r"},
		map[string]string{
			"Authorization":   token(t, auth.ScopeAdmin),
			"Idempotency-Key": "k",
		})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestTransferThroughFullChain(t *testing.T) {
	router := testRouter(t)

	w := serve(router, http.MethodPost, "/v1/transfers", gin.H{
		"from_wallet_id": uuid.New(),
		"to_wallet_id":   uuid.New(),
		"amount":         "3.50",
	}, map[string]string{
		"Authorization":   token(t, auth.ScopeWrite),
		"Idempotency-Key": "chain-1",
	})

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"operation_scope":"transfer"`)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestUnknownRouteIs404(t *testing.T) {
	router := testRouter(t)

	w := serve(router, http.MethodGet, "/v1/nope", nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "endpoint not found")
}
