package middleware

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgercore/walletd/internal/auth"
	"github.com/ledgercore/walletd/internal/config"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// ============================================
// RequestID
// ============================================

func TestRequestIDGenerated(t *testing.T) {
	router := gin.New()
	router.Use(RequestID())
	router.GET("/", func(c *gin.Context) {
		assert.NotEmpty(t, GetRequestID(c))
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))
}

func TestRequestIDHonorsClientHeader(t *testing.T) {
	router := gin.New()
	router.Use(RequestID())
	router.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "client-supplied-id")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, "client-supplied-id", w.Header().Get(RequestIDHeader))
}

// ============================================
// Recovery
// ============================================

func TestRecoveryConvertsPanicTo500(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewJSONHandler(&buf, nil))

	router := gin.New()
	router.Use(Recovery(&RecoveryConfig{Logger: log, EnableStackTrace: true}))
	router.GET("/boom", func(c *gin.Context) { panic("kaboom") })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"internal error"}`, w.Body.String())
	assert.Contains(t, buf.String(), "kaboom")
	assert.Contains(t, buf.String(), "panic recovered")
}

// ============================================
// Logging
// ============================================

func TestLoggingEmitsOneLine(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewJSONHandler(&buf, nil))

	router := gin.New()
	router.Use(Logging(&LoggingConfig{Logger: log}))
	router.GET("/ok", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ok", nil))

	assert.Contains(t, buf.String(), `"path":"/ok"`)
	assert.Contains(t, buf.String(), `"status":200`)
}

func TestLoggingSkipsConfiguredPaths(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewJSONHandler(&buf, nil))

	router := gin.New()
	router.Use(Logging(&LoggingConfig{Logger: log, SkipPaths: []string{"/v1/health"}}))
	router.GET("/v1/health", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/health", nil))

	assert.Empty(t, buf.String())
}

// ============================================
// Auth
// ============================================

func authTestRouter(t *testing.T, scope string) *gin.Engine {
	t.Helper()
	verifier := auth.NewVerifier(config.AuthConfig{
		JWTSecret:     "test-secret",
		JWTAudience:   "walletd",
		JWTAlgorithms: "HS256",
	})

	router := gin.New()
	group := router.Group("/v1")
	group.Use(Auth(verifier))
	group.GET("/protected", RequireScope(scope), func(c *gin.Context) {
		authCtx := GetAuthContext(c)
		require.NotNil(t, authCtx)
		c.JSON(http.StatusOK, gin.H{"subject": authCtx.Subject})
	})
	return router
}

func bearerToken(t *testing.T, scope string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   "svc-test",
		"aud":   "walletd",
		"scope": scope,
		"exp":   time.Now().Add(time.Hour).Unix(),
	})
	raw, err := token.SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return "Bearer " + raw
}

func TestAuthMissingToken(t *testing.T) {
	router := authTestRouter(t, auth.ScopeRead)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/protected", nil))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthValidTokenWithScope(t *testing.T) {
	router := authTestRouter(t, auth.ScopeRead)

	req := httptest.NewRequest(http.MethodGet, "/v1/protected", nil)
	req.Header.Set("Authorization", bearerToken(t, "wallet:read wallet:write"))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "svc-test")
}

func TestAuthValidTokenMissingScope(t *testing.T) {
	router := authTestRouter(t, auth.ScopeAdmin)

	req := httptest.NewRequest(http.MethodGet, "/v1/protected", nil)
	req.Header.Set("Authorization", bearerToken(t, "wallet:read"))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestAuthMalformedToken(t *testing.T) {
	router := authTestRouter(t, auth.ScopeRead)

	req := httptest.NewRequest(http.MethodGet, "/v1/protected", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
