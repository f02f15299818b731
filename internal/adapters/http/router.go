// Package http assembles the gin engine: middleware chain, routes, and the
// server lifecycle.
//
// Composition root for the transport layer: handlers receive only the engine
// surface they use, middleware is applied per group.
package http

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/ledgercore/walletd/internal/adapters/http/common"
	"github.com/ledgercore/walletd/internal/adapters/http/handlers"
	"github.com/ledgercore/walletd/internal/adapters/http/middleware"
	"github.com/ledgercore/walletd/internal/auth"
)

// RouterConfig carries everything the router needs.
type RouterConfig struct {
	Logger       *slog.Logger
	Service      handlers.LedgerService
	Verifier     *auth.Verifier
	Readiness    handlers.ReadinessCheck
	ServiceName  string
	DefaultAsset string
	Environment  string
	TracingOn    bool
}

// NewRouter builds the configured gin engine.
//
// Middleware order: recovery first, then request id so every later line has
// a correlation id, then logging, metrics, and tracing. Auth applies only to
// the /v1 API group; probes and /metrics stay open.
func NewRouter(cfg *RouterConfig) *gin.Engine {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}

	handlers.SetupValidator()

	router := gin.New()
	router.Use(middleware.Recovery(&middleware.RecoveryConfig{
		Logger:           log,
		EnableStackTrace: cfg.Environment != "production",
	}))
	router.Use(middleware.RequestID())
	router.Use(middleware.Logging(&middleware.LoggingConfig{
		Logger:    log,
		SkipPaths: []string{"/v1/health", "/v1/ready", "/metrics"},
	}))
	router.Use(middleware.Metrics())
	if cfg.TracingOn {
		router.Use(otelgin.Middleware(cfg.ServiceName))
	}

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	healthHandler := handlers.NewHealthHandler(cfg.ServiceName, cfg.Readiness)
	router.GET("/v1/health", healthHandler.Health)
	router.GET("/v1/ready", healthHandler.Ready)

	walletHandler := handlers.NewWalletHandler(cfg.Service, cfg.DefaultAsset)
	txHandler := handlers.NewTransactionHandler(cfg.Service, cfg.DefaultAsset)

	v1 := router.Group("/v1")
	v1.Use(middleware.Auth(cfg.Verifier))
	{
		v1.POST("/wallets", middleware.RequireScope(auth.ScopeWrite), walletHandler.CreateWallet)
		v1.GET("/wallets/:id/balance", middleware.RequireScope(auth.ScopeRead), walletHandler.GetBalance)
		v1.GET("/wallets/:id/balance/audit", middleware.RequireScope(auth.ScopeRead), walletHandler.AuditBalance)

		v1.POST("/transfers", middleware.RequireScope(auth.ScopeWrite), txHandler.PostTransfer)
		v1.POST("/adjustments", middleware.RequireScope(auth.ScopeAdmin), txHandler.PostAdjustment)

		v1.GET("/transactions/:id", middleware.RequireScope(auth.ScopeRead), txHandler.GetTransaction)
	}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(404, common.ErrorBody{Error: "endpoint not found"})
	})

	return router
}
