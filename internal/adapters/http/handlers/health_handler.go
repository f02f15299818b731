package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ledgercore/walletd/internal/adapters/http/common"
	domainerrors "github.com/ledgercore/walletd/internal/domain/errors"
)

// ReadinessCheck verifies the store is reachable and the schema is current.
type ReadinessCheck func(ctx context.Context) error

// HealthHandler serves the liveness and readiness probes.
type HealthHandler struct {
	serviceName string
	readiness   ReadinessCheck
}

// NewHealthHandler creates the handler. readiness may be nil, in which case
// /v1/ready only reports liveness.
func NewHealthHandler(serviceName string, readiness ReadinessCheck) *HealthHandler {
	return &HealthHandler{serviceName: serviceName, readiness: readiness}
}

// Health handles GET /v1/health. Liveness only; it never touches the store.
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": h.serviceName,
	})
}

// Ready handles GET /v1/ready. CP-first: an unreachable store or a missing
// migration means not ready, never a degraded 200.
func (h *HealthHandler) Ready(c *gin.Context) {
	if h.readiness != nil {
		if err := h.readiness(c.Request.Context()); err != nil {
			common.RespondError(c, domainerrors.Unavailable("not ready", err))
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}
