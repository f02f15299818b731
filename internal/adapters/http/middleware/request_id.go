// Package middleware contains the HTTP middleware chain: recovery, request
// correlation, logging, metrics, and bearer auth.
package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ledgercore/walletd/internal/pkg/logger"
)

const (
	// RequestIDHeader carries the correlation id in both directions.
	RequestIDHeader = "X-Request-ID"
	// RequestIDContextKey is the gin context key for the correlation id.
	RequestIDContextKey = "request_id"
)

// RequestID assigns a correlation id to every request. A client-supplied
// X-Request-ID is honored; otherwise a new UUID is generated. The id is
// stamped into the request context so all log lines of the request carry it.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.New().String()
		}

		c.Set(RequestIDContextKey, requestID)
		c.Header(RequestIDHeader, requestID)
		c.Request = c.Request.WithContext(logger.WithRequestID(c.Request.Context(), requestID))

		c.Next()
	}
}

// GetRequestID returns the correlation id from the gin context.
func GetRequestID(c *gin.Context) string {
	if id, exists := c.Get(RequestIDContextKey); exists {
		if s, ok := id.(string); ok {
			return s
		}
	}
	return ""
}
