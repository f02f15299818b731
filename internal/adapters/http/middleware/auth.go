package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/ledgercore/walletd/internal/adapters/http/common"
	"github.com/ledgercore/walletd/internal/auth"
	"github.com/ledgercore/walletd/internal/pkg/logger"
)

// AuthContextKey is the gin context key for the validated token context.
const AuthContextKey = "auth_context"

// Auth validates the bearer token on every request of the group and stores
// the resulting identity. The token subject is stamped into the request
// context for log correlation.
func Auth(verifier *auth.Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		authCtx, err := verifier.FromBearerHeader(c.GetHeader("Authorization"))
		if err != nil {
			common.RespondError(c, err)
			return
		}

		c.Set(AuthContextKey, authCtx)
		c.Request = c.Request.WithContext(logger.WithSubject(c.Request.Context(), authCtx.Subject))

		c.Next()
	}
}

// RequireScope rejects requests whose token lacks the scope. Must run after
// Auth.
func RequireScope(scope string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := auth.RequireScope(GetAuthContext(c), scope); err != nil {
			common.RespondError(c, err)
			return
		}
		c.Next()
	}
}

// GetAuthContext returns the validated identity, or nil outside an
// authenticated group.
func GetAuthContext(c *gin.Context) *auth.Context {
	if v, exists := c.Get(AuthContextKey); exists {
		if ctx, ok := v.(*auth.Context); ok {
			return ctx
		}
	}
	return nil
}
