// Package auth validates HMAC-signed bearer tokens and enforces scopes.
//
// Tokens are symmetric (HS256 family) JWTs carrying an audience claim and a
// space-separated "scope" claim, e.g. "wallet:read wallet:write". Asymmetric
// algorithms are rejected outright; the verifier never trusts the token's own
// alg header beyond the configured allow list.
package auth

import (
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/ledgercore/walletd/internal/config"
	domainerrors "github.com/ledgercore/walletd/internal/domain/errors"
)

// Scopes recognized by the API.
const (
	ScopeRead  = "wallet:read"
	ScopeWrite = "wallet:write"
	ScopeAdmin = "wallet:admin"
)

// Context is the identity extracted from a validated token.
type Context struct {
	Subject string
	Scopes  map[string]struct{}
}

// HasScope reports whether the token granted the scope.
func (c *Context) HasScope(scope string) bool {
	_, ok := c.Scopes[scope]
	return ok
}

// Verifier validates bearer tokens.
type Verifier struct {
	secret    []byte
	audience  string
	methods   []string
	parseOpts []jwt.ParserOption
}

// NewVerifier builds a verifier from the auth configuration.
func NewVerifier(cfg config.AuthConfig) *Verifier {
	methods := cfg.Algorithms()
	return &Verifier{
		secret:   []byte(cfg.JWTSecret),
		audience: cfg.JWTAudience,
		methods:  methods,
		parseOpts: []jwt.ParserOption{
			jwt.WithValidMethods(methods),
			jwt.WithAudience(cfg.JWTAudience),
			jwt.WithExpirationRequired(),
		},
	}
}

// Verify parses and validates a raw token string.
func (v *Verifier) Verify(raw string) (*Context, error) {
	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		return v.secret, nil
	}, v.parseOpts...)
	if err != nil {
		return nil, domainerrors.Wrap(domainerrors.ErrUnauthorized, "invalid token", err)
	}

	subject := "unknown"
	if sub, err := claims.GetSubject(); err == nil && sub != "" {
		subject = sub
	}

	scopeClaim, _ := claims["scope"].(string)
	scopes := make(map[string]struct{})
	for _, s := range strings.Fields(scopeClaim) {
		scopes[s] = struct{}{}
	}

	return &Context{Subject: subject, Scopes: scopes}, nil
}

// FromBearerHeader extracts and validates the token from an Authorization
// header value.
func (v *Verifier) FromBearerHeader(header string) (*Context, error) {
	const prefix = "Bearer "
	if header == "" || !strings.HasPrefix(header, prefix) {
		return nil, domainerrors.Unauthorized("missing bearer token")
	}
	return v.Verify(strings.TrimSpace(strings.TrimPrefix(header, prefix)))
}

// RequireScope fails with Forbidden when the context lacks the scope.
func RequireScope(ctx *Context, scope string) error {
	if ctx == nil || !ctx.HasScope(scope) {
		return domainerrors.Forbidden("missing scope: %s", scope)
	}
	return nil
}
