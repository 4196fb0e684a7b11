package handlers

import (
	"strings"

	"github.com/pocketbase/pocketbase/core"

	"ticket-marketplace/internal/status"
	"ticket-marketplace/security"
)

const claimsKey = "claims"

// Authenticator guards routes with bearer tokens.
type Authenticator struct {
	tokens *security.TokenIssuer
}

func NewAuthenticator(tokens *security.TokenIssuer) *Authenticator {
	return &Authenticator{tokens: tokens}
}

func (a *Authenticator) RequireAuth(e *core.RequestEvent) error {
	header := e.Request.Header.Get("Authorization")
	token, found := strings.CutPrefix(header, "Bearer ")
	if !found || token == "" {
		return fail(e, status.New(status.ErrAuth, "missing bearer token"))
	}
	claims, err := a.tokens.Parse(token)
	if err != nil {
		return fail(e, status.New(status.ErrAuth, "invalid or expired token"))
	}
	e.Set(claimsKey, claims)
	return e.Next()
}

// RequireAdmin must run after RequireAuth.
func (a *Authenticator) RequireAdmin(e *core.RequestEvent) error {
	claims := claimsFrom(e)
	if claims == nil || !claims.IsAdmin() {
		return fail(e, status.ErrForbidden)
	}
	return e.Next()
}

func claimsFrom(e *core.RequestEvent) *security.Claims {
	claims, _ := e.Get(claimsKey).(*security.Claims)
	return claims
}

func userID(e *core.RequestEvent) string {
	if claims := claimsFrom(e); claims != nil {
		return claims.UserID
	}
	return ""
}
