package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/alphaexam/alphaexam-backend/internal/response"
	"github.com/alphaexam/alphaexam-backend/internal/service"
	"github.com/gin-gonic/gin"
)

const (
	// ContextKeyIdentity is the Gin context key for the resolved caller.
	ContextKeyIdentity = "identity"
)

// TokenResolver verifies bearer tokens and maps them to local identities.
// *service.AuthService satisfies it.
type TokenResolver interface {
	ValidateToken(tokenStr string) (*service.Claims, error)
	Resolve(ctx context.Context, claims *service.Claims) (*service.Identity, error)
}

// RequireAuth validates a JWT from the Authorization header and stores the
// caller's identity in the context.
func RequireAuth(auth TokenResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		authenticate(c, auth, bearerToken(c))
	}
}

// RequireWSAuth validates a JWT from the query param ?token=...
// Used for WebSocket upgrade requests, which cannot carry headers from browsers.
func RequireWSAuth(auth TokenResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		authenticate(c, auth, c.Query("token"))
	}
}

func authenticate(c *gin.Context, auth TokenResolver, tokenStr string) {
	if tokenStr == "" {
		response.AbortFail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	claims, err := auth.ValidateToken(tokenStr)
	if err != nil {
		response.AbortFail(c, http.StatusUnauthorized, response.ErrTokenInvalid)
		return
	}

	ident, err := auth.Resolve(c.Request.Context(), claims)
	if err != nil {
		if errors.Is(err, service.ErrInvalidToken) {
			response.AbortFail(c, http.StatusUnauthorized, response.ErrTokenInvalid)
			return
		}
		_ = c.Error(err)
		response.AbortFail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	c.Set(ContextKeyIdentity, *ident)
	c.Next()
}

// GetIdentity retrieves the authenticated caller from the Gin context.
func GetIdentity(c *gin.Context) (service.Identity, bool) {
	val, exists := c.Get(ContextKeyIdentity)
	if !exists {
		return service.Identity{}, false
	}
	ident, ok := val.(service.Identity)
	return ident, ok
}

func bearerToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return ""
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
		return strings.TrimSpace(parts[1])
	}
	return ""
}
