package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/aura-spaces/backend/internal/auth"
	"github.com/aura-spaces/backend/pkg/response"
)

const (
	// ContextUserID is the key for the resolved internal user ID in gin context.
	ContextUserID = auth.ContextUserID
	// ContextIdentity is the key for the verified external identity in gin context.
	ContextIdentity = "identity"
)

// Auth returns a middleware that validates the identity-provider bearer
// token and resolves it to an internal user (lazy get-or-create). Requests
// without a valid credential are rejected with 401.
func Auth(verifier *auth.TokenVerifier, resolver auth.Resolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := bearerIdentity(c, verifier)
		if !ok {
			c.Abort()
			return
		}
		user, err := resolver.Resolve(c.Request.Context(), identity)
		if err != nil {
			response.Internal(c, "failed to resolve identity")
			c.Abort()
			return
		}
		c.Set(ContextIdentity, identity)
		c.Set(ContextUserID, user.ID)
		c.Next()
	}
}

// OptionalAuth resolves a bearer credential when one is present but lets
// anonymous requests through. Used on guest-capable endpoints (join, ws):
// a malformed credential is still a hard 401, absence is not.
func OptionalAuth(verifier *auth.TokenVerifier, resolver auth.Resolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetHeader("Authorization") == "" {
			c.Next()
			return
		}
		identity, ok := bearerIdentity(c, verifier)
		if !ok {
			c.Abort()
			return
		}
		user, err := resolver.Resolve(c.Request.Context(), identity)
		if err != nil {
			response.Internal(c, "failed to resolve identity")
			c.Abort()
			return
		}
		c.Set(ContextIdentity, identity)
		c.Set(ContextUserID, user.ID)
		c.Next()
	}
}

func bearerIdentity(c *gin.Context, verifier *auth.TokenVerifier) (*auth.Identity, bool) {
	header := c.GetHeader("Authorization")
	if header == "" {
		response.Unauthorized(c, "missing authorization header")
		return nil, false
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		response.Unauthorized(c, "invalid authorization header")
		return nil, false
	}
	identity, err := verifier.Verify(parts[1])
	if err != nil {
		response.Unauthorized(c, "invalid or expired token")
		return nil, false
	}
	return identity, true
}
