// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file authenticates requests carrying a bearer identity token. On
// success the verified identity is stored in the Gin context ("identity")
// and the user ID under "userID", which the rate limiter and access logs
// already understand. On failure the request is aborted with 401 and the
// standard error envelope.
package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-recently-viewed/internal/auth"
)

const identityKey = "identity"

// Authenticate returns a middleware that requires a valid bearer token.
func Authenticate(v auth.Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := auth.BearerToken(c.GetHeader("Authorization"))
		if err == nil {
			var id auth.Identity
			if id, err = v.VerifyToken(c.Request.Context(), token); err == nil {
				c.Set(identityKey, id)
				c.Set("userID", id.UserID)
				c.Next()
				return
			}
		}

		reason := auth.ReasonOf(err)
		LoggerFrom(c).Warn().Err(err).Str("reason", reason.String()).Msg("authentication failed")
		abortWith(c, http.StatusUnauthorized, "unauthorized", reason.String())
	}
}

// IdentityFrom returns the identity stored by Authenticate.
func IdentityFrom(c *gin.Context) (auth.Identity, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return auth.Identity{}, false
	}
	id, ok := v.(auth.Identity)
	return id, ok
}
