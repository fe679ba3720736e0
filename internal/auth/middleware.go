package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// CookieName is the browser session cookie set at login.
const CookieName = "session"

const principalKey = "principal"

// Principal is the authenticated caller.
type Principal struct {
	Subject string `json:"username"`
	Role    string `json:"role"`
}

// ErrRevoked is wrapped by a Verifier when the token's subject may no longer act.
var ErrRevoked = errors.New("principal revoked")

// Verifier re-reads a token's principal on every request and returns the
// current one. A nil Verifier trusts the token for its whole lifetime.
type Verifier func(ctx context.Context, p Principal) (Principal, error)

// Authenticate accepts an HS256 bearer token or the session cookie.
func Authenticate(signingKey, issuer string, verify Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr := bearer(c.GetHeader("Authorization"))
		if tokenStr == "" {
			tokenStr, _ = c.Cookie(CookieName)
		}
		if tokenStr == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}
		claims, err := Parse(tokenStr, signingKey, issuer)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		p := Principal{Subject: claims.Subject, Role: claims.Role}
		if verify != nil {
			p, err = verify(c.Request.Context(), p)
			if errors.Is(err, ErrRevoked) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "session revoked"})
				return
			}
			if err != nil {
				_ = c.Error(err)
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
				return
			}
		}
		c.Set(principalKey, p)
		c.Next()
	}
}

// RequireRoles lets the request through only when the principal holds one of roles.
func RequireRoles(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := PrincipalFrom(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
			return
		}
		for _, r := range roles {
			if p.Role == r {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
	}
}

// PrincipalFrom returns the caller set by Authenticate.
func PrincipalFrom(c *gin.Context) (Principal, bool) {
	v, ok := c.Get(principalKey)
	if !ok {
		return Principal{}, false
	}
	p, ok := v.(Principal)
	return p, ok
}

func bearer(authz string) string {
	if len(authz) < len("bearer ") || !strings.EqualFold(authz[:len("bearer ")], "bearer ") {
		return ""
	}
	return strings.TrimSpace(authz[len("bearer "):])
}
