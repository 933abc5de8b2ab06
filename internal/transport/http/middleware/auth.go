package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/DrynaaCode/vegedex-v2-tsc/internal/core/port"
)

const (
	// AccessCookieName holds the signed access token.
	AccessCookieName = "token"
	// RefreshCookieName holds the opaque refresh token.
	RefreshCookieName = "refreshToken"

	tokenIdentityKey = "token_identity"
)

// TokenVerifier validates access tokens.
type TokenVerifier interface {
	VerifyAccess(token string) (port.AccessClaims, error)
}

// TokenIdentity is what a verified access token claims. ClaimedRole is a
// snapshot from issuance and must not be used for authorization.
type TokenIdentity struct {
	SubjectID   string
	ClaimedRole string
}

// RequireAuth rejects requests without a valid access token cookie.
func RequireAuth(verifier TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := accessToken(c)
		if token == "" {
			abortWithMessage(c, http.StatusUnauthorized, "not authenticated")
			return
		}
		if !attachIdentity(c, verifier, token) {
			abortWithMessage(c, http.StatusUnauthorized, "invalid token")
			return
		}
		c.Next()
	}
}

// OptionalAuth attaches the token identity when a cookie is present. A
// missing cookie continues anonymously; an invalid one is rejected.
func OptionalAuth(verifier TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := accessToken(c)
		if token == "" {
			c.Next()
			return
		}
		if !attachIdentity(c, verifier, token) {
			abortWithMessage(c, http.StatusUnauthorized, "invalid token")
			return
		}
		c.Next()
	}
}

func accessToken(c *gin.Context) string {
	token, err := c.Cookie(AccessCookieName)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(token)
}

func attachIdentity(c *gin.Context, verifier TokenVerifier, token string) bool {
	claims, err := verifier.VerifyAccess(token)
	if err != nil || claims.SubjectID == "" {
		return false
	}

	c.Set(tokenIdentityKey, TokenIdentity{SubjectID: claims.SubjectID, ClaimedRole: claims.Role})
	GetRequestContext(c).AccountID = claims.SubjectID
	return true
}

// GetTokenIdentity returns the identity attached by RequireAuth or OptionalAuth.
func GetTokenIdentity(c *gin.Context) (TokenIdentity, bool) {
	v, ok := c.Get(tokenIdentityKey)
	if !ok {
		return TokenIdentity{}, false
	}
	identity, ok := v.(TokenIdentity)
	return identity, ok
}
