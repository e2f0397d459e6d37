package http

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/yanqian/dermaai/internal/domain/auth"
)

const authClaimsKey = "auth_claims"

func setClaims(c *gin.Context, claims auth.Claims) {
	c.Set(authClaimsKey, claims)
}

func getClaims(c *gin.Context) (auth.Claims, bool) {
	value, ok := c.Get(authClaimsKey)
	if !ok {
		return auth.Claims{}, false
	}
	claims, ok := value.(auth.Claims)
	return claims, ok
}

// sessionKey names the conversation state of the caller. Tokens minted before
// sid existed fall back to a per-user key.
func sessionKey(claims auth.Claims) string {
	if claims.SessionID != "" {
		return claims.SessionID
	}
	return "user:" + strconv.FormatInt(claims.UserID, 10)
}
