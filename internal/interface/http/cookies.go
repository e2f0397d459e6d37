package http

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const (
	oauthStateCookieName = "oauth_state"
	oauthStateTTL        = 5 * time.Minute
)

// oauthStateCookie carries the PKCE round trip between /auth/google and the
// callback.
type oauthStateCookie struct {
	State        string `json:"state"`
	CodeVerifier string `json:"verifier"`
	Next         string `json:"next,omitempty"`
}

// writeCookie sets an HttpOnly, SameSite=Lax cookie. A negative maxAge deletes it.
func writeCookie(c *gin.Context, name, value string, maxAge int) {
	if name == "" {
		return
	}
	secure := c.Request.TLS != nil || c.GetHeader("X-Forwarded-Proto") == "https"
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(name, value, maxAge, "/", "", secure, true)
}

func setOAuthStateCookie(c *gin.Context, payload oauthStateCookie) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return
	}
	writeCookie(c, oauthStateCookieName, base64.RawURLEncoding.EncodeToString(raw), int(oauthStateTTL.Seconds()))
}

func clearOAuthStateCookie(c *gin.Context) {
	writeCookie(c, oauthStateCookieName, "", -1)
}

func readOAuthStateCookie(c *gin.Context) (oauthStateCookie, bool) {
	var payload oauthStateCookie
	value, err := c.Cookie(oauthStateCookieName)
	if err != nil {
		return payload, false
	}
	raw, err := base64.RawURLEncoding.DecodeString(value)
	if err != nil || json.Unmarshal(raw, &payload) != nil {
		return oauthStateCookie{}, false
	}
	return payload, payload.State != "" && payload.CodeVerifier != ""
}

func setSessionCookie(c *gin.Context, name, token string, ttl time.Duration) {
	writeCookie(c, name, token, int(ttl.Seconds()))
}

func clearSessionCookie(c *gin.Context, name string) {
	writeCookie(c, name, "", -1)
}
