package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yanqian/dermaai/internal/domain/auth"
	apperrors "github.com/yanqian/dermaai/pkg/errors"
)

// authMiddleware accepts a bearer token or the session cookie set at login.
func authMiddleware(svc auth.Service, cookieName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, herr := requestToken(c, cookieName)
		if herr != nil {
			abortWithError(c, herr)
			return
		}
		claims, err := svc.ValidateToken(c.Request.Context(), token)
		if err != nil {
			status := http.StatusUnauthorized
			code := apperrors.CodeInvalidToken
			if !apperrors.IsCode(err, apperrors.CodeInvalidToken) {
				status = http.StatusInternalServerError
				code = codeAuthFailed
			}
			abortWithError(c, NewHTTPError(status, code, errMessage(err), err))
			return
		}
		setClaims(c, claims)
		c.Next()
	}
}

func requestToken(c *gin.Context, cookieName string) (string, *HTTPError) {
	if header := c.GetHeader("Authorization"); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			return "", NewHTTPError(http.StatusUnauthorized, codeUnauthorized, "invalid authorization header", nil)
		}
		if token := strings.TrimSpace(parts[1]); token != "" {
			return token, nil
		}
	}
	if cookieName != "" {
		if token, err := c.Cookie(cookieName); err == nil && token != "" {
			return token, nil
		}
	}
	return "", NewHTTPError(http.StatusUnauthorized, codeUnauthorized, "Please log in first.", nil)
}
