package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yanqian/dermaai/internal/domain/auth"
	apperrors "github.com/yanqian/dermaai/pkg/errors"
)

// Register creates an account.
func (h *Handler) Register(c *gin.Context) {
	var req auth.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, apperrors.CodeInvalidRequest, errMessage(err), err))
		return
	}
	user, err := h.authSvc.Register(c.Request.Context(), req)
	if err != nil {
		abortWithError(c, fromAppError(err, apperrors.CodeAuthError))
		return
	}
	c.JSON(http.StatusCreated, gin.H{"user": user})
}

// Login issues tokens and sets the session cookie.
func (h *Handler) Login(c *gin.Context) {
	var req auth.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, apperrors.CodeInvalidRequest, errMessage(err), err))
		return
	}
	if req.Next == "" {
		req.Next = c.Query("next")
	}
	resp, err := h.authSvc.Login(c.Request.Context(), req)
	if err != nil {
		abortWithError(c, fromAppError(err, apperrors.CodeAuthError))
		return
	}
	setSessionCookie(c, h.cookieName, resp.Token, h.tokenTTL)
	c.JSON(http.StatusOK, resp)
}

// Refresh exchanges a refresh token for a new pair bound to the same session.
func (h *Handler) Refresh(c *gin.Context) {
	var req auth.RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, apperrors.CodeInvalidRequest, errMessage(err), err))
		return
	}
	resp, err := h.authSvc.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		abortWithError(c, fromAppError(err, apperrors.CodeAuthError))
		return
	}
	setSessionCookie(c, h.cookieName, resp.Token, h.tokenTTL)
	c.JSON(http.StatusOK, resp)
}

// GoogleLogin redirects to the Google consent screen with a PKCE state cookie.
func (h *Handler) GoogleLogin(c *gin.Context) {
	state, verifier, challenge, err := auth.NewOAuthState()
	if err != nil {
		abortWithError(c, NewHTTPError(http.StatusInternalServerError, apperrors.CodeAuthError, "failed to start sign-in", err))
		return
	}
	target, err := h.authSvc.GoogleAuthURL(c.Request.Context(), state, challenge)
	if err != nil {
		abortWithError(c, fromAppError(err, apperrors.CodeAuthError))
		return
	}
	setOAuthStateCookie(c, oauthStateCookie{State: state, CodeVerifier: verifier, Next: c.Query("next")})
	c.Redirect(http.StatusFound, target)
}

// GoogleCallback completes the sign-in started by GoogleLogin.
func (h *Handler) GoogleCallback(c *gin.Context) {
	if reason := c.Query("error"); reason != "" {
		clearOAuthStateCookie(c)
		abortWithError(c, NewHTTPError(http.StatusBadRequest, codeOAuthDenied, reason, nil))
		return
	}
	stored, ok := readOAuthStateCookie(c)
	clearOAuthStateCookie(c)
	if !ok || stored.State != c.Query("state") {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, codeInvalidState, "sign-in state mismatch", nil))
		return
	}
	code := c.Query("code")
	if code == "" {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, apperrors.CodeInvalidRequest, "missing authorization code", nil))
		return
	}
	resp, err := h.authSvc.GoogleCallback(c.Request.Context(), code, stored.CodeVerifier)
	if err != nil {
		abortWithError(c, fromAppError(err, apperrors.CodeAuthError))
		return
	}
	setSessionCookie(c, h.cookieName, resp.Token, h.tokenTTL)
	resp.Next = auth.SafeNext(stored.Next)
	if h.postLoginRedirect != "" {
		c.Redirect(http.StatusFound, strings.TrimRight(h.postLoginRedirect, "/")+resp.Next)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Profile returns the caller's account.
func (h *Handler) Profile(c *gin.Context) {
	claims, ok := h.requireClaims(c)
	if !ok {
		return
	}
	user, err := h.authSvc.Profile(c.Request.Context(), claims.UserID)
	if err != nil {
		abortWithError(c, fromAppError(err, apperrors.CodeAuthError))
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

// UpdateProfile edits names and email.
func (h *Handler) UpdateProfile(c *gin.Context) {
	claims, ok := h.requireClaims(c)
	if !ok {
		return
	}
	var req auth.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, apperrors.CodeInvalidRequest, errMessage(err), err))
		return
	}
	user, err := h.authSvc.UpdateProfile(c.Request.Context(), claims.UserID, req)
	if err != nil {
		abortWithError(c, fromAppError(err, apperrors.CodeAuthError))
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

// Logout clears the session state and the cookie.
func (h *Handler) Logout(c *gin.Context) {
	claims, ok := h.requireClaims(c)
	if !ok {
		return
	}
	claims.SessionID = sessionKey(claims)
	if err := h.authSvc.Logout(c.Request.Context(), claims); err != nil {
		abortWithError(c, fromAppError(err, apperrors.CodeAuthError))
		return
	}
	clearSessionCookie(c, h.cookieName)
	c.JSON(http.StatusOK, gin.H{"status": "logged_out"})
}
