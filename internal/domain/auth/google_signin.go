package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	apperrors "github.com/yanqian/dermaai/pkg/errors"
)

const (
	googleProviderName = "google"
	googleIssuerURL    = "https://accounts.google.com"
	googleRevokeURL    = "https://oauth2.googleapis.com/revoke"
)

type googleClaims struct {
	Subject       string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	GivenName     string `json:"given_name"`
	FamilyName    string `json:"family_name"`
}

// googleSignIn bundles the OAuth client, the ID token verifier and the sealer
// for stored refresh tokens. The verifier is discovered on first use; a failed
// discovery is retried on the next sign-in.
type googleSignIn struct {
	oauth      *oauth2.Config
	sealer     *tokenSealer
	revokeURL  string
	httpClient *http.Client

	mu       sync.Mutex
	verifier *oidc.IDTokenVerifier
}

func newGoogleSignIn(cfg GoogleConfig) (*googleSignIn, error) {
	if strings.TrimSpace(cfg.ClientID) == "" || strings.TrimSpace(cfg.ClientSecret) == "" || strings.TrimSpace(cfg.RedirectURL) == "" {
		return nil, apperrors.Wrap(apperrors.CodeAuthNotConfigured, "google sign-in is not configured", nil)
	}
	sealer, err := newTokenSealer(cfg.TokenEncryptionKey)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeAuthNotConfigured, "google token encryption key is invalid", err)
	}
	return &googleSignIn{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       []string{oidc.ScopeOpenID, "email", "profile"},
			Endpoint:     google.Endpoint,
		},
		sealer:     sealer,
		revokeURL:  googleRevokeURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}, nil
}

func (g *googleSignIn) authURL(state, codeChallenge string) string {
	return g.oauth.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", "consent"),
		oauth2.SetAuthURLParam("code_challenge", codeChallenge),
		oauth2.SetAuthURLParam("code_challenge_method", "S256"),
	)
}

// exchange trades the authorization code for tokens and returns the verified
// ID token claims together with the (possibly empty) refresh token.
func (g *googleSignIn) exchange(ctx context.Context, code, codeVerifier string) (googleClaims, string, error) {
	token, err := g.oauth.Exchange(ctx, code, oauth2.VerifierOption(codeVerifier))
	if err != nil {
		return googleClaims{}, "", apperrors.Wrap(apperrors.CodeOAuthExchangeFailed, "failed to exchange oauth code", err)
	}
	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok || rawIDToken == "" {
		return googleClaims{}, "", apperrors.Wrap(apperrors.CodeOAuthExchangeFailed, "missing id_token in oauth response", nil)
	}
	verifier, err := g.idTokenVerifier(ctx)
	if err != nil {
		return googleClaims{}, "", apperrors.Wrap(apperrors.CodeAuthError, "failed to initialize oidc provider", err)
	}
	idToken, err := verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return googleClaims{}, "", apperrors.Wrap(apperrors.CodeInvalidToken, "failed to verify id token", err)
	}
	var claims googleClaims
	if err := idToken.Claims(&claims); err != nil {
		return googleClaims{}, "", apperrors.Wrap(apperrors.CodeInvalidToken, "failed to parse id token claims", err)
	}
	if claims.Subject == "" || claims.Email == "" {
		return googleClaims{}, "", apperrors.Wrap(apperrors.CodeInvalidToken, "id token lacks subject or email", nil)
	}
	return claims, token.RefreshToken, nil
}

func (g *googleSignIn) idTokenVerifier(ctx context.Context) (*oidc.IDTokenVerifier, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.verifier != nil {
		return g.verifier, nil
	}
	provider, err := oidc.NewProvider(ctx, googleIssuerURL)
	if err != nil {
		return nil, err
	}
	g.verifier = provider.Verifier(&oidc.Config{ClientID: g.oauth.ClientID})
	return g.verifier, nil
}

// revoke invalidates a sealed refresh token at Google.
func (g *googleSignIn) revoke(ctx context.Context, sealed string) error {
	refreshToken, err := g.sealer.open(sealed)
	if err != nil {
		return fmt.Errorf("open refresh token: %w", err)
	}
	if refreshToken == "" {
		return nil
	}
	form := url.Values{"token": {refreshToken}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.revokeURL, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err := g.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("google revoke returned status %d", resp.StatusCode)
	}
	return nil
}

func (s *service) googleClient() (*googleSignIn, error) {
	if s.google == nil {
		return nil, s.googleErr
	}
	return s.google, nil
}

func (s *service) GoogleAuthURL(_ context.Context, state, codeChallenge string) (string, error) {
	g, err := s.googleClient()
	if err != nil {
		return "", err
	}
	return g.authURL(state, codeChallenge), nil
}

func (s *service) GoogleCallback(ctx context.Context, code, codeVerifier string) (LoginResponse, error) {
	g, err := s.googleClient()
	if err != nil {
		return LoginResponse{}, err
	}
	if strings.TrimSpace(code) == "" || strings.TrimSpace(codeVerifier) == "" {
		return LoginResponse{}, apperrors.Wrap(apperrors.CodeInvalidRequest, "missing oauth code or verifier", nil)
	}
	claims, refreshToken, err := g.exchange(ctx, code, codeVerifier)
	if err != nil {
		return LoginResponse{}, err
	}
	user, err := s.resolveGoogleUser(ctx, claims)
	if err != nil {
		return LoginResponse{}, err
	}
	if err := s.saveGoogleIdentity(ctx, user.ID, claims, refreshToken); err != nil {
		return LoginResponse{}, err
	}
	return s.openSession(user, newTokenID())
}

// resolveGoogleUser finds the account behind a Google identity. Unknown
// identities attach to the account with the same verified email, or create one.
func (s *service) resolveGoogleUser(ctx context.Context, claims googleClaims) (User, error) {
	identity, found, err := s.repo.GetIdentity(ctx, googleProviderName, claims.Subject)
	if err != nil {
		return User{}, apperrors.Wrap(apperrors.CodeAuthError, "failed to fetch identity", err)
	}
	if found {
		return s.loadUser(ctx, identity.UserID)
	}

	if !claims.EmailVerified {
		return User{}, apperrors.Wrap(apperrors.CodeInvalidCredentials, "google account email not verified", nil)
	}
	email, err := normalizeEmail(claims.Email)
	if err != nil {
		return User{}, apperrors.Wrap(apperrors.CodeInvalidInput, "invalid email address", err)
	}
	existing, exists, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		return User{}, apperrors.Wrap(apperrors.CodeAuthError, "failed to check existing user", err)
	}
	if exists {
		s.logger.Info("linking google identity to existing account", "userId", existing.ID)
		return existing, nil
	}

	firstName, lastName := googleNames(claims)
	passwordHash, err := hashRandomPassword()
	if err != nil {
		return User{}, apperrors.Wrap(apperrors.CodeAuthError, "failed to generate password hash", err)
	}
	user, err := s.repo.Create(ctx, NewUser{FirstName: firstName, LastName: lastName, Email: email, PasswordHash: passwordHash})
	switch {
	case errors.Is(err, ErrEmailExists):
		return User{}, apperrors.Wrap(apperrors.CodeEmailExists, "email already registered", err)
	case err != nil:
		return User{}, apperrors.Wrap(apperrors.CodeAuthError, "failed to create user", err)
	}
	s.logger.Info("user registered via google", "userId", user.ID)
	return user, nil
}

// saveGoogleIdentity records the link. Google only returns a refresh token on
// first consent; repositories keep the stored one when the new value is empty.
func (s *service) saveGoogleIdentity(ctx context.Context, userID int64, claims googleClaims, refreshToken string) error {
	sealed, err := s.google.sealer.seal(refreshToken)
	if err != nil {
		return apperrors.Wrap(apperrors.CodeAuthError, "failed to encrypt refresh token", err)
	}
	_, err = s.repo.UpsertIdentity(ctx, Identity{
		UserID:          userID,
		Provider:        googleProviderName,
		ProviderSubject: claims.Subject,
		ProviderEmail:   claims.Email,
		RefreshToken:    sealed,
	})
	if err != nil {
		return apperrors.Wrap(apperrors.CodeAuthError, "failed to persist identity", err)
	}
	return nil
}

// revokeGoogle revokes a linked refresh token. Every failure is logged only.
func (s *service) revokeGoogle(ctx context.Context, userID int64) {
	if s.google == nil {
		return
	}
	identity, found, err := s.repo.GetIdentityByUser(ctx, userID, googleProviderName)
	if err != nil {
		s.logger.Warn("failed to fetch google identity", "error", err)
		return
	}
	if !found || identity.RefreshToken == "" {
		return
	}
	if err := s.google.revoke(ctx, identity.RefreshToken); err != nil {
		s.logger.Warn("failed to revoke google refresh token", "userId", userID, "error", err)
	}
}

func googleNames(claims googleClaims) (string, string) {
	first := strings.TrimSpace(claims.GivenName)
	last := strings.TrimSpace(claims.FamilyName)
	if first == "" {
		first = strings.TrimSpace(claims.Name)
	}
	if first == "" {
		first, _, _ = strings.Cut(claims.Email, "@")
	}
	if f, l, err := normalizeNames(first, last); err == nil {
		return f, l
	}
	return "User", ""
}

func hashRandomPassword() (string, error) {
	raw, err := randomString(32)
	if err != nil {
		return "", err
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(raw), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}
