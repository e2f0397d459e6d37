package auth

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"golang.org/x/crypto/bcrypt"

	apperrors "github.com/yanqian/dermaai/pkg/errors"
)

// Service exposes authentication workflows.
type Service interface {
	Register(ctx context.Context, req RegisterRequest) (UserView, error)
	Login(ctx context.Context, req LoginRequest) (LoginResponse, error)
	GoogleAuthURL(ctx context.Context, state, codeChallenge string) (string, error)
	GoogleCallback(ctx context.Context, code, codeVerifier string) (LoginResponse, error)
	ValidateToken(ctx context.Context, token string) (Claims, error)
	Refresh(ctx context.Context, refreshToken string) (LoginResponse, error)
	Profile(ctx context.Context, userID int64) (UserView, error)
	UpdateProfile(ctx context.Context, userID int64, req UpdateProfileRequest) (UserView, error)
	Logout(ctx context.Context, claims Claims) error
}

type service struct {
	cfg      Config
	tokens   tokenIssuer
	repo     Repository
	sessions SessionCleaner
	logger   *slog.Logger

	google    *googleSignIn
	googleErr error
}

// NewService wires the auth workflows. sessions may be nil.
func NewService(cfg Config, repo Repository, sessions SessionCleaner, logger *slog.Logger) Service {
	svc := &service{
		cfg:      cfg,
		tokens:   newTokenIssuer(cfg.Secret),
		repo:     repo,
		sessions: sessions,
		logger:   logger.With("component", "auth.service"),
	}
	svc.google, svc.googleErr = newGoogleSignIn(cfg.Google)
	return svc
}

func (s *service) Register(ctx context.Context, req RegisterRequest) (UserView, error) {
	email, err := normalizeEmail(req.Email)
	if err != nil {
		return UserView{}, apperrors.Wrap(apperrors.CodeInvalidInput, "invalid email address", err)
	}
	firstName, lastName, err := normalizeNames(req.FirstName, req.LastName)
	if err == nil {
		err = validatePassword(req.Password)
	}
	if err != nil {
		return UserView{}, apperrors.Wrap(apperrors.CodeInvalidInput, err.Error(), nil)
	}
	if _, taken, err := s.repo.GetByEmail(ctx, email); err != nil {
		return UserView{}, apperrors.Wrap(apperrors.CodeAuthError, "failed to check user", err)
	} else if taken {
		return UserView{}, apperrors.Wrap(apperrors.CodeEmailExists, "email already registered", nil)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return UserView{}, apperrors.Wrap(apperrors.CodeAuthError, "failed to hash password", err)
	}
	user, err := s.repo.Create(ctx, NewUser{FirstName: firstName, LastName: lastName, Email: email, PasswordHash: string(hash)})
	switch {
	case errors.Is(err, ErrEmailExists):
		return UserView{}, apperrors.Wrap(apperrors.CodeEmailExists, "email already registered", err)
	case err != nil:
		return UserView{}, apperrors.Wrap(apperrors.CodeAuthError, "failed to create user", err)
	}
	s.logger.Info("user registered", "userId", user.ID)
	return toView(user), nil
}

// Login checks the password and opens a fresh session.
func (s *service) Login(ctx context.Context, req LoginRequest) (LoginResponse, error) {
	email, err := normalizeEmail(req.Email)
	if err != nil {
		return LoginResponse{}, apperrors.Wrap(apperrors.CodeInvalidInput, "invalid email address", err)
	}
	if strings.TrimSpace(req.Password) == "" {
		return LoginResponse{}, apperrors.Wrap(apperrors.CodeInvalidInput, "password cannot be empty", nil)
	}
	user, found, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		return LoginResponse{}, apperrors.Wrap(apperrors.CodeAuthError, "failed to fetch user", err)
	}
	if !found || bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		return LoginResponse{}, apperrors.Wrap(apperrors.CodeInvalidCredentials, "invalid email or password", nil)
	}
	resp, err := s.openSession(user, newTokenID())
	if err != nil {
		return LoginResponse{}, err
	}
	resp.Next = SafeNext(req.Next)
	return resp, nil
}

func (s *service) ValidateToken(_ context.Context, token string) (Claims, error) {
	if strings.TrimSpace(token) == "" {
		return Claims{}, apperrors.Wrap(apperrors.CodeInvalidToken, "token missing", nil)
	}
	return s.tokens.verify(token, tokenTypeAccess)
}

// Refresh reissues both tokens under the same session id.
func (s *service) Refresh(ctx context.Context, refreshToken string) (LoginResponse, error) {
	claims, err := s.tokens.verify(refreshToken, tokenTypeRefresh)
	if err != nil {
		return LoginResponse{}, err
	}
	user, err := s.loadUser(ctx, claims.UserID)
	if err != nil {
		return LoginResponse{}, err
	}
	sessionID := claims.SessionID
	if sessionID == "" {
		sessionID = newTokenID()
	}
	return s.openSession(user, sessionID)
}

func (s *service) Profile(ctx context.Context, userID int64) (UserView, error) {
	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return UserView{}, err
	}
	return toView(user), nil
}

func (s *service) UpdateProfile(ctx context.Context, userID int64, req UpdateProfileRequest) (UserView, error) {
	email, err := normalizeEmail(req.Email)
	if err != nil {
		return UserView{}, apperrors.Wrap(apperrors.CodeInvalidInput, "invalid email address", err)
	}
	firstName, lastName, err := normalizeNames(req.FirstName, req.LastName)
	if err != nil {
		return UserView{}, apperrors.Wrap(apperrors.CodeInvalidInput, err.Error(), nil)
	}
	user, err := s.repo.UpdateProfile(ctx, userID, firstName, lastName, email)
	switch {
	case errors.Is(err, ErrEmailExists):
		return UserView{}, apperrors.Wrap(apperrors.CodeEmailExists, "Email already in use", err)
	case errors.Is(err, ErrUserNotFound):
		return UserView{}, apperrors.Wrap(apperrors.CodeUserNotFound, "user not found", err)
	case err != nil:
		return UserView{}, apperrors.Wrap(apperrors.CodeAuthError, "failed to update profile", err)
	}
	return toView(user), nil
}

// Logout clears the session's chat and routine state and revokes a linked
// Google refresh token. Session cleanup and revocation failures are only logged.
func (s *service) Logout(ctx context.Context, claims Claims) error {
	if s.sessions != nil && claims.SessionID != "" {
		if err := s.sessions.Clear(ctx, claims.SessionID); err != nil {
			s.logger.Warn("failed to clear session state", "sessionId", claims.SessionID, "error", err)
		}
	}
	s.revokeGoogle(ctx, claims.UserID)
	return nil
}

func (s *service) loadUser(ctx context.Context, userID int64) (User, error) {
	user, found, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return User{}, apperrors.Wrap(apperrors.CodeAuthError, "failed to load user", err)
	}
	if !found {
		return User{}, apperrors.Wrap(apperrors.CodeUserNotFound, "user not found", nil)
	}
	return user, nil
}

func (s *service) openSession(user User, sessionID string) (LoginResponse, error) {
	access, err := s.tokens.issue(user, sessionID, tokenTypeAccess, s.cfg.TokenTTL)
	if err != nil {
		return LoginResponse{}, err
	}
	refresh, err := s.tokens.issue(user, sessionID, tokenTypeRefresh, s.cfg.RefreshTokenTTL)
	if err != nil {
		return LoginResponse{}, err
	}
	return LoginResponse{Token: access, RefreshToken: refresh, User: toView(user)}, nil
}

func toView(user User) UserView {
	return UserView{
		ID:        user.ID,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Email:     user.Email,
		CreatedAt: user.CreatedAt,
	}
}
