package auth

import (
	"crypto/rand"
	"encoding/hex"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	apperrors "github.com/yanqian/dermaai/pkg/errors"
)

const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

// sessionClaims is the JWT body. "sid" ties a token pair to one chat and
// routine session.
type sessionClaims struct {
	jwt.RegisteredClaims
	UserID    int64  `json:"userId"`
	Email     string `json:"email"`
	SessionID string `json:"sid"`
	TokenType string `json:"type"`
}

// tokenIssuer signs and verifies HS256 tokens with one shared secret.
type tokenIssuer struct {
	key    []byte
	parser *jwt.Parser
}

func newTokenIssuer(secret string) tokenIssuer {
	return tokenIssuer{
		key: []byte(secret),
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithExpirationRequired(),
		),
	}
}

func (t tokenIssuer) issue(user User, sessionID, tokenType string, ttl time.Duration) (string, error) {
	issuedAt := time.Now()
	body := sessionClaims{
		UserID:    user.ID,
		Email:     user.Email,
		SessionID: sessionID,
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(user.ID, 10),
			ID:        newTokenID(),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, body).SignedString(t.key)
	if err != nil {
		return "", apperrors.Wrap(apperrors.CodeAuthError, "failed to sign token", err)
	}
	return signed, nil
}

// verify parses raw and checks that it carries the wanted token type.
func (t tokenIssuer) verify(raw, wantType string) (Claims, error) {
	var body sessionClaims
	if _, err := t.parser.ParseWithClaims(raw, &body, func(*jwt.Token) (any, error) { return t.key, nil }); err != nil {
		return Claims{}, apperrors.Wrap(apperrors.CodeInvalidToken, "token validation failed", err)
	}
	if body.TokenType != wantType {
		return Claims{}, apperrors.Wrap(apperrors.CodeInvalidToken, "token type mismatch", nil)
	}
	return Claims{
		UserID:    body.UserID,
		Email:     body.Email,
		SessionID: body.SessionID,
		TokenType: body.TokenType,
		ExpiresAt: body.ExpiresAt.Time,
	}, nil
}

func newTokenID() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return strconv.FormatInt(time.Now().UnixNano(), 10)
	}
	return hex.EncodeToString(buf)
}
