package auth

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"io"
)

// tokenSealer encrypts provider refresh tokens at rest with AES-GCM.
// Ciphertexts are nonce||sealed, base64url encoded.
type tokenSealer struct {
	aead cipher.AEAD
}

func newTokenSealer(key string) (*tokenSealer, error) {
	raw := []byte(key)
	switch len(raw) {
	case 16, 24, 32:
	default:
		return nil, errors.New("token encryption key must be 16, 24, or 32 bytes")
	}
	block, err := aes.NewCipher(raw)
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &tokenSealer{aead: aead}, nil
}

func (t *tokenSealer) seal(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}
	nonce := make([]byte, t.aead.NonceSize(), t.aead.NonceSize()+len(plaintext)+t.aead.Overhead())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(t.aead.Seal(nonce, nonce, []byte(plaintext), nil)), nil
}

func (t *tokenSealer) open(encoded string) (string, error) {
	if encoded == "" {
		return "", nil
	}
	payload, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return "", err
	}
	size := t.aead.NonceSize()
	if len(payload) < size {
		return "", errors.New("invalid token payload")
	}
	plaintext, err := t.aead.Open(nil, payload[:size], payload[size:], nil)
	if err != nil {
		return "", err
	}
	return string(plaintext), nil
}
