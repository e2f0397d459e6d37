package auth

import (
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	maxNameLength     = 50
	minPasswordLength = 8
)

func normalizeEmail(raw string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))
	if email == "" {
		return "", errors.New("email cannot be empty")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return "", err
	}
	return email, nil
}

// normalizeNames trims both names. The first name is required.
func normalizeNames(first, last string) (string, string, error) {
	first, last = strings.TrimSpace(first), strings.TrimSpace(last)
	if first == "" {
		return "", "", errors.New("first name cannot be empty")
	}
	for _, name := range [...]string{first, last} {
		if utf8.RuneCountInString(name) > maxNameLength {
			return "", "", fmt.Errorf("names cannot exceed %d characters", maxNameLength)
		}
		if strings.IndexFunc(name, unicode.IsControl) >= 0 {
			return "", "", errors.New("names cannot contain control characters")
		}
	}
	return first, last, nil
}

func validatePassword(password string) error {
	if len(password) < minPasswordLength {
		return fmt.Errorf("password must be at least %d characters", minPasswordLength)
	}
	return nil
}
