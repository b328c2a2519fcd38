package domain

import (
	"errors"
	"net/mail"
	"regexp"
	"strings"
)

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9@.+\-_]+$`)

var (
	ErrUsernameRequired = errors.New("username is required")
	ErrUsernameInvalid  = errors.New("username contains forbidden characters")
	// ErrUsernameReserved rejects "me", which collides with the
	// self-service profile route.
	ErrUsernameReserved = errors.New("username 'me' is reserved")
	ErrEmailInvalid     = errors.New("email format is invalid")
)

// ValidateUsername enforces the allowed character set and the reserved name.
func ValidateUsername(username string) error {
	if username == "" {
		return ErrUsernameRequired
	}
	if !usernamePattern.MatchString(username) {
		return ErrUsernameInvalid
	}
	if username == "me" {
		return ErrUsernameReserved
	}
	return nil
}

// NormalizeEmail lowercases, trims and validates an email address.
func NormalizeEmail(email string) (string, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" {
		return "", errors.New("email is required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return "", ErrEmailInvalid
	}
	return email, nil
}
