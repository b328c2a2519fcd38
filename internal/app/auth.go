package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"reviewbase/internal/util"
	"reviewbase/pkg/domain"
	"reviewbase/pkg/mail"
	"reviewbase/pkg/store"
)

// SignUp registers a pending account and mails a confirmation code.
//
// Repeating the call with the exact same username/email pair is how a user
// requests a fresh code, so that case succeeds and reissues. A username or
// email that collides with a different account is rejected.
func (a *App) SignUp(ctx context.Context, username, email string) (domain.User, error) {
	if err := domain.ValidateUsername(username); err != nil {
		return domain.User{}, invalidField("username", err.Error())
	}
	email, err := domain.NormalizeEmail(email)
	if err != nil {
		return domain.User{}, invalidField("email", err.Error())
	}

	user, found, err := a.store.GetUserByUsername(username)
	if err != nil {
		return domain.User{}, fmt.Errorf("look up user: %w", err)
	}
	switch {
	case found && user.Email == email:
		// Same pair: reissue a code for the existing account.
	case found:
		return domain.User{}, invalidField("username", "username is already in use")
	default:
		taken, err := a.store.HasUserEmail(email)
		if err != nil {
			return domain.User{}, fmt.Errorf("look up email: %w", err)
		}
		if taken {
			return domain.User{}, invalidField("email", "email is already in use")
		}
		now := a.now()
		user = domain.User{
			ID:        util.NewID(),
			Username:  username,
			Email:     email,
			Role:      domain.RoleUser,
			Status:    domain.StatusPending,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := a.store.SaveUser(user); err != nil {
			return domain.User{}, fmt.Errorf("create user: %w", err)
		}
	}

	code, err := a.confirmations.Issue(user.ID)
	if err != nil {
		return domain.User{}, fmt.Errorf("issue confirmation code: %w", err)
	}
	if err := a.mailer.SendConfirmationCode(ctx, user.Email, user.Username, code); err != nil {
		return domain.User{}, fmt.Errorf("send confirmation code: %w", err)
	}
	slog.Info("confirmation code issued",
		"event", "security_event",
		"username", user.Username,
		"email", mail.MaskEmail(user.Email),
	)
	return user, nil
}

// SignIn exchanges a username and confirmation code for an access token.
// The account is (re)activated on every successful verification; a valid
// code stays usable until its TTL expires.
func (a *App) SignIn(username, code string) (string, error) {
	user, found, err := a.store.GetUserByUsername(username)
	if err != nil {
		return "", fmt.Errorf("look up user: %w", err)
	}
	if !found {
		return "", ErrNotFound
	}
	if err := a.confirmations.Verify(user.ID, code); err != nil {
		if errors.Is(err, store.ErrCodeInvalid) || errors.Is(err, store.ErrCodeExpired) {
			slog.Warn("confirmation code rejected",
				"event", "security_event",
				"username", user.Username,
			)
			return "", ErrInvalidConfirmationCode
		}
		return "", fmt.Errorf("verify confirmation code: %w", err)
	}
	if user.Status != domain.StatusActive {
		user.Status = domain.StatusActive
		user.UpdatedAt = a.now()
		if err := a.store.SaveUser(user); err != nil {
			return "", fmt.Errorf("activate user: %w", err)
		}
	}
	token, err := a.sessions.NewSession(user.ID)
	if err != nil {
		return "", fmt.Errorf("issue token: %w", err)
	}
	slog.Info("user signed in",
		"event", "security_event",
		"username", user.Username,
	)
	return token, nil
}
