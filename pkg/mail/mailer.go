// Package mail hands confirmation messages to the delivery channel. The
// backend does not speak SMTP itself; it publishes mail jobs for an external
// delivery worker, or logs them in development.
package mail

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// Message is a mail job handed to the delivery channel.
type Message struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// Mailer delivers signup confirmation codes.
type Mailer interface {
	SendConfirmationCode(ctx context.Context, email, username, code string) error
}

// ConfirmationMessage builds the signup mail for a code.
func ConfirmationMessage(email, username, code string) Message {
	return Message{
		To:      email,
		Subject: "Confirmation code",
		Body:    fmt.Sprintf("Hello %s,\n\nYour confirmation code: %s\n", username, code),
	}
}

// LogMailer writes mail jobs to the log instead of delivering them.
// Intended for development; the recipient is masked and the code is not
// logged.
type LogMailer struct{}

func (LogMailer) SendConfirmationCode(_ context.Context, email, username, _ string) error {
	slog.Info("confirmation mail (log mailer, code withheld)",
		"to", MaskEmail(email),
		"username", username,
	)
	return nil
}

// MaskEmail hides most of the local part of an address for logging.
func MaskEmail(email string) string {
	email = strings.TrimSpace(strings.ToLower(email))
	parts := strings.Split(email, "@")
	if len(parts) != 2 {
		return email
	}
	local := parts[0]
	domain := parts[1]
	switch len(local) {
	case 0:
		return "***@" + domain
	case 1:
		return local + "***@" + domain
	case 2:
		return local[:1] + "***@" + domain
	default:
		return local[:1] + "***" + local[len(local)-1:] + "@" + domain
	}
}
