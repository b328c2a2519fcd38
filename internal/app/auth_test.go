package app

import (
	"context"
	"errors"
	"testing"

	"reviewbase/pkg/domain"
)

func TestSignUpCreatesPendingUser(t *testing.T) {
	ta := newTestApp(t)

	user, err := ta.app.SignUp(context.Background(), "alice", "Alice@Example.com")
	if err != nil {
		t.Fatalf("signup: %v", err)
	}
	if user.Status != domain.StatusPending {
		t.Fatalf("status = %q, want pending", user.Status)
	}
	if user.Role != domain.RoleUser {
		t.Fatalf("role = %q, want user", user.Role)
	}
	if user.Email != "alice@example.com" {
		t.Fatalf("email = %q, want normalized", user.Email)
	}
	if len(ta.mailer.sent) != 1 {
		t.Fatalf("mails sent = %d, want 1", len(ta.mailer.sent))
	}
	if ta.mailer.sent[0].code == "" {
		t.Fatal("mail carries no code")
	}
}

func TestSignUpSamePairReissues(t *testing.T) {
	ta := newTestApp(t)
	ctx := context.Background()

	first, err := ta.app.SignUp(ctx, "alice", "alice@example.com")
	if err != nil {
		t.Fatalf("first signup: %v", err)
	}
	second, err := ta.app.SignUp(ctx, "alice", "alice@example.com")
	if err != nil {
		t.Fatalf("repeat signup: %v", err)
	}
	if first.ID != second.ID {
		t.Fatal("repeat signup created a second account")
	}
	if ta.confirmations.issued != 2 {
		t.Fatalf("codes issued = %d, want 2", ta.confirmations.issued)
	}
	users, err := ta.store.ListUsers("")
	if err != nil {
		t.Fatalf("list users: %v", err)
	}
	if len(users) != 1 {
		t.Fatalf("users = %d, want 1", len(users))
	}
}

func TestSignUpRejectsCollisions(t *testing.T) {
	ta := newTestApp(t)
	ctx := context.Background()
	if _, err := ta.app.SignUp(ctx, "alice", "alice@example.com"); err != nil {
		t.Fatalf("signup: %v", err)
	}

	if _, err := ta.app.SignUp(ctx, "alice", "other@example.com"); err == nil {
		t.Fatal("taken username with different email must fail")
	} else if _, ok := AsValidationError(err); !ok {
		t.Fatalf("want validation error, got %v", err)
	}
	if _, err := ta.app.SignUp(ctx, "bob", "alice@example.com"); err == nil {
		t.Fatal("taken email with different username must fail")
	}
}

func TestSignUpRejectsBadInput(t *testing.T) {
	ta := newTestApp(t)
	ctx := context.Background()

	cases := []struct {
		name     string
		username string
		email    string
	}{
		{"reserved username", "me", "me@example.com"},
		{"forbidden characters", "has space", "ok@example.com"},
		{"empty username", "", "ok@example.com"},
		{"bad email", "alice", "not-an-email"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ta.app.SignUp(ctx, tc.username, tc.email)
			if _, ok := AsValidationError(err); !ok {
				t.Fatalf("want validation error, got %v", err)
			}
		})
	}
}

func TestSignInUnknownUser(t *testing.T) {
	ta := newTestApp(t)
	if _, err := ta.app.SignIn("ghost", "123456"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestSignInWrongCode(t *testing.T) {
	ta := newTestApp(t)
	if _, err := ta.app.SignUp(context.Background(), "alice", "alice@example.com"); err != nil {
		t.Fatalf("signup: %v", err)
	}
	if _, err := ta.app.SignIn("alice", "000000"); !errors.Is(err, ErrInvalidConfirmationCode) {
		t.Fatalf("err = %v, want ErrInvalidConfirmationCode", err)
	}
}

func TestSignInActivatesAndIsRepeatable(t *testing.T) {
	ta := newTestApp(t)
	if _, err := ta.app.SignUp(context.Background(), "alice", "alice@example.com"); err != nil {
		t.Fatalf("signup: %v", err)
	}
	code := ta.mailer.sent[0].code

	token, err := ta.app.SignIn("alice", code)
	if err != nil {
		t.Fatalf("sign in: %v", err)
	}
	if token == "" {
		t.Fatal("empty token")
	}
	user, found, err := ta.store.GetUserByUsername("alice")
	if err != nil || !found {
		t.Fatalf("get user: found=%v err=%v", found, err)
	}
	if user.Status != domain.StatusActive {
		t.Fatalf("status = %q, want active", user.Status)
	}

	// A still-valid code keeps working.
	if _, err := ta.app.SignIn("alice", code); err != nil {
		t.Fatalf("repeat sign in: %v", err)
	}
}

func TestUserFromToken(t *testing.T) {
	ta := newTestApp(t)
	if _, err := ta.app.SignUp(context.Background(), "alice", "alice@example.com"); err != nil {
		t.Fatalf("signup: %v", err)
	}
	token, err := ta.app.SignIn("alice", ta.mailer.sent[0].code)
	if err != nil {
		t.Fatalf("sign in: %v", err)
	}

	user, ok, err := ta.app.UserFromToken(token)
	if err != nil || !ok {
		t.Fatalf("resolve token: ok=%v err=%v", ok, err)
	}
	if user.Username != "alice" {
		t.Fatalf("username = %q", user.Username)
	}
	if _, ok, _ := ta.app.UserFromToken("bogus"); ok {
		t.Fatal("bogus token must not resolve")
	}
}
