package domain

import "testing"

func TestValidateUsername(t *testing.T) {
	cases := []struct {
		name     string
		username string
		wantErr  error
	}{
		{"plain", "stan", nil},
		{"allowed symbols", "stan.the_man+1@host-x", nil},
		{"empty", "", ErrUsernameRequired},
		{"space", "stan rus", ErrUsernameInvalid},
		{"cyrillic", "стас", ErrUsernameInvalid},
		{"hash", "stan#1", ErrUsernameInvalid},
		{"reserved me", "me", ErrUsernameReserved},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := ValidateUsername(tc.username); err != tc.wantErr {
				t.Fatalf("ValidateUsername(%q) = %v, want %v", tc.username, err, tc.wantErr)
			}
		})
	}
}

func TestNormalizeEmail(t *testing.T) {
	got, err := NormalizeEmail("  Stan@Example.COM ")
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if got != "stan@example.com" {
		t.Fatalf("got %q", got)
	}
	if _, err := NormalizeEmail("not-an-email"); err == nil {
		t.Fatal("expected error for invalid email")
	}
}

func TestValidScore(t *testing.T) {
	for _, score := range []int{1, 5, 10} {
		if !ValidScore(score) {
			t.Fatalf("score %d should be valid", score)
		}
	}
	for _, score := range []int{0, -1, 11} {
		if ValidScore(score) {
			t.Fatalf("score %d should be invalid", score)
		}
	}
}
