package app

import (
	"context"
	"testing"
	"time"

	"reviewbase/internal/util"
	"reviewbase/pkg/domain"
	"reviewbase/pkg/store"
)

// fakeConfirmations hands out a predictable code per user and validates
// without consuming, mirroring the Redis-backed store's contract.
type fakeConfirmations struct {
	codes  map[string]string
	issued int
}

func newFakeConfirmations() *fakeConfirmations {
	return &fakeConfirmations{codes: map[string]string{}}
}

func (f *fakeConfirmations) Issue(userID string) (string, error) {
	f.issued++
	code := "123456"
	f.codes[userID] = code
	return code, nil
}

func (f *fakeConfirmations) Verify(userID, code string) error {
	if stored, ok := f.codes[userID]; ok && stored == code {
		return nil
	}
	return store.ErrCodeInvalid
}

type fakeSessions struct {
	tokens map[string]string
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{tokens: map[string]string{}}
}

func (f *fakeSessions) NewSession(userID string) (string, error) {
	token := "token-" + userID
	f.tokens[token] = userID
	return token, nil
}

func (f *fakeSessions) GetUserIDByToken(token string) (string, bool, error) {
	userID, ok := f.tokens[token]
	return userID, ok, nil
}

type sentMail struct {
	email    string
	username string
	code     string
}

type recordingMailer struct {
	sent []sentMail
}

func (m *recordingMailer) SendConfirmationCode(_ context.Context, email, username, code string) error {
	m.sent = append(m.sent, sentMail{email: email, username: username, code: code})
	return nil
}

type testApp struct {
	app           *App
	store         *store.MemoryStore
	confirmations *fakeConfirmations
	sessions      *fakeSessions
	mailer        *recordingMailer
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	ta := &testApp{
		store:         store.NewMemoryStore(),
		confirmations: newFakeConfirmations(),
		sessions:      newFakeSessions(),
		mailer:        &recordingMailer{},
	}
	ta.app = New(Config{
		Store:         ta.store,
		Confirmations: ta.confirmations,
		Sessions:      ta.sessions,
		Mailer:        ta.mailer,
	})
	return ta
}

func (ta *testApp) seedUser(t *testing.T, username string, role domain.UserRole) domain.User {
	t.Helper()
	now := time.Now()
	user := domain.User{
		ID:        util.NewID(),
		Username:  username,
		Email:     username + "@example.com",
		Role:      role,
		Status:    domain.StatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := ta.store.SaveUser(user); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return user
}

func (ta *testApp) seedCatalog(t *testing.T) (domain.Category, domain.Genre) {
	t.Helper()
	category := domain.Category{ID: util.NewID(), Name: "Movies", Slug: "movies"}
	if err := ta.store.SaveCategory(category); err != nil {
		t.Fatalf("seed category: %v", err)
	}
	genre := domain.Genre{ID: util.NewID(), Name: "Drama", Slug: "drama"}
	if err := ta.store.SaveGenre(genre); err != nil {
		t.Fatalf("seed genre: %v", err)
	}
	return category, genre
}

func (ta *testApp) seedTitle(t *testing.T, name string) domain.Title {
	t.Helper()
	category, genre := ta.seedCatalog(t)
	title := domain.Title{
		ID:       util.NewID(),
		Name:     name,
		Year:     2010,
		Category: &category,
		Genres:   []domain.Genre{genre},
	}
	if err := ta.store.SaveTitle(title); err != nil {
		t.Fatalf("seed title: %v", err)
	}
	return title
}
